/*
Copyright © 2026 The Gauth Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    https://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package mint

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauth-dev/gauth/internal/transport"
	"github.com/gauth-dev/gauth/internal/transport/faketransport"
)

func generateTestKey(t *testing.T) (*rsa.PrivateKey, string) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der := x509.MarshalPKCS1PrivateKey(key)
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: der}))
}

func TestFetchServiceAccountAccessToken(t *testing.T) {
	_, pemKey := generateTestKey(t)
	gw := &faketransport.Gateway{
		DoFunc: func(ctx context.Context, req transport.Request) (transport.Response, error) {
			form, err := url.ParseQuery(string(req.Body))
			require.NoError(t, err)
			assert.Equal(t, grantJWTBearer, form.Get("grant_type"))
			assert.NotEmpty(t, form.Get("assertion"))
			return transport.Response{Status: 200, Body: []byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3599}`)}, nil
		},
	}

	now := time.Unix(1_700_000_000, 0)
	src := Source{Credentials: Credentials{ServiceAccount: &ServiceAccountCredentials{
		ClientEmail:   "svc@project.iam.gserviceaccount.com",
		PrivateKeyPEM: pemKey,
		TokenURI:      "https://token.example/uri",
	}}}

	tok, err := Fetch(context.Background(), gw, now, src)
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type)
	assert.Equal(t, now.Unix()+3599, tok.Expires)
	assert.Equal(t, 1, gw.Calls())
}

func TestFetchServiceAccountClaimOverride(t *testing.T) {
	_, pemKey := generateTestKey(t)
	var capturedAssertion string
	gw := &faketransport.Gateway{
		DoFunc: func(ctx context.Context, req transport.Request) (transport.Response, error) {
			form, _ := url.ParseQuery(string(req.Body))
			capturedAssertion = form.Get("assertion")
			return transport.Response{Status: 200, Body: []byte(`{"access_token":"tok","token_type":"Bearer","expires_in":3599}`)}, nil
		},
	}

	src := Source{
		Credentials: Credentials{ServiceAccount: &ServiceAccountCredentials{
			ClientEmail:   "svc@project.iam.gserviceaccount.com",
			PrivateKeyPEM: pemKey,
		}},
		Options: Options{Claims: map[string]string{"sub": "bob@x", "scope": "s"}},
	}

	tok, err := Fetch(context.Background(), gw, time.Now(), src)
	require.NoError(t, err)
	assert.Equal(t, "bob@x", tok.Sub)

	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(capturedAssertion, jwt.MapClaims{})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "svc@project.iam.gserviceaccount.com", claims["iss"])
	assert.Equal(t, "bob@x", claims["sub"])
	assert.Equal(t, "s", claims["scope"])
}

func makeRawIdentityJWS(t *testing.T, aud, sub string, exp int64) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`))
	payload, err := json.Marshal(map[string]any{"aud": aud, "sub": sub, "exp": exp})
	require.NoError(t, err)
	body := base64.RawURLEncoding.EncodeToString(payload)
	return header + "." + body + ".sig"
}

func TestFetchServiceAccountIdentityToken(t *testing.T) {
	_, pemKey := generateTestKey(t)
	raw := makeRawIdentityJWS(t, "https://aud.example", "svc@x", 1_700_003_600)
	gw := &faketransport.Gateway{
		Queue: []faketransport.Result{
			{Response: transport.Response{Status: 200, Body: []byte(`{"id_token":"` + raw + `"}`)}},
		},
	}

	src := Source{
		Credentials: Credentials{ServiceAccount: &ServiceAccountCredentials{
			ClientEmail:   "svc@project.iam.gserviceaccount.com",
			PrivateKeyPEM: pemKey,
		}},
		Options: Options{Claims: map[string]string{"target_audience": "https://aud.example"}},
	}

	tok, err := Fetch(context.Background(), gw, time.Now(), src)
	require.NoError(t, err)
	assert.Equal(t, raw, tok.AccessToken)
	assert.Equal(t, "https://aud.example", tok.Scope)
	assert.Equal(t, "svc@x", tok.Sub)
	assert.Equal(t, int64(1_700_003_600), tok.Expires)
}

func TestFetchServiceAccountUnexpectedStatus(t *testing.T) {
	_, pemKey := generateTestKey(t)
	gw := &faketransport.Gateway{
		Queue: []faketransport.Result{
			{Response: transport.Response{Status: 500, Body: []byte("boom")}},
		},
	}
	src := Source{Credentials: Credentials{ServiceAccount: &ServiceAccountCredentials{
		ClientEmail: "svc@x", PrivateKeyPEM: pemKey,
	}}}

	_, err := Fetch(context.Background(), gw, time.Now(), src)
	require.Error(t, err)
	var status *UnexpectedStatus
	require.ErrorAs(t, err, &status)
	assert.Equal(t, 500, status.Status)
}

func TestFetchRefreshToken(t *testing.T) {
	gw := &faketransport.Gateway{
		DoFunc: func(ctx context.Context, req transport.Request) (transport.Response, error) {
			form, _ := url.ParseQuery(string(req.Body))
			assert.Equal(t, "refresh_token", form.Get("grant_type"))
			assert.Equal(t, "rt", form.Get("refresh_token"))
			return transport.Response{Status: 200, Body: []byte(`{"access_token":"tok2","expires_in":60}`)}, nil
		},
	}
	src := Source{Credentials: Credentials{RefreshToken: &RefreshTokenCredentials{
		ClientID: "cid", ClientSecret: "secret", RefreshToken: "rt",
	}}}

	now := time.Unix(5000, 0)
	tok, err := Fetch(context.Background(), gw, now, src)
	require.NoError(t, err)
	assert.Equal(t, "tok2", tok.AccessToken)
	assert.Equal(t, int64(5060), tok.Expires)
}

func TestFetchRefreshTokenMissingFieldsIsConfigError(t *testing.T) {
	_, err := Fetch(context.Background(), &faketransport.Gateway{}, time.Now(), Source{
		Credentials: Credentials{RefreshToken: &RefreshTokenCredentials{ClientID: "cid"}},
	})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestFetchMetadataDefaultAccountAndBaseURL(t *testing.T) {
	gw := &faketransport.Gateway{
		DoFunc: func(ctx context.Context, req transport.Request) (transport.Response, error) {
			assert.Equal(t, "GET", req.Method)
			assert.Equal(t, "http://metadata.google.internal/computeMetadata/v1/instance/service-accounts/default/token", req.URL)
			assert.Equal(t, "Google", req.Headers["Metadata-Flavor"])
			return transport.Response{Status: 200, Body: []byte(`{"access_token":"mtok","expires_in":120}`)}, nil
		},
	}

	now := time.Unix(9000, 0)
	tok, err := Fetch(context.Background(), gw, now, Source{Credentials: Credentials{Metadata: &MetadataCredentials{}}})
	require.NoError(t, err)
	assert.Equal(t, "mtok", tok.AccessToken)
	assert.Equal(t, int64(9120), tok.Expires)
}

func TestFetchMetadataIdentityVariant(t *testing.T) {
	raw := makeRawIdentityJWS(t, "https://aud.example", "", 1_700_003_600)
	gw := &faketransport.Gateway{
		DoFunc: func(ctx context.Context, req transport.Request) (transport.Response, error) {
			assert.Contains(t, req.URL, "/identity?audience=https%3A%2F%2Faud.example")
			return transport.Response{Status: 200, Body: []byte(raw)}, nil
		},
	}

	tok, err := Fetch(context.Background(), gw, time.Now(), Source{Credentials: Credentials{Metadata: &MetadataCredentials{
		Audience: "https://aud.example",
	}}})
	require.NoError(t, err)
	assert.Equal(t, raw, tok.AccessToken)
	assert.Equal(t, "https://aud.example", tok.Scope)
}

type staticSubjectTokenSource string

func (s staticSubjectTokenSource) SubjectToken(context.Context) (string, error) {
	return string(s), nil
}

func TestFetchWorkloadIdentityFederationOnly(t *testing.T) {
	gw := &faketransport.Gateway{
		DoFunc: func(ctx context.Context, req transport.Request) (transport.Response, error) {
			form, _ := url.ParseQuery(string(req.Body))
			assert.Equal(t, grantTokenExchange, form.Get("grant_type"))
			assert.Equal(t, "ext-token", form.Get("subject_token"))
			return transport.Response{Status: 200, Body: []byte(`{"access_token":"fed-tok","expires_in":300}`)}, nil
		},
	}

	now := time.Unix(1000, 0)
	tok, err := Fetch(context.Background(), gw, now, Source{Credentials: Credentials{WorkloadIdentity: &WorkloadIdentityCredentials{
		TokenURL:           "https://sts.example/token",
		SubjectTokenSource: staticSubjectTokenSource("ext-token"),
	}}})
	require.NoError(t, err)
	assert.Equal(t, "fed-tok", tok.AccessToken)
	assert.Equal(t, int64(1300), tok.Expires)
}

func TestFetchWorkloadIdentityWithImpersonation(t *testing.T) {
	callN := 0
	gw := &faketransport.Gateway{
		DoFunc: func(ctx context.Context, req transport.Request) (transport.Response, error) {
			callN++
			if callN == 1 {
				return transport.Response{Status: 200, Body: []byte(`{"access_token":"fed-tok","expires_in":300}`)}, nil
			}
			assert.Equal(t, "Bearer fed-tok", req.Headers["Authorization"])
			return transport.Response{Status: 200, Body: []byte(`{"accessToken":"imp-tok","expireTime":"2030-01-01T00:00:00Z"}`)}, nil
		},
	}

	tok, err := Fetch(context.Background(), gw, time.Now(), Source{Credentials: Credentials{WorkloadIdentity: &WorkloadIdentityCredentials{
		TokenURL:                    "https://sts.example/token",
		ServiceAccountImpersonation: "https://iamcredentials.example/generateAccessToken",
		SubjectTokenSource:          staticSubjectTokenSource("ext-token"),
	}}})
	require.NoError(t, err)
	assert.Equal(t, "imp-tok", tok.AccessToken)
	assert.Equal(t, 2, callN)

	expectedExpiry, _ := time.Parse(time.RFC3339, "2030-01-01T00:00:00Z")
	assert.Equal(t, expectedExpiry.Unix(), tok.Expires)
}

func TestFetchRejectsAmbiguousSource(t *testing.T) {
	_, err := Fetch(context.Background(), &faketransport.Gateway{}, time.Now(), Source{Credentials: Credentials{
		RefreshToken: &RefreshTokenCredentials{ClientID: "a", ClientSecret: "b", RefreshToken: "c"},
		Metadata:     &MetadataCredentials{},
	}})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
}
