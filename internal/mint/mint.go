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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gauth-dev/gauth/internal/jwtsign"
	"github.com/gauth-dev/gauth/internal/transport"
)

const (
	defaultMetadataAccount = "default"
	defaultMetadataBaseURL = "http://metadata.google.internal"

	grantJWTBearer     = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	grantRefreshToken  = "refresh_token"
	grantTokenExchange = "urn:ietf:params:oauth:token-exchange"

	subjectTokenTypeJWT      = "urn:ietf:params:oauth:token-type:jwt"
	requestedTokenTypeAccess = "urn:ietf:params:oauth:token-type:access_token"
	formContentType          = "application/x-www-form-urlencoded"
)

// Fetch performs exactly one mint attempt for source and is free of
// caching, timers, and retry: that is the server's job.
func Fetch(ctx context.Context, gw transport.Gateway, now time.Time, source Source) (Token, error) {
	count := 0
	if source.Credentials.ServiceAccount != nil {
		count++
	}
	if source.Credentials.RefreshToken != nil {
		count++
	}
	if source.Credentials.Metadata != nil {
		count++
	}
	if source.Credentials.WorkloadIdentity != nil {
		count++
	}
	switch {
	case count == 0:
		return Token{}, &ConfigError{Cause: fmt.Errorf("source has no credentials set")}
	case count > 1:
		return Token{}, &ConfigError{Cause: fmt.Errorf("source has more than one credential kind set")}
	}

	switch {
	case source.Credentials.ServiceAccount != nil:
		return fetchServiceAccount(ctx, gw, now, *source.Credentials.ServiceAccount, source.Options)
	case source.Credentials.RefreshToken != nil:
		return fetchRefreshToken(ctx, gw, now, *source.Credentials.RefreshToken, source.Options)
	case source.Credentials.Metadata != nil:
		return fetchMetadata(ctx, gw, now, *source.Credentials.Metadata, source.Options)
	default:
		return fetchWorkloadIdentity(ctx, gw, now, *source.Credentials.WorkloadIdentity, source.Options)
	}
}

func fetchServiceAccount(ctx context.Context, gw transport.Gateway, now time.Time, sa ServiceAccountCredentials, opts Options) (Token, error) {
	if sa.ClientEmail == "" || sa.PrivateKeyPEM == "" {
		return Token{}, &ConfigError{Cause: fmt.Errorf("service account source requires client_email and private_key_pem")}
	}

	overrides := make(map[string]string, len(opts.Claims)+1)
	for k, v := range opts.Claims {
		overrides[k] = v
	}
	effectiveScope := overrides["scope"]
	_, hasTargetAudience := overrides["target_audience"]
	if effectiveScope == "" && !hasTargetAudience {
		scopes := opts.Scopes
		if len(scopes) == 0 {
			scopes = []string{jwtsign.DefaultScope}
		}
		effectiveScope = strings.Join(scopes, " ")
		overrides["scope"] = effectiveScope
	}

	assertion, err := jwtsign.Sign(now, sa.ClientEmail, sa.TokenURI, sa.PrivateKeyPEM, overrides)
	if err != nil {
		return Token{}, asCryptoError(err)
	}

	tokenURL := opts.URL
	if tokenURL == "" {
		tokenURL = sa.TokenURI
	}
	if tokenURL == "" {
		tokenURL = jwtsign.DefaultTokenURI
	}

	body := url.Values{
		"grant_type": {grantJWTBearer},
		"assertion":  {assertion},
	}.Encode()

	resp, err := doForm(ctx, gw, tokenURL, body)
	if err != nil {
		return Token{}, err
	}
	if resp.Status != 200 {
		return Token{}, &UnexpectedStatus{Status: resp.Status, Body: string(resp.Body)}
	}

	if gjson.GetBytes(resp.Body, "access_token").Exists() {
		return decodeAccessTokenResponse(resp.Body, now, effectiveScope, overrides["sub"])
	}
	if idToken := gjson.GetBytes(resp.Body, "id_token"); idToken.Exists() {
		return decodeIdentityToken(idToken.String())
	}
	return Token{}, &DecodeError{Cause: fmt.Errorf("response has neither access_token nor id_token")}
}

func fetchRefreshToken(ctx context.Context, gw transport.Gateway, now time.Time, rt RefreshTokenCredentials, opts Options) (Token, error) {
	if rt.ClientID == "" || rt.ClientSecret == "" || rt.RefreshToken == "" {
		return Token{}, &ConfigError{Cause: fmt.Errorf("refresh token source requires client_id, client_secret and refresh_token")}
	}

	tokenURL := opts.URL
	if tokenURL == "" {
		tokenURL = jwtsign.DefaultTokenURI
	}

	body := url.Values{
		"grant_type":    {grantRefreshToken},
		"refresh_token": {rt.RefreshToken},
		"client_id":     {rt.ClientID},
		"client_secret": {rt.ClientSecret},
	}.Encode()

	resp, err := doForm(ctx, gw, tokenURL, body)
	if err != nil {
		return Token{}, err
	}
	if resp.Status != 200 {
		return Token{}, &UnexpectedStatus{Status: resp.Status, Body: string(resp.Body)}
	}
	if !gjson.GetBytes(resp.Body, "access_token").Exists() {
		return Token{}, &DecodeError{Cause: fmt.Errorf("response is missing access_token")}
	}
	return decodeAccessTokenResponse(resp.Body, now, "", "")
}

func fetchMetadata(ctx context.Context, gw transport.Gateway, now time.Time, md MetadataCredentials, _ Options) (Token, error) {
	account := md.Account
	if account == "" {
		account = defaultMetadataAccount
	}
	baseURL := md.BaseURL
	if baseURL == "" {
		baseURL = defaultMetadataBaseURL
	}

	path := fmt.Sprintf("%s/computeMetadata/v1/instance/service-accounts/%s/token", baseURL, account)
	if md.Audience != "" {
		path = fmt.Sprintf("%s/computeMetadata/v1/instance/service-accounts/%s/identity?audience=%s",
			baseURL, account, url.QueryEscape(md.Audience))
	}

	resp, err := gw.Do(ctx, transport.Request{
		Method:  "GET",
		URL:     path,
		Headers: map[string]string{"Metadata-Flavor": "Google"},
	})
	if err != nil {
		return Token{}, asTransportError(err)
	}
	if resp.Status != 200 {
		return Token{}, &UnexpectedStatus{Status: resp.Status, Body: string(resp.Body)}
	}

	if md.Audience != "" {
		return decodeIdentityToken(string(resp.Body))
	}
	if !gjson.GetBytes(resp.Body, "access_token").Exists() {
		return Token{}, &DecodeError{Cause: fmt.Errorf("metadata response is missing access_token")}
	}
	return decodeAccessTokenResponse(resp.Body, now, "", "")
}

func fetchWorkloadIdentity(ctx context.Context, gw transport.Gateway, now time.Time, wi WorkloadIdentityCredentials, opts Options) (Token, error) {
	if wi.TokenURL == "" || wi.SubjectTokenSource == nil {
		return Token{}, &ConfigError{Cause: fmt.Errorf("workload identity source requires token_url and subject_token_source")}
	}

	subjectToken, err := wi.SubjectTokenSource.SubjectToken(ctx)
	if err != nil {
		return Token{}, &ConfigError{Cause: fmt.Errorf("reading subject token: %w", err)}
	}

	scope := strings.Join(opts.Scopes, " ")
	if scope == "" {
		scope = jwtsign.DefaultScope
	}
	body := url.Values{
		"grant_type":           {grantTokenExchange},
		"subject_token_type":   {subjectTokenTypeJWT},
		"requested_token_type": {requestedTokenTypeAccess},
		"subject_token":        {subjectToken},
		"scope":                {scope},
	}.Encode()

	resp, err := doForm(ctx, gw, wi.TokenURL, body)
	if err != nil {
		return Token{}, err
	}
	if resp.Status != 200 {
		return Token{}, &UnexpectedStatus{Status: resp.Status, Body: string(resp.Body)}
	}
	if !gjson.GetBytes(resp.Body, "access_token").Exists() {
		return Token{}, &DecodeError{Cause: fmt.Errorf("sts exchange response is missing access_token")}
	}
	federationToken, err := decodeAccessTokenResponse(resp.Body, now, scope, "")
	if err != nil {
		return Token{}, err
	}

	if wi.ServiceAccountImpersonation == "" {
		return federationToken, nil
	}

	impResp, err := gw.Do(ctx, transport.Request{
		Method: "POST",
		URL:    wi.ServiceAccountImpersonation,
		Headers: map[string]string{
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + federationToken.AccessToken,
		},
		Body: []byte(`{"scope":["` + jwtsign.DefaultScope + `"]}`),
	})
	if err != nil {
		return Token{}, asTransportError(err)
	}
	if impResp.Status != 200 {
		return Token{}, &UnexpectedStatus{Status: impResp.Status, Body: string(impResp.Body)}
	}

	accessToken := gjson.GetBytes(impResp.Body, "accessToken").String()
	expireTime := gjson.GetBytes(impResp.Body, "expireTime").String()
	if accessToken == "" || expireTime == "" {
		return Token{}, &DecodeError{Cause: fmt.Errorf("impersonation response is missing accessToken or expireTime")}
	}
	expiry, err := time.Parse(time.RFC3339, expireTime)
	if err != nil {
		return Token{}, &DecodeError{Cause: fmt.Errorf("parsing expireTime: %w", err)}
	}

	return Token{
		AccessToken: accessToken,
		Type:        "Bearer",
		Scope:       scope,
		Expires:     expiry.Unix(),
	}, nil
}

func doForm(ctx context.Context, gw transport.Gateway, tokenURL, body string) (transport.Response, error) {
	resp, err := gw.Do(ctx, transport.Request{
		Method:  "POST",
		URL:     tokenURL,
		Headers: map[string]string{"Content-Type": formContentType},
		Body:    []byte(body),
	})
	if err != nil {
		return transport.Response{}, asTransportError(err)
	}
	return resp, nil
}

func decodeAccessTokenResponse(body []byte, now time.Time, requestedScope, requestedSub string) (Token, error) {
	accessToken := gjson.GetBytes(body, "access_token").String()
	if accessToken == "" {
		return Token{}, &DecodeError{Cause: fmt.Errorf("response is missing access_token")}
	}
	tokenType := gjson.GetBytes(body, "token_type").String()
	if tokenType == "" {
		tokenType = "Bearer"
	}
	expiresIn := gjson.GetBytes(body, "expires_in").Int()

	scope := gjson.GetBytes(body, "scope").String()
	if scope == "" {
		scope = requestedScope
	}
	sub := gjson.GetBytes(body, "sub").String()
	if sub == "" {
		sub = requestedSub
	}

	return Token{
		AccessToken: accessToken,
		Type:        tokenType,
		Scope:       scope,
		Sub:         sub,
		Expires:     now.Unix() + expiresIn,
	}, nil
}

// decodeIdentityToken decodes the payload of a compact JWS without
// verifying its signature: this engine never validates the authorization
// server's own signature over a token it just received.
func decodeIdentityToken(compact string) (Token, error) {
	parts := strings.Split(compact, ".")
	if len(parts) != 3 {
		return Token{}, &DecodeError{Cause: fmt.Errorf("identity token is not a compact JWS")}
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Token{}, &DecodeError{Cause: fmt.Errorf("decoding identity token payload: %w", err)}
	}

	var claims struct {
		Exp int64  `json:"exp"`
		Aud string `json:"aud"`
		Sub string `json:"sub"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Token{}, &DecodeError{Cause: fmt.Errorf("unmarshalling identity token payload: %w", err)}
	}

	return Token{
		AccessToken: compact,
		Type:        "Bearer",
		Scope:       claims.Aud,
		Sub:         claims.Sub,
		Expires:     claims.Exp,
	}, nil
}

func asTransportError(err error) error {
	if terr, ok := err.(*transport.TransportError); ok {
		return &TransportError{Cause: terr.Cause}
	}
	return &TransportError{Cause: err}
}

func asCryptoError(err error) error {
	if cerr, ok := err.(*jwtsign.CryptoError); ok {
		return &CryptoError{Cause: cerr.Cause}
	}
	return &CryptoError{Cause: err}
}
