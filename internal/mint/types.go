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

// Package mint implements the TokenFetcher (C4): source-aware, stateless
// minting of one token per call. Each call is one network round trip,
// except workload identity with service-account impersonation, which
// makes two. It owns no cache, no timers, and no retry loop; the server
// layer owns those.
package mint

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// Token is an immutable bearer credential. Expires is an absolute unix
// epoch second populated from the mint response's expires_in relative
// to wall clock at mint time.
type Token struct {
	AccessToken string
	Type        string
	Scope       string
	Sub         string
	Expires     int64
}

// Stale reports whether the token is expired as of now: now >= Expires.
func (t Token) Stale(now time.Time) bool {
	return now.Unix() >= t.Expires
}

// OAuth2 converts Token to a golang.org/x/oauth2.Token carrying the access
// token, type and expiry. Scope and Sub are not carried over, and
// *gauth.Server does not itself implement oauth2.TokenSource.
func (t Token) OAuth2() *oauth2.Token {
	tokenType := t.Type
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   tokenType,
		Expiry:      time.Unix(t.Expires, 0),
	}
}

// SubjectTokenSource supplies the external subject token for the first
// leg of a workload-identity exchange.
type SubjectTokenSource interface {
	SubjectToken(ctx context.Context) (string, error)
}

// Credentials is a closed, tagged variant over the four supported
// credential flows. Exactly one of the embedded pointers is non-nil.
type Credentials struct {
	ServiceAccount   *ServiceAccountCredentials
	RefreshToken     *RefreshTokenCredentials
	Metadata         *MetadataCredentials
	WorkloadIdentity *WorkloadIdentityCredentials
}

// ServiceAccountCredentials mints tokens via the JWT-bearer grant.
type ServiceAccountCredentials struct {
	ClientEmail   string
	PrivateKeyPEM string
	TokenURI      string
}

// RefreshTokenCredentials mints tokens via the refresh_token grant.
type RefreshTokenCredentials struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// MetadataCredentials reads from the GCE instance metadata server.
type MetadataCredentials struct {
	Account  string
	BaseURL  string
	Audience string
}

// WorkloadIdentityCredentials exchanges an external subject token for a
// Google access token, optionally impersonating a service account.
type WorkloadIdentityCredentials struct {
	TokenURL                    string
	ServiceAccountImpersonation string
	SubjectTokenSource          SubjectTokenSource
}

// Options customizes how a Source mints a token; Claims overrides the
// JWT assertion defaults and recognizes sub, scope, target_audience,
// aud.
type Options struct {
	URL      string
	Scopes   []string
	Claims   map[string]string
	Audience string
}

// Source pairs credentials with minting options.
type Source struct {
	Credentials Credentials
	Options     Options
}
