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

// Package jwtsign builds and RS256-signs the JWT-bearer assertion used
// to mint service-account tokens. It is a pure function of its inputs:
// no caching, no network, no retry.
package jwtsign

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultTokenURI = "https://www.googleapis.com/oauth2/v4/token"
	DefaultScope    = "https://www.googleapis.com/auth/cloud-platform"
	defaultLifetime = time.Hour
)

// CryptoError wraps a PEM parse or signing failure.
type CryptoError struct {
	Cause error
}

func (e *CryptoError) Error() string { return fmt.Sprintf("jwtsign: %s", e.Cause) }
func (e *CryptoError) Unwrap() error { return e.Cause }

// Sign builds the default claim set, merges overrides on top, and
// returns a compact RS256 JWS. clientEmail and tokenURI seed the
// defaults (iss, aud); overrides may replace any claim, including
// those two.
//
// now is injected so callers can make iat/exp deterministic in tests.
func Sign(now time.Time, clientEmail, tokenURI, privateKeyPEM string, overrides map[string]string) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return "", &CryptoError{Cause: err}
	}

	claims := defaultClaims(now, clientEmail, tokenURI)
	for k, v := range overrides {
		claims[k] = v
	}
	if _, hasScope := overrides["scope"]; !hasScope {
		if _, hasAud := overrides["target_audience"]; !hasAud {
			claims["scope"] = DefaultScope
		}
	}

	return signClaims(claims, key)
}

func defaultClaims(now time.Time, clientEmail, tokenURI string) jwt.MapClaims {
	aud := tokenURI
	if aud == "" {
		aud = DefaultTokenURI
	}
	return jwt.MapClaims{
		"iss": clientEmail,
		"aud": aud,
		"iat": now.Unix(),
		"exp": now.Add(defaultLifetime).Unix(),
	}
}

func signClaims(claims jwt.MapClaims, key *rsa.PrivateKey) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", &CryptoError{Cause: err}
	}
	return signed, nil
}
