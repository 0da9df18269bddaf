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

// Package ambient resolves a mint.Source from the environment the way
// golang.org/x/oauth2/google.FindDefaultCredentials does, without
// pulling in that package's ADC machinery: read
// GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_APPLICATION_CREDENTIALS_JSON,
// sniff the credential kind off its JSON shape, and project a
// mint.Source.
package ambient

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gauth-dev/gauth/internal/mint"
)

const (
	envCredentialsFile = "GOOGLE_APPLICATION_CREDENTIALS"
	envCredentialsJSON = "GOOGLE_APPLICATION_CREDENTIALS_JSON"
	envProject         = "GOOGLE_CLOUD_PROJECT"
	envProjectLegacy   = "GCLOUD_PROJECT"
	envProjectDevshell = "DEVSHELL_PROJECT_ID"
)

// credentialFile mirrors the handful of keys gauth cares about across
// the three JSON shapes documented for Application Default Credentials.
// Unrecognized keys are ignored rather than rejected.
type credentialFile struct {
	Type             string `json:"type"`
	ClientEmail      string `json:"client_email"`
	PrivateKey       string `json:"private_key"`
	TokenURI         string `json:"token_uri"`
	ClientID         string `json:"client_id"`
	ClientSecret     string `json:"client_secret"`
	RefreshToken     string `json:"refresh_token"`
	TokenURL         string `json:"token_url"`
	ImpersonationURL string `json:"service_account_impersonation_url"`
}

const (
	kindServiceAccount  = "service_account"
	kindAuthorizedUser  = "authorized_user"
	kindExternalAccount = "external_account"
)

// Resolve implements the lookup cascade: inline JSON, then a JSON file
// path, in that order, matching the precedence google.FindDefaultCredentials
// documents for its first two sources. Workload identity's external
// subject token source and GCE metadata aren't sniffable from env alone,
// so callers that need those flows must build a mint.Source explicitly.
func Resolve() (mint.Source, error) {
	if raw := os.Getenv(envCredentialsJSON); raw != "" {
		src, err := FromJSON([]byte(raw))
		if err != nil {
			return mint.Source{}, fmt.Errorf("ambient: %s: %w", envCredentialsJSON, err)
		}
		return src, nil
	}
	if path := os.Getenv(envCredentialsFile); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return mint.Source{}, fmt.Errorf("ambient: reading %s: %w", envCredentialsFile, err)
		}
		src, err := FromJSON(raw)
		if err != nil {
			return mint.Source{}, fmt.Errorf("ambient: %s: %w", envCredentialsFile, err)
		}
		return src, nil
	}
	return mint.Source{}, fmt.Errorf("ambient: neither %s nor %s is set", envCredentialsJSON, envCredentialsFile)
}

// FromJSON sniffs a credential JSON document's kind and projects it to a
// mint.Source, the way google.CredentialsFromJSON branches on "type".
func FromJSON(raw []byte) (mint.Source, error) {
	var f credentialFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return mint.Source{}, fmt.Errorf("decoding credential JSON: %w", err)
	}
	switch f.Type {
	case kindServiceAccount:
		if f.ClientEmail == "" || f.PrivateKey == "" {
			return mint.Source{}, fmt.Errorf("service_account JSON missing client_email or private_key")
		}
		return mint.Source{Credentials: mint.Credentials{ServiceAccount: &mint.ServiceAccountCredentials{
			ClientEmail:   f.ClientEmail,
			PrivateKeyPEM: f.PrivateKey,
			TokenURI:      f.TokenURI,
		}}}, nil
	case kindAuthorizedUser:
		if f.ClientID == "" || f.ClientSecret == "" || f.RefreshToken == "" {
			return mint.Source{}, fmt.Errorf("authorized_user JSON missing client_id, client_secret, or refresh_token")
		}
		return mint.Source{Credentials: mint.Credentials{RefreshToken: &mint.RefreshTokenCredentials{
			ClientID:     f.ClientID,
			ClientSecret: f.ClientSecret,
			RefreshToken: f.RefreshToken,
		}}}, nil
	case kindExternalAccount:
		if f.TokenURL == "" {
			return mint.Source{}, fmt.Errorf("external_account JSON missing token_url")
		}
		return mint.Source{Credentials: mint.Credentials{WorkloadIdentity: &mint.WorkloadIdentityCredentials{
			TokenURL:                    f.TokenURL,
			ServiceAccountImpersonation: f.ImpersonationURL,
		}}}, nil
	default:
		return mint.Source{}, fmt.Errorf("unrecognized credential type %q", f.Type)
	}
}

// ProjectHint returns the first project ID found across the three
// environment variables the ecosystem uses, preferring the
// general-purpose one over Cloud Shell's.
func ProjectHint() string {
	for _, name := range []string{envProject, envProjectLegacy, envProjectDevshell} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
