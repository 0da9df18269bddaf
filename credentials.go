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

package gauth

import "github.com/gauth-dev/gauth/internal/mint"

// Credentials is a closed, tagged variant over the four supported
// credential flows. Exactly one of the embedded pointers is non-nil.
type Credentials = mint.Credentials

// ServiceAccountCredentials mints tokens via the JWT-bearer grant.
type ServiceAccountCredentials = mint.ServiceAccountCredentials

// RefreshTokenCredentials mints tokens via the refresh_token grant.
type RefreshTokenCredentials = mint.RefreshTokenCredentials

// MetadataCredentials reads from the GCE instance metadata server.
type MetadataCredentials = mint.MetadataCredentials

// WorkloadIdentityCredentials exchanges an external subject token for a
// Google access token, optionally impersonating a service account.
type WorkloadIdentityCredentials = mint.WorkloadIdentityCredentials

// SubjectTokenSource supplies the external subject token for the first
// leg of a workload-identity exchange.
type SubjectTokenSource = mint.SubjectTokenSource

// Options customizes how a Source mints a token; Claims overrides the
// JWT assertion defaults and recognizes sub, scope, target_audience,
// aud.
type Options = mint.Options

// Source pairs credentials with minting options.
type Source = mint.Source

// Default asks the ambient credential provider to resolve a Source from
// the environment (GOOGLE_APPLICATION_CREDENTIALS, ...), the way
// google.FindDefaultCredentials does.
var Default = Source{}

// isDefaultSource reports whether s is the Default sentinel.
func isDefaultSource(s Source) bool {
	return s.Credentials == (Credentials{}) && s.Options.URL == "" &&
		s.Options.Scopes == nil && s.Options.Claims == nil && s.Options.Audience == ""
}
