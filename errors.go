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

import (
	"errors"
	"fmt"

	"github.com/gauth-dev/gauth/internal/mint"
)

// TransportError wraps an HTTP round-trip failure. Retried.
type TransportError = mint.TransportError

// UnexpectedStatus is returned when the mint endpoint replies with a
// non-200 status. Retried.
type UnexpectedStatus = mint.UnexpectedStatus

// DecodeError is returned when a 200 response's body can't be parsed or
// is missing required fields. Retried.
type DecodeError = mint.DecodeError

// CryptoError is returned when a PEM key fails to parse or signing
// fails. Retried.
type CryptoError = mint.CryptoError

// ConfigError is returned when a Source is malformed: missing required
// fields or non-string claim keys. Retried (a persistent ConfigError
// eventually exhausts retries and becomes fatal).
type ConfigError = mint.ConfigError

// TimeoutError is returned when Fetch's rendezvous with the owning
// server doesn't complete within the caller's timeout. The server's
// in-flight mint continues; a later caller may benefit from it.
type TimeoutError struct {
	Name any
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("gauth: fetch timed out for %v", e.Name) }

// FatalRefreshError is returned once a server has exhausted max_retries
// on its refresh loop and has transitioned to TERMINATED.
type FatalRefreshError struct {
	Name any
	Last error
}

func (e *FatalRefreshError) Error() string {
	return fmt.Sprintf("gauth: server %v terminated after exhausting retries: %s", e.Name, e.Last)
}
func (e *FatalRefreshError) Unwrap() error { return e.Last }

// Cancelled is returned when a server shuts down while a caller is
// rendezvousing with it.
var Cancelled = errors.New("gauth: server cancelled")
