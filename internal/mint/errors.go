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
	"errors"
	"fmt"
)

// TransportError wraps an HTTP round-trip failure. Retried by the
// server.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string { return fmt.Sprintf("gauth: transport error: %s", e.Cause) }
func (e *TransportError) Unwrap() error { return e.Cause }

// UnexpectedStatus is returned when the mint endpoint replies with a
// non-200 status. Retried by the server.
type UnexpectedStatus struct {
	Status int
	Body   string
}

func (e *UnexpectedStatus) Error() string {
	return fmt.Sprintf("gauth: unexpected status %d: %s", e.Status, e.Body)
}

// DecodeError is returned when a 200 response's body can't be parsed or
// is missing required fields. Retried by the server.
type DecodeError struct {
	Cause error
}

func (e *DecodeError) Error() string { return fmt.Sprintf("gauth: decode error: %s", e.Cause) }
func (e *DecodeError) Unwrap() error { return e.Cause }

// CryptoError is returned when a PEM key fails to parse or signing
// fails. Retried by the server.
type CryptoError struct {
	Cause error
}

func (e *CryptoError) Error() string { return fmt.Sprintf("gauth: crypto error: %s", e.Cause) }
func (e *CryptoError) Unwrap() error { return e.Cause }

// ConfigError is returned when a Source is malformed: missing required
// fields or non-string claim keys. Retried by the server (a persistent
// ConfigError eventually exhausts retries and becomes fatal).
type ConfigError struct {
	Cause error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("gauth: config error: %s", e.Cause) }
func (e *ConfigError) Unwrap() error { return e.Cause }

// Retryable reports whether err is one of the mint-error kinds the
// server retries with backoff.
func Retryable(err error) bool {
	var t *TransportError
	var u *UnexpectedStatus
	var d *DecodeError
	var c *CryptoError
	var cfg *ConfigError
	return errors.As(err, &t) || errors.As(err, &u) || errors.As(err, &d) ||
		errors.As(err, &c) || errors.As(err, &cfg)
}
