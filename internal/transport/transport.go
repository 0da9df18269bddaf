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

// Package transport defines the single-call HTTP contract that
// TokenFetcher drives, plus a net/http-backed default implementation.
// Implementations never retry; that is the server's job.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// Request is the shape of one outbound call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// Response is the shape of one inbound reply. A non-2xx status is not an
// error: it is surfaced via Status for the caller to interpret.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

// TransportError wraps a failure to complete the round trip itself
// (DNS, dial, TLS, context cancellation) as opposed to an HTTP-level
// error status.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %s", e.Cause) }
func (e *TransportError) Unwrap() error { return e.Cause }

// Gateway performs exactly one HTTP round trip per Do call.
type Gateway interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// Default is a Gateway backed by an *http.Client. It is the production
// implementation injected by callers that don't supply their own.
type Default struct {
	Client *http.Client
}

// NewDefault returns a Default gateway using http.DefaultClient when
// client is nil.
func NewDefault(client *http.Client) *Default {
	if client == nil {
		client = http.DefaultClient
	}
	return &Default{Client: client}
}

func (d *Default) Do(ctx context.Context, req Request) (Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return Response{}, &TransportError{Cause: err}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := d.Client.Do(httpReq)
	if err != nil {
		return Response{}, &TransportError{Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, &TransportError{Cause: err}
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return Response{Status: resp.StatusCode, Headers: headers, Body: data}, nil
}
