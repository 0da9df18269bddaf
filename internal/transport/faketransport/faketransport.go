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

// Package faketransport provides a scriptable transport.Gateway for
// tests that need to assert how many times the server minted a token,
// or simulate a flaky remote endpoint.
package faketransport

import (
	"context"
	"sync"

	"github.com/gauth-dev/gauth/internal/transport"
)

// Gateway is a transport.Gateway driven by a queue of canned responses,
// or by DoFunc when set. Safe for concurrent use.
type Gateway struct {
	mu       sync.Mutex
	DoFunc   func(ctx context.Context, req transport.Request) (transport.Response, error)
	Queue    []Result
	CallN    int
	Requests []transport.Request
}

// Result is one scripted reply; Err takes priority over Response when set.
type Result struct {
	Response transport.Response
	Err      error
}

func (g *Gateway) Do(ctx context.Context, req transport.Request) (transport.Response, error) {
	g.mu.Lock()
	g.CallN++
	g.Requests = append(g.Requests, req)
	fn := g.DoFunc
	var next Result
	var hasNext bool
	if len(g.Queue) > 0 {
		next = g.Queue[0]
		g.Queue = g.Queue[1:]
		hasNext = true
	}
	g.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if hasNext {
		return next.Response, next.Err
	}
	return transport.Response{Status: 200}, nil
}

// Calls returns the number of Do invocations so far.
func (g *Gateway) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.CallN
}
