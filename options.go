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
	"time"

	"github.com/gauth-dev/gauth/internal/backoff"
	"github.com/gauth-dev/gauth/internal/transport"
)

// BackoffType selects the retry-delay algorithm a server's refresh loop
// uses. See WithBackoff.
type BackoffType = backoff.Type

const (
	BackoffRand    = backoff.Rand
	BackoffExp     = backoff.Exp
	BackoffRandExp = backoff.RandExp
)

// PrefetchMode controls whether Start blocks until the first mint
// attempt finishes.
type PrefetchMode int

const (
	// PrefetchAsync returns from Start immediately; the first mint runs
	// concurrently and Fetch rendezvous with it on demand.
	PrefetchAsync PrefetchMode = iota
	// PrefetchSync blocks Start until the first mint attempt completes,
	// successfully or not.
	PrefetchSync
)

const (
	defaultRefreshBefore = 300 * time.Second
	defaultMaxRetries    = 20
	defaultTimeout       = 5 * time.Second
)

type config struct {
	name          any
	source        Source
	gateway       transport.Gateway
	refreshBefore time.Duration
	maxRetries    int
	backoffType   BackoffType
	backoffMin    time.Duration
	backoffMax    time.Duration
	prefetch      PrefetchMode
}

func newConfig() config {
	return config{
		refreshBefore: defaultRefreshBefore,
		maxRetries:    defaultMaxRetries,
		backoffType:   backoff.DefaultType,
		backoffMin:    backoff.DefaultMin,
		backoffMax:    backoff.DefaultMax,
		prefetch:      PrefetchAsync,
	}
}

// Option configures a call to Start.
type Option func(*config)

// WithName sets the comparable identity the server is registered and
// looked up under. Required.
func WithName(name any) Option {
	return func(c *config) { c.name = name }
}

// WithSource sets the credential source the server mints from. Required;
// pass Default to defer to the ambient credential provider.
func WithSource(source Source) Option {
	return func(c *config) { c.source = source }
}

// WithGateway overrides the HTTP transport used to reach the token and
// metadata endpoints. Defaults to a transport.Default wrapping
// http.DefaultClient.
func WithGateway(gw transport.Gateway) Option {
	return func(c *config) { c.gateway = gw }
}

// WithRefreshBefore sets how long before expiry the server schedules its
// proactive refresh. Default 300s.
func WithRefreshBefore(d time.Duration) Option {
	return func(c *config) { c.refreshBefore = d }
}

// WithMaxRetries bounds the number of refresh retries attempted after
// the initial mint before the server terminates with FatalRefreshError.
// Default 20.
func WithMaxRetries(n int) Option {
	return func(c *config) { c.maxRetries = n }
}

// WithBackoff selects the delay algorithm and bounds used between
// retries. Default rand_exp, 1s-30s.
func WithBackoff(typ BackoffType, min, max time.Duration) Option {
	return func(c *config) {
		c.backoffType = typ
		c.backoffMin = min
		c.backoffMax = max
	}
}

// WithPrefetch selects whether Start blocks for the first mint. Default
// PrefetchAsync.
func WithPrefetch(mode PrefetchMode) Option {
	return func(c *config) { c.prefetch = mode }
}
