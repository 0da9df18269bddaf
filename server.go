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
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/gauth-dev/gauth/internal/ambient"
	"github.com/gauth-dev/gauth/internal/backoff"
	"github.com/gauth-dev/gauth/internal/mint"
	"github.com/gauth-dev/gauth/internal/registry"
	"github.com/gauth-dev/gauth/internal/transport"
	"github.com/gauth-dev/gauth/metrics"
)

var log logr.Logger = logr.Discard()

// SetLogger replaces the package-level logger used for server lifecycle
// and retry warnings. The default discards everything.
func SetLogger(l logr.Logger) { log = l }

func isStale(t mint.Token, now time.Time) bool { return t.Stale(now) }

var reg = registry.New[Source, mint.Token](isStale)

var servers sync.Map // name -> *Server

type state int

const (
	stateInit state = iota
	statePrefetching
	stateReady
	stateRefreshing
	stateBackoff
	stateTerminated
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "INIT"
	case statePrefetching:
		return "PREFETCHING"
	case stateReady:
		return "READY"
	case stateRefreshing:
		return "REFRESHING"
	case stateBackoff:
		return "BACKOFF"
	case stateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// Server is a running token lifecycle engine for one logical credential
// identity. Build one with Start; obtain tokens from it with the
// package-level Fetch, not directly.
type Server struct {
	name          any
	source        Source
	gateway       transport.Gateway
	refreshBefore time.Duration
	maxRetries    int

	requests chan chan fetchReply
	stop     chan struct{}
	stopped  chan struct{}
	cancel   context.CancelFunc
	stopOnce sync.Once
}

type fetchReply struct {
	token mint.Token
	err   error
}

type mintOutcome struct {
	token mint.Token
	err   error
}

// Start launches a server bound to the name and source given by opts and
// registers it in the package-level registry. With PrefetchSync the
// returned error reflects the first mint attempt's outcome; with the
// default PrefetchAsync it reflects only start-up validation.
func Start(opts ...Option) (*Server, error) {
	c := newConfig()
	for _, opt := range opts {
		opt(&c)
	}
	if c.name == nil {
		return nil, &ConfigError{Cause: fmt.Errorf("gauth: Start requires WithName")}
	}
	if isDefaultSource(c.source) {
		resolved, err := ambient.Resolve()
		if err != nil {
			return nil, &ConfigError{Cause: fmt.Errorf("resolving ambient credentials: %w", err)}
		}
		c.source = resolved
	}

	gw := c.gateway
	if gw == nil {
		gw = transport.NewDefault(nil)
	}

	bs, err := backoff.New(c.backoffType, c.backoffMin, c.backoffMax)
	if err != nil {
		return nil, &ConfigError{Cause: err}
	}

	reg.Register(c.name, c.source)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		name:          c.name,
		source:        c.source,
		gateway:       gw,
		refreshBefore: c.refreshBefore,
		maxRetries:    c.maxRetries,
		requests:      make(chan chan fetchReply),
		stop:          make(chan struct{}),
		stopped:       make(chan struct{}),
		cancel:        cancel,
	}

	if existing, loaded := servers.LoadOrStore(c.name, s); loaded {
		cancel()
		return existing.(*Server), &ConfigError{Cause: fmt.Errorf("gauth: server already started for name %v", c.name)}
	}

	var firstMint chan mintOutcome
	if c.prefetch == PrefetchSync {
		firstMint = make(chan mintOutcome, 1)
	}
	go s.run(ctx, bs, firstMint)

	if firstMint != nil {
		outcome := <-firstMint
		if outcome.err != nil {
			return s, outcome.err
		}
	}
	return s, nil
}

// Stop cancels the server's refresh loop. Any rendezvous in flight
// returns Cancelled. Stop blocks until the server's goroutine has
// exited or ctx is done, whichever comes first.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.cancel()
	})
	select {
	case <-s.stopped:
		servers.Delete(s.name)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the server's single-goroutine actor loop: it owns all mutable
// state for this name and is the only writer into the registry slot.
func (s *Server) run(ctx context.Context, bs backoff.State, firstMint chan mintOutcome) {
	defer close(s.stopped)

	var st state
	retries := 0
	var waiters []chan fetchReply
	var terminalErr error
	mintInFlight := false
	mintCh := make(chan mintOutcome, 1)
	var mintStartedAt time.Time

	var timer *time.Timer
	var timerC <-chan time.Time
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}
	armTimer := func(d time.Duration) {
		stopTimer()
		timer = time.NewTimer(d)
		timerC = timer.C
	}

	startMint := func() {
		if mintInFlight {
			return
		}
		mintInFlight = true
		mintStartedAt = time.Now()
		source, gw := s.source, s.gateway
		attemptID := uuid.NewString()
		log.V(1).Info("mint attempt starting", "name", s.name, "attempt", attemptID)
		go func() {
			tok, err := mint.Fetch(ctx, gw, time.Now(), source)
			mintCh <- mintOutcome{token: tok, err: err}
		}()
	}

	respondAll := func(tok mint.Token, err error) {
		for _, w := range waiters {
			w <- fetchReply{token: tok, err: err}
		}
		waiters = nil
	}

	setState := func(next state) {
		if st != stateInit {
			metrics.ServerState.WithLabelValues(nameString(s.name), st.String()).Set(0)
		}
		st = next
		metrics.ServerState.WithLabelValues(nameString(s.name), st.String()).Set(1)
	}

	setState(statePrefetching)
	startMint()

	for {
		select {
		case <-ctx.Done():
			respondAll(mint.Token{}, Cancelled)
			stopTimer()
			return

		case <-s.stop:
			respondAll(mint.Token{}, Cancelled)
			stopTimer()
			return

		case reply := <-s.requests:
			if terminalErr != nil {
				reply <- fetchReply{err: terminalErr}
				continue
			}
			if entry := reg.Snapshot(s.name, time.Now()); entry.Token != nil {
				reply <- fetchReply{token: *entry.Token}
				continue
			}
			waiters = append(waiters, reply)
			startMint()

		case outcome := <-mintCh:
			mintInFlight = false
			if firstMint != nil {
				firstMint <- outcome
				firstMint = nil
			}
			metrics.ObserveMint(nameString(s.name), outcome.err, time.Since(mintStartedAt).Seconds())

			if outcome.err == nil {
				reg.Publish(s.name, outcome.token)
				retries = 0
				bs = bs.Reset()
				setState(stateReady)
				respondAll(outcome.token, nil)

				delay := refreshDelay(outcome.token, s.refreshBefore, time.Now())
				metrics.NextRefreshSeconds.WithLabelValues(nameString(s.name)).Set(delay.Seconds())
				armTimer(delay)
				continue
			}

			log.V(1).Info("mint attempt failed", "name", s.name, "retries", retries, "max_retries", s.maxRetries, "error", outcome.err)
			if retries >= s.maxRetries {
				terminalErr = &FatalRefreshError{Name: s.name, Last: outcome.err}
				log.Error(outcome.err, "server exhausted retries, terminating", "name", s.name)
				setState(stateTerminated)
				stopTimer()
				respondAll(mint.Token{}, terminalErr)
				continue
			}
			setState(stateBackoff)
			d, next := bs.Next()
			bs = next
			armTimer(d)

		case <-timerC:
			timerC = nil
			if st == stateBackoff {
				retries++
			}
			setState(stateRefreshing)
			startMint()
		}
	}
}

// refreshDelay computes the proactive-refresh wait: the time until the
// token expires, minus the configured refresh_before margin, floored at
// zero so an already-near-stale token triggers an immediate refresh.
func refreshDelay(t mint.Token, refreshBefore time.Duration, now time.Time) time.Duration {
	expires := time.Unix(t.Expires, 0)
	d := expires.Sub(now) - refreshBefore
	if d < 0 {
		return 0
	}
	return d
}

func nameString(name any) string {
	return fmt.Sprintf("%v", name)
}

// Fetch returns a Token for name, minting or refreshing through the
// owning server if the registry has no fresh cached entry. timeout is
// the maximum time to wait on a server rendezvous; zero selects a
// 5-second default. A cache hit returns immediately without a network
// round-trip or a channel send.
func Fetch(name any, timeout time.Duration) (Token, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if entry := reg.Snapshot(name, time.Now()); entry.Token != nil {
		return *entry.Token, nil
	}

	v, ok := servers.Load(name)
	if !ok {
		return Token{}, &ConfigError{Cause: fmt.Errorf("gauth: no server started for name %v", name)}
	}
	s := v.(*Server)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	reply := make(chan fetchReply, 1)
	select {
	case s.requests <- reply:
	case <-s.stopped:
		return Token{}, Cancelled
	case <-deadline.C:
		return Token{}, &TimeoutError{Name: name}
	}

	select {
	case r := <-reply:
		return r.token, r.err
	case <-deadline.C:
		return Token{}, &TimeoutError{Name: name}
	}
}

// FetchOrError is an alias for Fetch, kept for callers that prefer the
// explicit name: Go's error return already propagates the failure, so
// there is no separate non-raising variant to distinguish it from.
func FetchOrError(name any, timeout time.Duration) (Token, error) {
	return Fetch(name, timeout)
}
