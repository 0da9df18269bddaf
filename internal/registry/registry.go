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

// Package registry is the concurrent name->token ledger (C5). A single
// owning server publishes into a slot; any number of readers take a
// snapshot without blocking the writer or each other.
package registry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Entry is what Snapshot hands back: the static config the server was
// started with, and the latest token if one has been minted and is not
// yet expired.
type Entry[Config any, Token any] struct {
	Config Config
	Token  *Token
	Found  bool
}

type slot[Config any, Token any] struct {
	config Config
	token  atomic.Pointer[Token]
}

// Registry maps an opaque, comparable name to a config/token slot.
// The zero value is not usable; use New.
type Registry[Config any, Token any] struct {
	mu    sync.RWMutex
	slots map[any]*slot[Config, Token]

	// expired reports whether a token is stale given "now"; injected so
	// the registry never imports the token package and stays generic.
	expired func(Token, time.Time) bool
}

// New builds a Registry. expired must report whether a given token is
// stale as of the provided wall-clock time.
func New[Config any, Token any](expired func(Token, time.Time) bool) *Registry[Config, Token] {
	return &Registry[Config, Token]{
		slots:   make(map[any]*slot[Config, Token]),
		expired: expired,
	}
}

// Register idempotently associates name with config. Calling it again
// with the same name is a no-op on the stored config (first write wins)
// so a concurrent racer can't clobber an in-flight server's settings.
func (r *Registry[Config, Token]) Register(name any, config Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.slots[name]; ok {
		return
	}
	r.slots[name] = &slot[Config, Token]{config: config}
}

// Publish atomically replaces the cached token for name. Publish never
// blocks a concurrent Snapshot.
func (r *Registry[Config, Token]) Publish(name any, token Token) {
	r.mu.RLock()
	s, ok := r.slots[name]
	r.mu.RUnlock()
	if !ok {
		return
	}
	s.token.Store(&token)
}

// Snapshot returns the current config/token pair for name. A token past
// its expiry is treated as absent, per the registry's stale-read
// invariant.
func (r *Registry[Config, Token]) Snapshot(name any, now time.Time) Entry[Config, Token] {
	r.mu.RLock()
	s, ok := r.slots[name]
	r.mu.RUnlock()
	if !ok {
		return Entry[Config, Token]{}
	}

	tok := s.token.Load()
	if tok == nil || r.expired(*tok, now) {
		return Entry[Config, Token]{Config: s.config, Found: true}
	}
	return Entry[Config, Token]{Config: s.config, Token: tok, Found: true}
}
