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

// Package backoff generates bounded retry delays for the token server's
// refresh loop. It holds no clock and no goroutines; callers drive it.
package backoff

import (
	"fmt"
	"math/rand"
	"time"
)

// Type selects the delay-generation algorithm.
type Type string

const (
	Rand    Type = "rand"
	Exp     Type = "exp"
	RandExp Type = "rand_exp"
)

const (
	DefaultMin  = 1000 * time.Millisecond
	DefaultMax  = 30000 * time.Millisecond
	DefaultType = RandExp
)

// State is immutable; Next returns the next delay plus a successor state.
// The zero State is not valid; construct one with New.
type State struct {
	typ  Type
	min  time.Duration
	max  time.Duration
	prev time.Duration
	rng  *rand.Rand
}

// New builds a backoff State. min and max default to DefaultMin/DefaultMax
// and typ defaults to DefaultType when given zero values.
func New(typ Type, min, max time.Duration) (State, error) {
	if typ == "" {
		typ = DefaultType
	}
	if min == 0 {
		min = DefaultMin
	}
	if max == 0 {
		max = DefaultMax
	}
	if min < 0 {
		return State{}, fmt.Errorf("backoff: min must be >= 0, got %s", min)
	}
	if max < 0 {
		return State{}, fmt.Errorf("backoff: max must be >= 0, got %s", max)
	}
	if min > max {
		return State{}, fmt.Errorf("backoff: min (%s) must not exceed max (%s)", min, max)
	}
	switch typ {
	case Rand, Exp, RandExp:
	default:
		return State{}, fmt.Errorf("backoff: unknown type %q", typ)
	}
	return State{
		typ: typ,
		min: min,
		max: max,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Next returns the next delay in [min, max] and the successor state.
func (s State) Next() (time.Duration, State) {
	switch s.typ {
	case Exp:
		return s.nextExp()
	case Rand:
		return s.nextRand()
	default:
		return s.nextRandExp()
	}
}

func (s State) nextExp() (time.Duration, State) {
	if s.prev == 0 {
		s.prev = s.min
		return s.prev, s
	}
	next := s.prev * 2
	if next > s.max || next < s.prev {
		next = s.max
	}
	s.prev = next
	return next, s
}

func (s State) nextRand() (time.Duration, State) {
	return s.uniform(s.min, s.max), s
}

func (s State) nextRandExp() (time.Duration, State) {
	lower := s.max / 3
	if s.min > lower {
		lower = s.min
	}
	effPrev := s.prev
	if effPrev == 0 {
		effPrev = s.min
	}
	lo := effPrev
	if lower < lo {
		lo = lower
	}
	hi := effPrev * 3
	if hi > s.max || hi < effPrev {
		hi = s.max
	}
	if lo > hi {
		lo = hi
	}
	next := s.uniform(lo, hi)
	s.prev = next
	return next, s
}

func (s State) uniform(lo, hi time.Duration) time.Duration {
	if lo >= hi {
		return lo
	}
	span := int64(hi - lo)
	return lo + time.Duration(s.rng.Int63n(span+1))
}

// Reset returns a state whose next Next() call behaves as if freshly
// constructed. For Rand this is a no-op: the rng sequence continues.
func (s State) Reset() State {
	if s.typ == Rand {
		return s
	}
	s.prev = 0
	return s
}
