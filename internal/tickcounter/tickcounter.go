// Copyright 2025 samber.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://github.com/samber/ro/blob/main/licenses/LICENSE.apache.md
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package tickcounter implements the publisher's visibility clock: a
// monotonically increasing counter used to realize the as-of-add rule.
//
// It is generic over its backing unsigned integer so that the wraparound
// behavior flagged as a correctness hole for 32-bit counters can be
// exercised directly in tests against a narrow type, while production code
// uses Counter64, a 64-bit counter wide enough to avoid wraparound during a
// process lifetime.
package tickcounter

import (
	"sync/atomic"

	"golang.org/x/exp/constraints"
)

// Counter is a monotonically increasing, concurrency-safe tick source.
type Counter[T constraints.Unsigned] struct {
	value atomic.Uint64
}

// Next atomically increments the counter and returns the new value.
func (c *Counter[T]) Next() T {
	return T(c.value.Add(1))
}

// Current returns the counter's current value without incrementing it.
func (c *Counter[T]) Current() T {
	return T(c.value.Load())
}

// Counter64 is the production tick counter: 64 bits is wide enough that
// wraparound cannot occur within a process lifetime (spec §9).
type Counter64 = Counter[uint64]
