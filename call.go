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

package listenerbus

import (
	"context"
	"sync/atomic"

	"github.com/corenotify/listenerbus/internal/xpanic"
)

// Invoke is the type-erased notification carried by a Call. Given the
// opaque subscriber pointer that was registered with Add, it issues the
// typed notification. The typed facade (facade.go) is responsible for
// casting the subscriber back to its concrete interface type.
type Invoke func(ctx context.Context, subscriber any)

// Call is a reference-counted, pool-allocated notification object (spec §3,
// §4.3). It is immutable after construction: the only mutable state is its
// reference count, which tracks how many Groups still hold a pending
// reference to it.
type Call struct {
	invoke Invoke
	pool   *callPool
	refs   atomic.Int32
}

// Do invokes the Call against subscriber, capturing any panic raised by the
// subscriber so it cannot propagate into the publisher or the call queue's
// servicing goroutine. The panic is reported via OnPublishError, not
// returned, because by this point the publish operation that created the
// Call has already returned to its caller.
func (c *Call) Do(ctx context.Context, subscriber any) {
	if err := xpanic.Capture(func() { c.invoke(ctx, subscriber) }); err != nil {
		OnPublishError(ctx, err)
	}
}

// retain adds one reference, taken by a Group (or a Proxy sub-entry) that is
// about to hold onto the Call before it executes.
func (c *Call) retain() {
	c.refs.Add(1)
}

// release drops one reference. When the last reference is dropped the Call
// is returned to its pool for reuse.
func (c *Call) release() {
	if c.refs.Add(-1) == 0 {
		c.pool.put(c)
	}
}

// callPool is the FIFO-biased free-store described in spec §4.3/§C1. It is
// backed by a buffered channel rather than sync.Pool: sync.Pool is
// LIFO/per-P and may drop entries between GC cycles at the runtime's
// discretion, neither of which gives the FIFO reuse bias the spec asks for.
// A channel is a FIFO queue by construction and needs no ecosystem
// dependency, so it is used here (see DESIGN.md).
//
// A pool may optionally enforce a hard limit on the number of Calls
// outstanding at once; exceeding it surfaces ErrPoolExhausted to the
// publish caller rather than growing unbounded (spec §4.6, §7 resource
// exhaustion).
type callPool struct {
	free        chan *Call
	limit       int64
	outstanding atomic.Int64
}

// newCallPool creates a free-store that can hold up to bufferCapacity idle
// Calls before falling back to fresh heap allocation. limit caps the number
// of Calls that may be outstanding (in flight, not yet released) at once;
// limit <= 0 means unbounded.
func newCallPool(bufferCapacity int, limit int64) *callPool {
	if bufferCapacity <= 0 {
		bufferCapacity = 1024
	}

	return &callPool{
		free:  make(chan *Call, bufferCapacity),
		limit: limit,
	}
}

// acquire returns a Call wired to invoke, with a single reference owned by
// the caller (the publish operation). It fails with ErrPoolExhausted if the
// pool has a configured limit and that many Calls are already outstanding;
// the caller's publish operation must have no effect on publisher state in
// that case (spec §4.6), which holds here since acquire runs before any
// Group or Proxy state is touched.
func (p *callPool) acquire(invoke Invoke) (*Call, error) {
	if p.limit > 0 && p.outstanding.Load() >= p.limit {
		return nil, ErrPoolExhausted
	}

	p.outstanding.Add(1)

	select {
	case c := <-p.free:
		c.invoke = invoke
		c.refs.Store(1)
		return c, nil
	default:
		c := &Call{invoke: invoke, pool: p}
		c.refs.Store(1)
		return c, nil
	}
}

// put returns a spent Call to the free-store. If the store is full the Call
// is simply dropped and left for the garbage collector.
func (p *callPool) put(c *Call) {
	c.invoke = nil
	p.outstanding.Add(-1)

	select {
	case p.free <- c:
	default:
	}
}
