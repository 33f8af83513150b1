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
	"sync"

	"github.com/corenotify/listenerbus/callqueue"
	"github.com/corenotify/listenerbus/internal/xsync"
)

// entry binds a subscriber identity to the tick value current when it was
// added (spec §3 "Entry"). Immutable after creation.
type entry struct {
	subscriber any
	tickAtAdd  uint64
}

// group is the per-call-queue aggregation of subscribers for one publisher
// (spec §3/§4.2, component C3). Its Entry-list lock is cache-line padded,
// since it sits on the publish hot path alongside the publisher's Group-set
// and Proxy-set locks (spec §5).
type group struct {
	callQueue callqueue.Queue

	mu      xsync.RWMutex
	entries []entry

	// deliveringMu guards the transient delivery bookkeeping below: the
	// "current listener" slot (spec §3 "Group") and the delivering flag
	// used to prohibit reentrant Add (spec §9 open question (a)).
	deliveringMu    sync.Mutex
	delivering      bool
	currentListener any
}

func newGroup(queue callqueue.Queue) *group {
	return &group{callQueue: queue}
}

// add appends an Entry under the Entry-list write lock. Panics if
// subscriber is already registered in this group (spec §4.6).
func (g *group) add(subscriber any, tick uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, e := range g.entries {
		if e.subscriber == subscriber {
			panicDoubleAdd(subscriber)
		}
	}

	g.entries = append(g.entries, entry{subscriber: subscriber, tickAtAdd: tick})
}

// remove deletes subscriber's Entry under the Entry-list write lock. It
// reports whether the subscriber was found and whether the group is now
// empty (the publisher releases empty groups, spec §3 "Group lifetime").
func (g *group) remove(subscriber any) (removed bool, empty bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, e := range g.entries {
		if e.subscriber == subscriber {
			g.entries = append(g.entries[:i:i], g.entries[i+1:]...)
			return true, len(g.entries) == 0
		}
	}

	return false, len(g.entries) == 0
}

func (g *group) isEmpty() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.entries) == 0
}

func (g *group) contains(subscriber any) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, e := range g.entries {
		if e.subscriber == subscriber {
			return true
		}
	}

	return false
}

func (g *group) lookup(subscriber any) (present bool, tickAtAdd uint64) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, e := range g.entries {
		if e.subscriber == subscriber {
			return true, e.tickAtAdd
		}
	}

	return false, 0
}

func (g *group) setDelivering(v bool) {
	g.deliveringMu.Lock()
	g.delivering = v
	g.deliveringMu.Unlock()
}

func (g *group) isDelivering() bool {
	g.deliveringMu.Lock()
	defer g.deliveringMu.Unlock()

	return g.delivering
}

func (g *group) setCurrentListener(subscriber any) {
	g.deliveringMu.Lock()
	g.currentListener = subscriber
	g.deliveringMu.Unlock()
}

func (g *group) clearCurrentListener() {
	g.deliveringMu.Lock()
	g.currentListener = nil
	g.deliveringMu.Unlock()
}

// call enqueues a broadcast delivery and, if the caller is already running
// on the queue's servicing thread, synchronously drains the queue before
// returning (spec §4.2 "call").
func (g *group) call(ctx context.Context, c *Call, tick uint64) {
	g.post(ctx, c, tick, g.doCall)

	if g.callQueue.IsOnServicingThread(ctx) {
		g.callQueue.Synchronize(ctx)
	}
}

// enqueue posts a broadcast delivery without ever draining (spec §4.2
// "queue").
func (g *group) enqueue(ctx context.Context, c *Call, tick uint64) {
	g.post(ctx, c, tick, g.doCall)
}

// call1 enqueues a targeted delivery, draining inline if already on the
// servicing thread.
func (g *group) call1(ctx context.Context, c *Call, tick uint64, subscriber any) {
	g.post1(ctx, c, tick, subscriber)

	if g.callQueue.IsOnServicingThread(ctx) {
		g.callQueue.Synchronize(ctx)
	}
}

// enqueue1 posts a targeted delivery without draining.
func (g *group) enqueue1(ctx context.Context, c *Call, tick uint64, subscriber any) {
	g.post1(ctx, c, tick, subscriber)
}

func (g *group) post(ctx context.Context, c *Call, tick uint64, do func(context.Context, *Call, uint64)) {
	c.retain()

	err := g.callQueue.Post(ctx, func(ctx context.Context) {
		defer c.release()
		do(ctx, c, tick)
	})
	if err != nil {
		c.release()
		OnDroppedCall(ctx, DroppedCall{Reason: "queue-closed"})
	}
}

func (g *group) post1(ctx context.Context, c *Call, tick uint64, subscriber any) {
	c.retain()

	err := g.callQueue.Post(ctx, func(ctx context.Context) {
		defer c.release()
		g.doCall1(ctx, c, tick, subscriber)
	})
	if err != nil {
		c.release()
		OnDroppedCall(ctx, DroppedCall{Reason: "queue-closed"})
	}
}

// doCall runs on the servicing thread (spec §4.2 "do_call"). It snapshots
// the Entry list under a read lock, then releases the lock before invoking
// any subscriber: invocations can legally call remove (including
// self-removal, spec scenario 5), and the Entry-list lock must not be held
// by this goroutine while that happens, since RWMutex is not reentrant.
func (g *group) doCall(ctx context.Context, c *Call, tick uint64) {
	g.setDelivering(true)
	defer g.setDelivering(false)

	g.mu.RLock()
	snapshot := append([]entry(nil), g.entries...)
	g.mu.RUnlock()

	for _, e := range snapshot {
		if e.tickAtAdd >= tick {
			continue
		}

		// Re-check membership: a prior invocation in this same loop may
		// have removed this subscriber (directly, or via another
		// subscriber's callback — spec scenario 5).
		if !g.contains(e.subscriber) {
			continue
		}

		g.setCurrentListener(e.subscriber)
		c.Do(ctx, e.subscriber)
		g.clearCurrentListener()
	}
}

// doCall1 runs on the servicing thread (spec §4.2 "do_call1"): confirms the
// subscriber is still present and its as-of-add tick still qualifies, then
// invokes; otherwise drops silently.
func (g *group) doCall1(ctx context.Context, c *Call, tick uint64, subscriber any) {
	g.setDelivering(true)
	defer g.setDelivering(false)

	present, tickAtAdd := g.lookup(subscriber)
	if !present {
		OnDroppedCall(ctx, DroppedCall{Reason: "subscriber-not-registered"})
		return
	}

	if tickAtAdd >= tick {
		OnDroppedCall(ctx, DroppedCall{Reason: "as-of-add-filter"})
		return
	}

	g.setCurrentListener(subscriber)
	c.Do(ctx, subscriber)
	g.clearCurrentListener()
}
