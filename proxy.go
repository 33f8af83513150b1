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
	"sync/atomic"
)

// Kind identifies a notification kind for coalescing purposes (spec §4.4).
// The source keys a Proxy by the raw bytes of a pointer-to-member value
// capped at 16 bytes; Go has no pointer-to-member-function value to copy,
// and the spec's own Design Notes permit any stable, comparable key ("an
// implementation may instead use the interface's own kind enumeration or
// any stable key"). Callers (typically the typed facade) supply a Kind that
// is stable across calls for the same notification and comparable (a
// string constant, an integer enum, or a reflect.Type all work).
type Kind = any

// proxySubEntry is a Proxy's per-Group coalescing slot: a back-reference to
// the Group plus an atomically swappable pending Call.
type proxySubEntry struct {
	group   *group
	pending atomic.Pointer[Call]
}

// proxy is the per-notification-kind coalescing slot within a publisher
// (spec §3/§4.4, component C4).
type proxy struct {
	kind Kind

	mu         sync.Mutex
	subEntries []*proxySubEntry
}

func newProxy(kind Kind) *proxy {
	return &proxy{kind: kind}
}

// addGroup appends a sub-entry for g with a null pending slot (spec §4.4
// "add"). It is idempotent: a Group already enrolled is left untouched.
func (p *proxy) addGroup(g *group) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, se := range p.subEntries {
		if se.group == g {
			return
		}
	}

	p.subEntries = append(p.subEntries, &proxySubEntry{group: g})
}

// update coalesces c into every sub-entry's pending slot (spec §4.4
// "update"). Each sub-entry gets its own reference to c: the caller (the
// publisher) is expected to hold its own reference for the duration of this
// call and release it afterwards, exactly as it does for a plain broadcast
// via group.call/group.enqueue.
func (p *proxy) update(ctx context.Context, c *Call, tick uint64) {
	p.mu.Lock()
	subEntries := append([]*proxySubEntry(nil), p.subEntries...)
	p.mu.Unlock()

	for _, se := range subEntries {
		c.retain()

		previous := se.pending.Swap(c)
		if previous != nil {
			// A delivery is already pending for this Group: the new Call
			// replaces it. The old Call never executes (spec I4 coalescing).
			previous.release()
			OnDroppedCall(ctx, DroppedCall{Reason: "coalesced"})
			continue
		}

		se.postDrain(ctx, tick)
	}
}

// postDrain enqueues the single work unit that will execute whichever Call
// is pending for se at the time it runs — not necessarily the Call that
// triggered this post, since further update calls may have replaced it in
// the meantime (spec I5 "coalescing races").
func (se *proxySubEntry) postDrain(ctx context.Context, tick uint64) {
	g := se.group

	err := g.callQueue.Post(ctx, func(ctx context.Context) {
		pending := se.pending.Swap(nil)
		if pending == nil {
			return
		}
		defer pending.release()

		g.doCall(ctx, pending, tick)
	})
	if err != nil {
		if dropped := se.pending.Swap(nil); dropped != nil {
			dropped.release()
		}
		OnDroppedCall(ctx, DroppedCall{Reason: "queue-closed"})
	}
}
