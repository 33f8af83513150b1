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

// Package listenerbus implements a typed, call-queue-aware publisher
// registry for broadcasting notifications to subscribers that joined at
// different times (spec §1-§4, components C1-C6).
package listenerbus

import (
	"context"

	"github.com/corenotify/listenerbus/callqueue"
	"github.com/corenotify/listenerbus/internal/tickcounter"
	"github.com/corenotify/listenerbus/internal/xsync"
)

// Publisher is the untyped registry described by spec §3/§4.1 (component
// C5): a set of Groups keyed by call queue, a set of Proxies keyed by
// notification Kind, and the tick counter that realizes the as-of-add
// visibility rule. Typed callers normally interact with it through a
// Facade rather than directly.
type Publisher struct {
	pool *callPool
	tick tickcounter.Counter64

	groupsMu xsync.RWMutex
	groups   map[callqueue.Queue]*group

	proxiesMu xsync.RWMutex
	proxies   map[Kind]*proxy
}

// Option configures a Publisher at construction time.
type Option func(*publisherConfig)

type publisherConfig struct {
	poolBufferCapacity int
	poolLimit          int64
}

// WithCallPoolBufferCapacity bounds how many idle Calls the publisher's
// free-store keeps around for reuse before falling back to heap allocation.
// It does not limit how many Calls may be outstanding at once; see
// WithCallPoolLimit for that.
func WithCallPoolBufferCapacity(n int) Option {
	return func(c *publisherConfig) { c.poolBufferCapacity = n }
}

// WithCallPoolLimit caps the number of Calls that may be outstanding (in
// flight, not yet delivered to every Group) at once. Exceeding it surfaces
// ErrPoolExhausted from NewCall (and so from the Facade's
// Call/Queue/Call1/Queue1/Update) rather than growing unbounded. A limit
// <= 0 (the default) means unbounded.
func WithCallPoolLimit(n int64) Option {
	return func(c *publisherConfig) { c.poolLimit = n }
}

// NewPublisher constructs an empty Publisher.
func NewPublisher(opts ...Option) *Publisher {
	cfg := publisherConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Publisher{
		pool:    newCallPool(cfg.poolBufferCapacity, cfg.poolLimit),
		groups:  make(map[callqueue.Queue]*group),
		proxies: make(map[Kind]*proxy),
	}
}

// NewCall allocates a Call wired to invoke, drawn from the publisher's
// internal free-store. It fails with ErrPoolExhausted if the publisher was
// constructed with WithCallPoolLimit and that many Calls are already
// outstanding.
func (p *Publisher) NewCall(invoke Invoke) (*Call, error) {
	return p.pool.acquire(invoke)
}

// Add registers subscriber against queue (spec §4.1 "add"). subscriber must
// not already be registered anywhere on this publisher, and must not be
// added from inside that same call queue's own in-flight delivery (spec §9
// open question (a): this implementation prohibits reentrant Add outright).
// Both preconditions are enforced with a panic, since violating them is a
// programmer error, not a runtime condition (spec §4.6).
func (p *Publisher) Add(subscriber any, queue callqueue.Queue) {
	p.groupsMu.Lock()
	for q, other := range p.groups {
		if q != queue && other.contains(subscriber) {
			p.groupsMu.Unlock()
			panicDoubleAdd(subscriber)
		}
	}
	g, ok := p.groups[queue]
	if !ok {
		g = newGroup(queue)
		p.groups[queue] = g
	}
	p.groupsMu.Unlock()

	if g.isDelivering() {
		panicReentrantAdd(subscriber)
	}

	// Tick is read, not incremented: a subscriber added between two
	// broadcasts must not see the broadcast that is currently being
	// delivered to everyone already present (spec §4.1, I2).
	tick := p.tick.Current()
	g.add(subscriber, tick)

	for _, px := range p.snapshotProxies() {
		px.addGroup(g)
	}
}

// Remove unregisters subscriber, wherever it is currently registered (spec
// §4.1 "remove"). Panics if subscriber is not registered anywhere on this
// publisher (spec §4.6). May be called from inside that subscriber's own
// notification, including to remove itself (spec scenario 5).
func (p *Publisher) Remove(subscriber any) {
	p.groupsMu.Lock()

	var (
		target      *group
		targetQueue callqueue.Queue
		found       bool
	)
	for q, g := range p.groups {
		if g.contains(subscriber) {
			target, targetQueue, found = g, q, true
			break
		}
	}
	if !found {
		p.groupsMu.Unlock()
		panicRemoveNotRegistered(subscriber)
	}

	removed, empty := target.remove(subscriber)
	if empty {
		delete(p.groups, targetQueue)
	}
	p.groupsMu.Unlock()

	if !removed {
		panicRemoveNotRegistered(subscriber)
	}
}

// Call broadcasts c to every currently registered subscriber, draining
// inline wherever the calling goroutine is already on that subscriber's
// call queue (spec §4.1 "call").
func (p *Publisher) Call(ctx context.Context, c *Call) {
	t := p.tick.Next()

	for _, g := range p.snapshotGroups() {
		g.call(ctx, c, t)
	}

	c.release()
}

// Queue broadcasts c to every currently registered subscriber without ever
// draining inline (spec §4.1 "queue").
func (p *Publisher) Queue(ctx context.Context, c *Call) {
	t := p.tick.Next()

	for _, g := range p.snapshotGroups() {
		g.enqueue(ctx, c, t)
	}

	c.release()
}

// Call1 delivers c to subscriber only, draining inline if already on its
// call queue (spec §4.1 "call1"). If subscriber is not currently
// registered, c is silently dropped: this is an expected race between
// Remove and a targeted publish racing it, not a contract violation.
func (p *Publisher) Call1(ctx context.Context, subscriber any, c *Call) {
	g, t := p.findForTargeted(subscriber)
	if g == nil {
		c.release()
		OnDroppedCall(ctx, DroppedCall{Reason: "subscriber-not-registered"})
		return
	}

	g.call1(ctx, c, t, subscriber)
	c.release()
}

// Queue1 delivers c to subscriber only, without ever draining inline (spec
// §4.1 "queue1").
func (p *Publisher) Queue1(ctx context.Context, subscriber any, c *Call) {
	g, t := p.findForTargeted(subscriber)
	if g == nil {
		c.release()
		OnDroppedCall(ctx, DroppedCall{Reason: "subscriber-not-registered"})
		return
	}

	g.enqueue1(ctx, c, t, subscriber)
	c.release()
}

// Update delivers c to every Group through kind's Proxy, coalescing it with
// any Call already pending there (spec §4.1 "update", §4.4). The first
// update since a Group's Proxy slot last drained posts one work unit; any
// further update before that work unit runs replaces the pending Call
// instead of posting a second one (spec I4).
func (p *Publisher) Update(ctx context.Context, kind Kind, c *Call) {
	px := p.proxyFor(kind)

	t := p.tick.Next()
	px.update(ctx, c, t)
	c.release()
}

// Close releases the publisher's internal state. It fails with
// ErrPublisherClosed if any Group still has registered subscribers: a
// publisher may only be torn down once every subscriber has been removed
// (spec §4 "Publisher lifetime").
func (p *Publisher) Close() error {
	p.groupsMu.Lock()
	for _, g := range p.groups {
		if !g.isEmpty() {
			p.groupsMu.Unlock()
			return ErrPublisherClosed
		}
	}
	p.groups = nil
	p.groupsMu.Unlock()

	p.proxiesMu.Lock()
	p.proxies = nil
	p.proxiesMu.Unlock()

	return nil
}

func (p *Publisher) snapshotGroups() []*group {
	p.groupsMu.RLock()
	defer p.groupsMu.RUnlock()

	groups := make([]*group, 0, len(p.groups))
	for _, g := range p.groups {
		groups = append(groups, g)
	}

	return groups
}

func (p *Publisher) snapshotProxies() []*proxy {
	p.proxiesMu.RLock()
	defer p.proxiesMu.RUnlock()

	proxies := make([]*proxy, 0, len(p.proxies))
	for _, px := range p.proxies {
		proxies = append(proxies, px)
	}

	return proxies
}

// findForTargeted locates the Group containing subscriber, if any, and
// returns one past the current tick alongside it, without advancing the
// counter: targeted publishes do not establish a new visibility boundary
// for every other subscriber the way a broadcast does (spec §4.1), but a
// subscriber registered at the current tick must still pass doCall1's
// strict tick-at-add < tick check.
func (p *Publisher) findForTargeted(subscriber any) (*group, uint64) {
	p.groupsMu.RLock()
	defer p.groupsMu.RUnlock()

	for _, g := range p.groups {
		if g.contains(subscriber) {
			return g, p.tick.Current() + 1
		}
	}

	return nil, 0
}

// proxyFor returns kind's Proxy, creating it (and enrolling every
// currently registered Group into it) if this is the first update for that
// kind (spec §4.4 "a Proxy is created lazily on first use").
func (p *Publisher) proxyFor(kind Kind) *proxy {
	p.proxiesMu.Lock()
	px, ok := p.proxies[kind]
	if !ok {
		px = newProxy(kind)
		p.proxies[kind] = px
	}
	p.proxiesMu.Unlock()

	if ok {
		return px
	}

	for _, g := range p.snapshotGroups() {
		px.addGroup(g)
	}

	return px
}
