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

	"github.com/corenotify/listenerbus/callqueue"
)

// Facade is the typed entry point to a Publisher (spec §3/§4.5, component
// C6). A Publisher stores subscribers and notifications as `any`; Facade
// closes over the concrete listener interface type L so callers never
// write a type assertion themselves. Multiple Facades of different listener
// types may share one Publisher; a call made through a Facade[L] is only
// invoked on subscribers that implement L, since delivery goes through a
// type-checking Invoke closure that skips every other subscriber.
type Facade[L any] struct {
	pub *Publisher
}

// NewFacade returns a Facade bound to pub for listener interface L.
func NewFacade[L any](pub *Publisher) *Facade[L] {
	return &Facade[L]{pub: pub}
}

// Publisher returns the underlying untyped Publisher, for callers that need
// to share registration state across more than one listener type or tear
// the publisher down with Close.
func (f *Facade[L]) Publisher() *Publisher {
	return f.pub
}

// Add registers subscriber against queue (spec §4.1 "add").
func (f *Facade[L]) Add(subscriber L, queue callqueue.Queue) {
	f.pub.Add(subscriber, queue)
}

// Remove unregisters subscriber (spec §4.1 "remove").
func (f *Facade[L]) Remove(subscriber L) {
	f.pub.Remove(subscriber)
}

// Call broadcasts invoke to every registered subscriber, draining inline
// wherever possible (spec §4.1 "call").
func (f *Facade[L]) Call(ctx context.Context, invoke func(L)) error {
	c, err := f.pub.NewCall(typedInvoke(invoke))
	if err != nil {
		return err
	}

	f.pub.Call(ctx, c)
	return nil
}

// Queue broadcasts invoke to every registered subscriber without ever
// draining inline (spec §4.1 "queue").
func (f *Facade[L]) Queue(ctx context.Context, invoke func(L)) error {
	c, err := f.pub.NewCall(typedInvoke(invoke))
	if err != nil {
		return err
	}

	f.pub.Queue(ctx, c)
	return nil
}

// Call1 delivers invoke to subscriber only, draining inline if possible
// (spec §4.1 "call1").
func (f *Facade[L]) Call1(ctx context.Context, subscriber L, invoke func(L)) error {
	c, err := f.pub.NewCall(typedInvoke(invoke))
	if err != nil {
		return err
	}

	f.pub.Call1(ctx, subscriber, c)
	return nil
}

// Queue1 delivers invoke to subscriber only, without ever draining inline
// (spec §4.1 "queue1").
func (f *Facade[L]) Queue1(ctx context.Context, subscriber L, invoke func(L)) error {
	c, err := f.pub.NewCall(typedInvoke(invoke))
	if err != nil {
		return err
	}

	f.pub.Queue1(ctx, subscriber, c)
	return nil
}

// Update delivers invoke to every Group through kind's coalescing Proxy
// (spec §4.1 "update", §4.4).
func (f *Facade[L]) Update(ctx context.Context, kind Kind, invoke func(L)) error {
	c, err := f.pub.NewCall(typedInvoke(invoke))
	if err != nil {
		return err
	}

	f.pub.Update(ctx, kind, c)
	return nil
}

// typedInvoke adapts a typed notification closure into the Publisher's
// type-erased Invoke. A broadcast reaches every subscriber of the Publisher,
// including ones registered through a Facade of another listener type;
// subscribers that do not implement L are skipped.
func typedInvoke[L any](invoke func(L)) Invoke {
	return func(ctx context.Context, subscriber any) {
		if l, ok := subscriber.(L); ok {
			invoke(l)
		}
	}
}
