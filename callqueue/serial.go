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

package callqueue

import (
	"context"
	"sync"
)

type servicingKeyType struct{}

var servicingKey servicingKeyType

// withServicing stamps ctx so that IsOnServicingThread can later recognize
// that the resulting context represents execution nested inside this
// queue's drain loop.
func withServicing(ctx context.Context, token *int) context.Context {
	return context.WithValue(ctx, servicingKey, token)
}

func isServicing(ctx context.Context, token *int) bool {
	t, ok := ctx.Value(servicingKey).(*int)
	return ok && t == token
}

type workItem struct {
	ctx  context.Context
	work Work
}

// Serial is a minimal goroutine-backed FIFO implementation of Queue. One
// goroutine services the queue for its entire lifetime, which is enough to
// satisfy the Queue contract (spec §5: "the identity of that thread may
// change across the queue's lifetime", a freedom this implementation simply
// never exercises).
type Serial struct {
	// mu guards closed and the send to work together: Post holds a read
	// lock for the duration of its send, Close takes the write lock before
	// closing the channel. That ordering guarantees no goroutine is
	// sending on work when it is closed, which a plain mutex released
	// before the send cannot guarantee.
	mu     sync.RWMutex
	closed bool
	work   chan workItem

	token *int // unique per Serial instance, used as the context marker
}

var _ Queue = (*Serial)(nil)

// NewSerial creates a running Serial queue with the given work buffer
// capacity. A capacity of 0 means unbuffered (Post blocks until the
// servicing goroutine is ready to accept the item).
func NewSerial(capacity int) *Serial {
	if capacity < 0 {
		capacity = 0
	}

	s := &Serial{
		work:  make(chan workItem, capacity),
		token: new(int),
	}

	go s.run()

	return s
}

func (s *Serial) run() {
	for item := range s.work {
		item.work(withServicing(item.ctx, s.token))
	}
}

// Post implements Queue.
func (s *Serial) Post(ctx context.Context, work Work) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrQueueClosed
	}

	s.work <- workItem{ctx: ctx, work: work}

	return nil
}

// IsOnServicingThread implements Queue.
func (s *Serial) IsOnServicingThread(ctx context.Context) bool {
	return isServicing(ctx, s.token)
}

// Synchronize implements Queue.
func (s *Serial) Synchronize(ctx context.Context) {
	if s.IsOnServicingThread(ctx) {
		// Already running on the servicing goroutine: drain whatever is
		// queued right now without blocking on ourselves.
		for {
			select {
			case item, ok := <-s.work:
				if !ok {
					return
				}
				item.work(withServicing(item.ctx, s.token))
			default:
				return
			}
		}
	}

	done := make(chan struct{})
	if err := s.Post(ctx, func(context.Context) { close(done) }); err != nil {
		return
	}
	<-done
}

// IsClosed implements Queue.
func (s *Serial) IsClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.closed
}

// Close stops accepting new work and lets the servicing goroutine drain and
// exit once every already-posted item has run. The write lock here waits
// for any Post currently sending to finish first, so the channel is never
// closed while a send on it is in flight.
func (s *Serial) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.work)
}
