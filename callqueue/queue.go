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

// Package callqueue defines the external execution-context contract the
// listener fabric delivers notifications through (spec §6), plus a minimal
// reference implementation (Serial) so the fabric is directly usable
// without an embedder supplying their own queue.
//
// This is explicitly an external collaborator (spec §1 "Out of scope"): the
// fabric only ever depends on the Queue interface below, never on Serial's
// internals.
package callqueue

import "context"

// Work is a unit of work posted to a Queue.
type Work func(ctx context.Context)

// Queue is a per-execution-context serial work queue: a FIFO executor
// pinned to one servicing goroutine at a time. The identity of the
// servicing goroutine may change across the Queue's lifetime but never
// during a single drain (spec §5).
type Queue interface {
	// Post enqueues a unit of work. Ordering is FIFO with respect to other
	// Post calls observed in that order by the queue. If the queue is
	// closed, the work is discarded and any references it holds must be
	// released by the caller (spec §6 "isClosed plus the guarantee that
	// post on a closed queue discards the work").
	Post(ctx context.Context, work Work) error

	// IsOnServicingThread reports whether ctx represents an execution
	// nested inside this queue's own drain loop — the Go analogue of "the
	// current thread is the queue's servicing thread" (see DESIGN.md: Go
	// exposes no public goroutine identity, so nesting is tracked through
	// context propagation instead of an OS thread ID comparison).
	IsOnServicingThread(ctx context.Context) bool

	// Synchronize drains pending work now. When called while
	// IsOnServicingThread(ctx) is true, it drains in place (there is no
	// other goroutine to wait on). Otherwise it blocks until every item
	// queued as of this call has executed.
	Synchronize(ctx context.Context)

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// ErrQueueClosed is returned by Post when the queue has already been
// closed.
var ErrQueueClosed = queueClosedError{}

type queueClosedError struct{}

func (queueClosedError) Error() string { return "callqueue: queue is closed" }
