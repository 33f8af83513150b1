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
	"log"
	"sync/atomic"

	"github.com/corenotify/listenerbus/internal/xtime"
)

var (
	// onPublishError stores the current handler invoked when a subscriber
	// panics during a notification; Call.Do captures the panic and passes
	// it here as an error. Call pool exhaustion is not reported here: it is
	// returned to the publish caller as ErrPoolExhausted.
	onPublishError atomic.Value // func(context.Context, error)

	// onDroppedCall stores the current handler invoked whenever a Call is
	// discarded without ever being delivered: a post to a closed call queue,
	// a targeted publish to a subscriber that is no longer registered, or a
	// coalesced Call replaced before it ran.
	onDroppedCall atomic.Value // func(context.Context, DroppedCall)
)

func init() {
	onPublishError.Store(IgnoreOnPublishError)
	onDroppedCall.Store(IgnoreOnDroppedCall)
}

// DroppedCall describes a Call that was discarded without being delivered.
type DroppedCall struct {
	// Reason is a short, stable machine-readable label such as
	// "queue-closed", "subscriber-not-registered" or "coalesced".
	Reason string
}

func (d DroppedCall) String() string {
	return "dropped call: " + d.Reason
}

// SetOnPublishError sets the handler invoked when a subscriber panics during
// a notification. Passing nil restores the default (a no-op); pass
// DefaultOnPublishError explicitly to log instead.
func SetOnPublishError(fn func(ctx context.Context, err error)) {
	if fn == nil {
		fn = IgnoreOnPublishError
	}
	onPublishError.Store(fn)
}

// GetOnPublishError returns the currently configured publish-error handler.
func GetOnPublishError() func(ctx context.Context, err error) {
	return onPublishError.Load().(func(context.Context, error))
}

// OnPublishError invokes the currently configured publish-error handler.
func OnPublishError(ctx context.Context, err error) {
	GetOnPublishError()(ctx, err)
}

// SetOnDroppedCall sets the handler invoked whenever a Call is silently
// discarded (spec §4.6, §7 "Silent drop"). Passing nil restores the default
// (a no-op); pass DefaultOnDroppedCall explicitly to log instead.
func SetOnDroppedCall(fn func(ctx context.Context, dropped DroppedCall)) {
	if fn == nil {
		fn = IgnoreOnDroppedCall
	}
	onDroppedCall.Store(fn)
}

// GetOnDroppedCall returns the currently configured dropped-call handler.
func GetOnDroppedCall() func(ctx context.Context, dropped DroppedCall) {
	return onDroppedCall.Load().(func(context.Context, DroppedCall))
}

// OnDroppedCall invokes the currently configured dropped-call handler.
func OnDroppedCall(ctx context.Context, dropped DroppedCall) {
	GetOnDroppedCall()(ctx, dropped)
}

// IgnoreOnPublishError is a no-op publish-error handler.
func IgnoreOnPublishError(ctx context.Context, err error) {}

// IgnoreOnDroppedCall is a no-op dropped-call handler.
func IgnoreOnDroppedCall(ctx context.Context, dropped DroppedCall) {}

// DefaultOnPublishError logs the error via the standard library logger.
//
// A concurrency primitives library has no business picking a structured
// logging dependency for its callers (zap, zerolog, logrus, slog are all
// reasonable choices depending on the embedding application); callers that
// want one of those wire it in with SetOnPublishError/SetOnDroppedCall.
func DefaultOnPublishError(ctx context.Context, err error) {
	if err != nil {
		log.Printf("listenerbus: publish error: %s (t=%dns)\n", err.Error(), xtime.NowNanoMonotonic())
	}
}

// DefaultOnDroppedCall logs the drop via the standard library logger.
func DefaultOnDroppedCall(ctx context.Context, dropped DroppedCall) {
	log.Printf("listenerbus: %s (t=%dns)\n", dropped.String(), xtime.NowNanoMonotonic())
}
