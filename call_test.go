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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCallPool_acquireReusesReleasedCall(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	pool := newCallPool(4, 0)

	c1, err := pool.acquire(func(ctx context.Context, subscriber any) {})
	is.NoError(err)
	is.NotNil(c1)

	c1.release()

	c2, err := pool.acquire(func(ctx context.Context, subscriber any) {})
	is.NoError(err)
	is.Same(c1, c2, "a released Call should be handed back out by the free-store")
}

func TestCallPool_refcountKeepsCallAliveUntilLastRelease(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	pool := newCallPool(4, 0)

	c, err := pool.acquire(func(ctx context.Context, subscriber any) {})
	is.NoError(err)

	c.retain()
	c.release()

	select {
	case reused := <-pool.free:
		is.Fail("Call was returned to the pool before its last reference was released", "got %v", reused)
	default:
	}

	c.release()

	select {
	case reused := <-pool.free:
		is.Same(c, reused)
	default:
		is.Fail("Call should have been returned to the pool after its last release")
	}

	// Put it back so later assertions relying on pool behavior aren't
	// affected by draining it above.
	pool.free <- c
}

func TestCallPool_acquireFailsWhenLimitExceeded(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	pool := newCallPool(4, 1)

	c1, err := pool.acquire(func(ctx context.Context, subscriber any) {})
	is.NoError(err)
	is.NotNil(c1)

	_, err = pool.acquire(func(ctx context.Context, subscriber any) {})
	is.ErrorIs(err, ErrPoolExhausted)

	c1.release()

	c2, err := pool.acquire(func(ctx context.Context, subscriber any) {})
	is.NoError(err)
	is.NotNil(c2)
}

func TestCall_DoCapturesSubscriberPanicAndReportsOnPublishError(t *testing.T) {
	is := assert.New(t)

	var reported error
	SetOnPublishError(func(ctx context.Context, err error) { reported = err })
	t.Cleanup(func() { SetOnPublishError(nil) })

	pool := newCallPool(1, 0)
	c, err := pool.acquire(func(ctx context.Context, subscriber any) {
		panic("boom")
	})
	is.NoError(err)

	is.NotPanics(func() { c.Do(context.Background(), struct{}{}) })
	is.Error(reported)
	is.Contains(reported.Error(), "boom")
}

func TestCall_DoInvokesSubscriberWithoutPanic(t *testing.T) {
	is := assert.New(t)

	var invokedWith any
	pool := newCallPool(1, 0)
	c, err := pool.acquire(func(ctx context.Context, subscriber any) {
		invokedWith = subscriber
	})
	is.NoError(err)

	c.Do(context.Background(), 42)
	is.Equal(42, invokedWith)
}
