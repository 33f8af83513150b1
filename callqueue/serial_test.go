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
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSerial_postIsFIFO(t *testing.T) {
	is := assert.New(t)

	q := NewSerial(8)
	defer q.Close()

	var got []int
	for i := 1; i <= 5; i++ {
		i := i
		is.NoError(q.Post(context.Background(), func(context.Context) {
			got = append(got, i)
		}))
	}

	q.Synchronize(context.Background())

	is.Equal([]int{1, 2, 3, 4, 5}, got)
}

func TestSerial_isOnServicingThread(t *testing.T) {
	is := assert.New(t)

	q := NewSerial(1)
	defer q.Close()

	is.False(q.IsOnServicingThread(context.Background()))

	var observed bool
	done := make(chan struct{})
	is.NoError(q.Post(context.Background(), func(ctx context.Context) {
		observed = q.IsOnServicingThread(ctx)
		close(done)
	}))
	<-done

	is.True(observed)
}

func TestSerial_synchronizeFromOutsideBlocksUntilDrained(t *testing.T) {
	is := assert.New(t)

	q := NewSerial(4)
	defer q.Close()

	var mu sync.Mutex
	ran := false

	is.NoError(q.Post(context.Background(), func(context.Context) {
		mu.Lock()
		ran = true
		mu.Unlock()
	}))

	q.Synchronize(context.Background())

	mu.Lock()
	defer mu.Unlock()
	is.True(ran)
}

func TestSerial_synchronizeFromServicingThreadDrainsWithoutDeadlock(t *testing.T) {
	is := assert.New(t)

	q := NewSerial(4)
	defer q.Close()

	var order []int
	done := make(chan struct{})
	is.NoError(q.Post(context.Background(), func(ctx context.Context) {
		order = append(order, 1)
		is.NoError(q.Post(ctx, func(context.Context) { order = append(order, 2) }))
		q.Synchronize(ctx)
		close(done)
	}))
	<-done

	is.Equal([]int{1, 2}, order)
}

func TestSerial_postOnClosedQueueReturnsErr(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	q := NewSerial(1)
	q.Close()

	is.True(q.IsClosed())
	is.ErrorIs(q.Post(context.Background(), func(context.Context) {}), ErrQueueClosed)
}

func TestSerial_closeIsIdempotent(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	q := NewSerial(0)
	is.NotPanics(func() {
		q.Close()
		q.Close()
	})
}
