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

package tickcounter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounter_NextIncrementsMonotonically(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var c Counter64
	is.Equal(uint64(0), c.Current())
	is.Equal(uint64(1), c.Next())
	is.Equal(uint64(2), c.Next())
	is.Equal(uint64(2), c.Current())
}

// TestCounter_narrowTypeWraparound operationalizes spec §9's tick-wraparound
// note directly: a narrow unsigned counter observably wraps, which is
// exactly the correctness hole the spec calls out for a 32-bit tick and the
// reason production code uses Counter64 instead.
func TestCounter_narrowTypeWraparound(t *testing.T) {
	t.Parallel()
	is := assert.New(t)

	var c Counter[uint8]

	var last uint8
	for i := 0; i < 255; i++ {
		last = c.Next()
	}
	is.Equal(uint8(255), last)

	wrapped := c.Next()
	is.Equal(uint8(0), wrapped, "a narrow counter wraps back to zero past its max value")
}

func TestCounter_concurrentNextNeverRepeatsAValue(t *testing.T) {
	is := assert.New(t)

	var c Counter64
	const goroutines, perGoroutine = 8, 200

	values := make(chan uint64, goroutines*perGoroutine)
	done := make(chan struct{}, goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for i := 0; i < perGoroutine; i++ {
				values <- c.Next()
			}
		}()
	}
	for g := 0; g < goroutines; g++ {
		<-done
	}
	close(values)

	seen := make(map[uint64]bool, goroutines*perGoroutine)
	for v := range values {
		is.False(seen[v], "value %d returned by Next more than once", v)
		seen[v] = true
	}
	is.Len(seen, goroutines*perGoroutine)
}
