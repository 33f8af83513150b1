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

// Package xsync holds the small synchronization primitives shared by the
// publisher, group and proxy hot paths.
package xsync

import "sync"

// cacheLineSize is conservative enough for the common amd64/arm64 targets
// this library is expected to run on.
const cacheLineSize = 64

// RWMutex is a sync.RWMutex padded to its own cache line, so that the
// Group-set lock, the Proxy-set lock and a Group's Entry-list lock never
// share a cache line with a neighboring hot field. Two unrelated mutexes
// sitting on the same cache line would serialize their unrelated read
// paths through false sharing, which defeats the point of a read-write
// lock on a publish hot path.
type RWMutex struct {
	mu sync.RWMutex
	_  [cacheLineSize - unsafeSizeofRWMutex]byte
}

// unsafeSizeofRWMutex is the size of sync.RWMutex on the platforms this
// module targets (three words: state/writer/reader counters wrapped in a
// struct). Kept as a named constant instead of computed via unsafe.Sizeof
// so the padding calculation stays a compile-time constant expression.
const unsafeSizeofRWMutex = 24

func (m *RWMutex) Lock()         { m.mu.Lock() }
func (m *RWMutex) Unlock()       { m.mu.Unlock() }
func (m *RWMutex) RLock()        { m.mu.RLock() }
func (m *RWMutex) RUnlock()      { m.mu.RUnlock() }
func (m *RWMutex) TryLock() bool { return m.mu.TryLock() }
