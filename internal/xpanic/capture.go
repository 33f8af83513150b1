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

// Package xpanic captures panics raised while invoking a subscriber and
// turns them into plain errors, so that a misbehaving listener cannot
// corrupt the delivery loop of a Group or crash the servicing goroutine
// of a call queue.
package xpanic

import (
	"fmt"

	"github.com/samber/lo"
)

// Capture runs fn and converts any panic into an error. It returns nil if fn
// returned normally.
func Capture(fn func()) (err error) {
	lo.TryCatchWithErrorValue(
		func() error {
			fn()
			return nil
		},
		func(recovered any) {
			err = recoverValueToError(recovered)
		},
	)

	return err
}

func recoverValueToError(recovered any) error {
	if err, ok := recovered.(error); ok {
		return err
	}

	return fmt.Errorf("listenerbus: recovered panic: %v", recovered)
}
