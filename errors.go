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

import "errors"

// ErrPoolExhausted is returned by a publish operation when the Call
// allocator cannot satisfy the allocation (spec §4.6, §7: resource
// exhaustion is surfaced to the caller, not panicked; the operation has no
// effect on publisher state).
var ErrPoolExhausted = errors.New("listenerbus: call pool exhausted")

// ErrPublisherClosed is returned by Close when the publisher still has
// registered subscribers (spec §4: "destroyed by user, requires no pending
// subscribers").
var ErrPublisherClosed = errors.New("listenerbus: publisher has registered subscribers")

// Contract violations below are programmer errors (spec §4.6, §7) and are
// therefore panics, not errors: double-add, remove-nonexistent, and
// reentrant add.

func panicDoubleAdd(subscriber any) {
	panic(newContractViolation("subscriber already registered", subscriber))
}

func panicRemoveNotRegistered(subscriber any) {
	panic(newContractViolation("subscriber not registered", subscriber))
}

func panicReentrantAdd(subscriber any) {
	panic(newContractViolation("Add called reentrantly from inside a notification for the same call queue", subscriber))
}

// ContractViolation is the panic value raised when a caller violates one of
// the publisher's documented preconditions.
type ContractViolation struct {
	Message    string
	Subscriber any
}

func (e *ContractViolation) Error() string {
	return "listenerbus: contract violation: " + e.Message
}

func newContractViolation(message string, subscriber any) *ContractViolation {
	return &ContractViolation{Message: message, Subscriber: subscriber}
}
