// Copyright 2025 VisionFlow Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package statemachine

import (
	"fmt"
	"slices"
	"sync"
)

// StateHook is triggered when entering a state.
type StateHook[T comparable] func(state T) error

// StateMachine is a generic finite state machine.
// It is thread-safe and can be used concurrently.
type StateMachine[T comparable] struct {
	mu sync.RWMutex

	currentState T

	// from state -> list of valid next states
	validTransitions map[T][]T

	onEnter map[T][]StateHook[T]
}

// New creates a new StateMachine instance.
func New[T comparable]() *StateMachine[T] {
	return &StateMachine[T]{
		validTransitions: make(map[T][]T),
		onEnter:          make(map[T][]StateHook[T]),
	}
}

// NewWithState creates a new StateMachine with an initial state.
func NewWithState[T comparable](initialState T) *StateMachine[T] {
	sm := New[T]()
	sm.currentState = initialState
	return sm
}

// Allow registers valid state transitions from a source state.
func (sm *StateMachine[T]) Allow(from T, to ...T) *StateMachine[T] {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for _, target := range to {
		if !slices.Contains(sm.validTransitions[from], target) {
			sm.validTransitions[from] = append(sm.validTransitions[from], target)
		}
	}
	return sm
}

// CanTransition checks if a transition from one state to another is valid.
func (sm *StateMachine[T]) CanTransition(from, to T) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return slices.Contains(sm.validTransitions[from], to)
}

// Current returns the current state.
func (sm *StateMachine[T]) Current() T {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// SetCurrent sets the current state without triggering hooks or validation.
// Useful for initialization or recovery.
func (sm *StateMachine[T]) SetCurrent(state T) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.currentState = state
}

// OnEnter registers a hook invoked after entering the given state.
func (sm *StateMachine[T]) OnEnter(state T, hook StateHook[T]) *StateMachine[T] {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.onEnter[state] = append(sm.onEnter[state], hook)
	return sm
}

// Transit moves the machine to the target state, enforcing the
// registered transitions and running enter hooks.
func (sm *StateMachine[T]) Transit(to T) error {
	sm.mu.Lock()
	from := sm.currentState
	if !slices.Contains(sm.validTransitions[from], to) {
		sm.mu.Unlock()
		return fmt.Errorf("invalid transition: %v -> %v", from, to)
	}
	sm.currentState = to
	hooks := slices.Clone(sm.onEnter[to])
	sm.mu.Unlock()

	for _, hook := range hooks {
		if err := hook(to); err != nil {
			return fmt.Errorf("enter hook for %v: %w", to, err)
		}
	}
	return nil
}
