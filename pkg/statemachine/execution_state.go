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

// ExecutionStatus is the lifecycle status of a pipeline execution.
type ExecutionStatus string

const (
	ExecutionPending   ExecutionStatus = "pending"
	ExecutionRunning   ExecutionStatus = "running"
	ExecutionCompleted ExecutionStatus = "completed"
	ExecutionFailed    ExecutionStatus = "failed"
)

// IsTerminal reports whether the status is a terminal state.
func (es ExecutionStatus) IsTerminal() bool {
	return es == ExecutionCompleted || es == ExecutionFailed
}

// Valid reports whether the status is a known execution status.
func (es ExecutionStatus) Valid() bool {
	switch es {
	case ExecutionPending, ExecutionRunning, ExecutionCompleted, ExecutionFailed:
		return true
	}
	return false
}

// NewExecutionStateMachine builds the FSM guarding execution status writes.
// An execution terminates exactly once: completed and failed have no
// outgoing transitions.
func NewExecutionStateMachine(current ExecutionStatus) *StateMachine[ExecutionStatus] {
	sm := NewWithState(current)
	sm.Allow(ExecutionPending, ExecutionRunning, ExecutionFailed).
		Allow(ExecutionRunning, ExecutionCompleted, ExecutionFailed)
	return sm
}
