package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutionStateMachine_HappyPath(t *testing.T) {
	sm := NewExecutionStateMachine(ExecutionPending)

	require.NoError(t, sm.Transit(ExecutionRunning))
	require.NoError(t, sm.Transit(ExecutionCompleted))
	assert.Equal(t, ExecutionCompleted, sm.Current())
}

func TestExecutionStateMachine_FailurePath(t *testing.T) {
	sm := NewExecutionStateMachine(ExecutionPending)

	require.NoError(t, sm.Transit(ExecutionRunning))
	require.NoError(t, sm.Transit(ExecutionFailed))
	assert.Equal(t, ExecutionFailed, sm.Current())
}

func TestExecutionStateMachine_TerminalIsFinal(t *testing.T) {
	sm := NewExecutionStateMachine(ExecutionCompleted)

	assert.Error(t, sm.Transit(ExecutionRunning))
	assert.Error(t, sm.Transit(ExecutionFailed))
	assert.Equal(t, ExecutionCompleted, sm.Current())
}

func TestExecutionStateMachine_NoSkipToCompleted(t *testing.T) {
	sm := NewExecutionStateMachine(ExecutionPending)

	// pending must pass through running before completing
	assert.Error(t, sm.Transit(ExecutionCompleted))
}

func TestExecutionStatus_IsTerminal(t *testing.T) {
	assert.False(t, ExecutionPending.IsTerminal())
	assert.False(t, ExecutionRunning.IsTerminal())
	assert.True(t, ExecutionCompleted.IsTerminal())
	assert.True(t, ExecutionFailed.IsTerminal())
}

func TestStateMachine_OnEnterHook(t *testing.T) {
	entered := []ExecutionStatus{}
	sm := NewExecutionStateMachine(ExecutionPending)
	sm.OnEnter(ExecutionRunning, func(s ExecutionStatus) error {
		entered = append(entered, s)
		return nil
	})

	require.NoError(t, sm.Transit(ExecutionRunning))
	assert.Equal(t, []ExecutionStatus{ExecutionRunning}, entered)
}
