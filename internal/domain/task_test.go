package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTask_IsTerminal(t *testing.T) {
	tests := []struct {
		name string
		task Task
		want bool
	}{
		{"completed is terminal", Task{State: StateCompleted}, true},
		{"failed with retries remaining is not terminal", Task{State: StateFailed, RetryCount: 1, MaxRetries: 3}, false},
		{"failed with retries exhausted is terminal", Task{State: StateFailed, RetryCount: 3, MaxRetries: 3}, true},
		{"failed past max_retries is terminal", Task{State: StateFailed, RetryCount: 5, MaxRetries: 3}, true},
		{"pending is not terminal", Task{State: StatePending}, false},
		{"running is not terminal", Task{State: StateRunning}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.IsTerminal())
		})
	}
}

func TestTask_IsRetryEligible(t *testing.T) {
	assert.True(t, (&Task{State: StateFailed, RetryCount: 1, MaxRetries: 3}).IsRetryEligible())
	assert.False(t, (&Task{State: StateFailed, RetryCount: 3, MaxRetries: 3}).IsRetryEligible())
	assert.False(t, (&Task{State: StateCompleted}).IsRetryEligible())
	assert.False(t, (&Task{State: StatePending}).IsRetryEligible())
}

func TestTask_HasResult(t *testing.T) {
	assert.False(t, (&Task{}).HasResult())
	assert.True(t, (&Task{Result: &ResultEnvelope{Value: 8}}).HasResult())
	assert.True(t, (&Task{Result: &ResultEnvelope{Value: nil}}).HasResult())
}

func TestTask_HasError(t *testing.T) {
	empty := ""
	msg := "boom"
	assert.False(t, (&Task{}).HasError())
	assert.False(t, (&Task{Error: &empty}).HasError())
	assert.True(t, (&Task{Error: &msg}).HasError())
}

func TestTask_StatePredicates(t *testing.T) {
	assert.True(t, (&Task{State: StatePending}).IsPending())
	assert.True(t, (&Task{State: StateRunning}).IsRunning())
	assert.True(t, (&Task{State: StateCompleted}).IsCompleted())
	assert.True(t, (&Task{State: StateFailed}).IsFailed())
}
