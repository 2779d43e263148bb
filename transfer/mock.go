package transfer

import (
	"context"
	"sync"
)

// MockRunner is a configurable mock implementation of Runner for use in
// tests. It allows setting up expected return values, tracking calls,
// and injecting errors for testing error paths.
type MockRunner struct {
	mu sync.RWMutex

	// ExecuteFunc is called by Execute if set.
	ExecuteFunc func(ctx context.Context, job Job) (Result, error)

	// ExecuteCalls tracks the jobs Execute was called with.
	ExecuteCalls []Job
}

// Compile-time check that MockRunner implements Runner.
var _ Runner = (*MockRunner)(nil)

// NewMockRunner creates a new mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{}
}

// Execute implements Runner.
func (m *MockRunner) Execute(ctx context.Context, job Job) (Result, error) {
	m.mu.Lock()
	m.ExecuteCalls = append(m.ExecuteCalls, job)
	m.mu.Unlock()

	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, job)
	}

	return Result{}, nil
}

// Reset clears all call tracking data.
func (m *MockRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ExecuteCalls = nil
}
