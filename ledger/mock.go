package ledger

import (
	"context"
	"sync"

	"github.com/schemashift/migrate"
)

// MockLedger is a configurable mock implementation of Ledger for use in
// tests. It allows setting up expected return values, tracking method
// calls, and injecting errors for testing error paths.
type MockLedger struct {
	mu sync.RWMutex

	// HasTagFunc is called by HasTag if set.
	HasTagFunc func(ctx context.Context, id string, scope migrate.Scope) (bool, error)

	// CommitTagFunc is called by CommitTag if set.
	CommitTagFunc func(ctx context.Context, id string, scope migrate.Scope) error

	// AppliedTagsFunc is called by AppliedTags if set.
	AppliedTagsFunc func(ctx context.Context, scope migrate.Scope) ([]migrate.Tag, error)

	// Call tracking
	HasTagCalls      []TagCall
	CommitTagCalls   []TagCall
	AppliedTagsCalls []AppliedTagsCall
}

// TagCall records the arguments of a HasTag or CommitTag call.
type TagCall struct {
	ID    string
	Scope migrate.Scope
}

// AppliedTagsCall records the arguments of an AppliedTags call.
type AppliedTagsCall struct {
	Scope migrate.Scope
}

// Compile-time check that MockLedger implements Ledger.
var _ Ledger = (*MockLedger)(nil)

// NewMockLedger creates a new mock ledger.
func NewMockLedger() *MockLedger {
	return &MockLedger{}
}

// HasTag implements Ledger.
func (m *MockLedger) HasTag(ctx context.Context, id string, scope migrate.Scope) (bool, error) {
	m.mu.Lock()
	m.HasTagCalls = append(m.HasTagCalls, TagCall{ID: id, Scope: scope})
	m.mu.Unlock()

	if m.HasTagFunc != nil {
		return m.HasTagFunc(ctx, id, scope)
	}

	return false, nil
}

// CommitTag implements Ledger.
func (m *MockLedger) CommitTag(ctx context.Context, id string, scope migrate.Scope) error {
	m.mu.Lock()
	m.CommitTagCalls = append(m.CommitTagCalls, TagCall{ID: id, Scope: scope})
	m.mu.Unlock()

	if m.CommitTagFunc != nil {
		return m.CommitTagFunc(ctx, id, scope)
	}

	return nil
}

// AppliedTags implements Ledger.
func (m *MockLedger) AppliedTags(ctx context.Context, scope migrate.Scope) ([]migrate.Tag, error) {
	m.mu.Lock()
	m.AppliedTagsCalls = append(m.AppliedTagsCalls, AppliedTagsCall{Scope: scope})
	m.mu.Unlock()

	if m.AppliedTagsFunc != nil {
		return m.AppliedTagsFunc(ctx, scope)
	}

	return []migrate.Tag{}, nil
}

// Reset clears all call tracking data.
func (m *MockLedger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.HasTagCalls = nil
	m.CommitTagCalls = nil
	m.AppliedTagsCalls = nil
}
