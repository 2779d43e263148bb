package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/ledger"
)

// Ledger is an in-memory implementation of ledger.Ledger for testing
// and examples. It provides thread-safe access using a sync.Mutex; the
// mutex is what makes CommitTag atomic here.
type Ledger struct {
	mu   sync.Mutex
	tags map[tagKey]migrate.Tag
}

type tagKey struct {
	id    string
	scope string
}

// Compile-time check that Ledger implements ledger.Ledger.
var _ ledger.Ledger = (*Ledger)(nil)

// New creates a new in-memory ledger.
func New() *Ledger {
	return &Ledger{
		tags: make(map[tagKey]migrate.Tag),
	}
}

// HasTag reports whether a tag has been committed for the id and scope.
func (l *Ledger) HasTag(ctx context.Context, id string, scope migrate.Scope) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.tags[tagKey{id: id, scope: scope.String()}]
	return ok, nil
}

// CommitTag records a tag with check-and-set semantics.
// Returns migrate.ErrAlreadyCommitted if the tag is already present.
func (l *Ledger) CommitTag(ctx context.Context, id string, scope migrate.Scope) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := tagKey{id: id, scope: scope.String()}
	if _, ok := l.tags[key]; ok {
		return migrate.ErrAlreadyCommitted
	}

	l.tags[key] = migrate.Tag{
		ID:        id,
		Scope:     scope,
		AppliedAt: time.Now(),
	}

	return nil
}

// AppliedTags returns all committed tags for a scope, ordered by id.
func (l *Ledger) AppliedTags(ctx context.Context, scope migrate.Scope) ([]migrate.Tag, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var tags []migrate.Tag
	for key, tag := range l.tags {
		if key.scope == scope.String() {
			tags = append(tags, tag)
		}
	}

	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return tags, nil
}
