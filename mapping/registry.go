package mapping

import (
	"fmt"
	"strings"
	"sync"
)

// TransformFunc converts a single source field value into a target
// field value. Returning an error marks the row as failed; the executor
// records it as a row error.
type TransformFunc func(value any) (any, error)

// Transform is a registered, typed transform function. The compiler
// checks Input and Output against the mapping's endpoints so type
// mismatches surface before execution rather than mid-batch.
type Transform struct {
	// Name is the identifier mapping specs reference.
	Name string

	// Input is the source field type the function accepts.
	Input FieldType

	// Output is the target field type the function produces.
	Output FieldType

	// Fn is the conversion function.
	Fn TransformFunc
}

// Registry holds the transforms available to mapping specs.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	transforms map[string]Transform
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		transforms: make(map[string]Transform),
	}
}

// DefaultRegistry creates a registry preloaded with the built-in
// string transforms: upper, lower, and trim.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Transform{
		Name:   "upper",
		Input:  TypeString,
		Output: TypeString,
		Fn: func(value any) (any, error) {
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("upper: expected string, got %T", value)
			}
			return strings.ToUpper(s), nil
		},
	})
	r.Register(Transform{
		Name:   "lower",
		Input:  TypeString,
		Output: TypeString,
		Fn: func(value any) (any, error) {
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("lower: expected string, got %T", value)
			}
			return strings.ToLower(s), nil
		},
	})
	r.Register(Transform{
		Name:   "trim",
		Input:  TypeString,
		Output: TypeString,
		Fn: func(value any) (any, error) {
			s, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("trim: expected string, got %T", value)
			}
			return strings.TrimSpace(s), nil
		},
	})
	return r
}

// Register adds or replaces a transform by name.
func (r *Registry) Register(t Transform) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transforms[t.Name] = t
}

// Get returns a transform by name and whether it is registered.
func (r *Registry) Get(name string) (Transform, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.transforms[name]
	return t, ok
}
