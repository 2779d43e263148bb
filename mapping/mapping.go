// Package mapping compiles declarative field mapping specs into
// validated, executable transformation rules from a source row shape to
// a target row shape.
package mapping

import (
	"fmt"

	"github.com/schemashift/migrate"
)

// Kind is the kind of a field mapping rule.
type Kind string

const (
	// KindDirect copies the source field value, applying a lossless
	// type conversion when the endpoint types differ.
	KindDirect Kind = "direct"

	// KindConstant sets the target field to a fixed value.
	KindConstant Kind = "constant"

	// KindTransform passes the source field value through a registered
	// transform function.
	KindTransform Kind = "transform"
)

// Spec is a single declarative mapping rule before compilation.
type Spec struct {
	// Source is the source field id. Unused for KindConstant.
	Source migrate.FieldID

	// Target is the target field id.
	Target migrate.FieldID

	// Kind selects the rule kind.
	Kind Kind

	// Value is the constant for KindConstant.
	Value any

	// Transform names the registered transform for KindTransform.
	Transform string
}

// FieldMapping is a compiled, validated mapping rule. Immutable once
// compiled.
type FieldMapping struct {
	// Source is the source field id. Empty for constants.
	Source migrate.FieldID

	// Target is the target field id.
	Target migrate.FieldID

	// Kind is the rule kind.
	Kind Kind

	value      any
	sourceType FieldType
	targetType FieldType
	transform  Transform
}

// Apply applies the mapping to one source row, setting the target field
// on dst. A missing source field or a transform failure is returned as
// an error; the executor records it as a row error for that row.
func (m FieldMapping) Apply(src migrate.Row, dst migrate.Row) error {
	switch m.Kind {
	case KindConstant:
		dst.Set(m.Target, m.value)
		return nil

	case KindDirect:
		v, ok := src.Get(m.Source)
		if !ok {
			return fmt.Errorf("source field %s missing", m.Source)
		}
		dst.Set(m.Target, convertValue(v, m.sourceType, m.targetType))
		return nil

	case KindTransform:
		v, ok := src.Get(m.Source)
		if !ok {
			return fmt.Errorf("source field %s missing", m.Source)
		}
		out, err := m.transform.Fn(v)
		if err != nil {
			return fmt.Errorf("transform %s: %w", m.transform.Name, err)
		}
		dst.Set(m.Target, out)
		return nil

	default:
		return fmt.Errorf("unknown mapping kind: %s", m.Kind)
	}
}

// ApplyAll applies every mapping to src, building the target row.
// The target row keeps the source row's key, which is what makes
// re-running a transfer an overwrite rather than a duplicate.
func ApplyAll(mappings []FieldMapping, src migrate.Row) (migrate.Row, error) {
	dst := migrate.NewMapRow(src.Key())
	for _, m := range mappings {
		if err := m.Apply(src, dst); err != nil {
			return nil, err
		}
	}
	return dst, nil
}
