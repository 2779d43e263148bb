package mapping

import (
	"fmt"
	"strings"
)

// Violation is a single problem found while compiling mapping specs.
type Violation struct {
	// Spec is the index of the offending spec.
	Spec int

	// Reason describes the problem.
	Reason string
}

// CompileError aggregates every violation found in one compile pass, so
// a migration definition can be fixed in a single edit rather than
// iteratively.
type CompileError struct {
	// Violations lists all problems found.
	Violations []Violation
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = fmt.Sprintf("spec %d: %s", v.Spec, v.Reason)
	}
	return fmt.Sprintf("mapping compile failed with %d violation(s): %s",
		len(e.Violations), strings.Join(msgs, "; "))
}

// Compile validates specs against the source and target shapes and the
// transform registry, and produces executable field mappings. It fails
// fast, before any row is touched, and reports ALL violations, not just
// the first.
func Compile(source, target TableShape, specs []Spec, reg *Registry) ([]FieldMapping, error) {
	var violations []Violation
	addViolation := func(i int, format string, args ...any) {
		violations = append(violations, Violation{Spec: i, Reason: fmt.Sprintf(format, args...)})
	}

	mappings := make([]FieldMapping, 0, len(specs))
	for i, spec := range specs {
		if spec.Target == "" {
			addViolation(i, "target field is required")
			continue
		}
		targetType, ok := target.Fields[spec.Target]
		if !ok {
			addViolation(i, "target field %s not in shape of table %s", spec.Target, target.Table)
			continue
		}

		m := FieldMapping{
			Source:     spec.Source,
			Target:     spec.Target,
			Kind:       spec.Kind,
			targetType: targetType,
		}

		switch spec.Kind {
		case KindConstant:
			if !ValueMatches(spec.Value, targetType) {
				addViolation(i, "constant %v (%T) does not match target field %s type %s",
					spec.Value, spec.Value, spec.Target, targetType)
				continue
			}
			m.value = spec.Value

		case KindDirect:
			sourceType, ok := requireSource(source, spec, i, addViolation)
			if !ok {
				continue
			}
			if !Convertible(sourceType, targetType) {
				addViolation(i, "direct mapping %s -> %s: source type %s is not losslessly convertible to target type %s",
					spec.Source, spec.Target, sourceType, targetType)
				continue
			}
			m.sourceType = sourceType

		case KindTransform:
			sourceType, ok := requireSource(source, spec, i, addViolation)
			if !ok {
				continue
			}
			if reg == nil {
				addViolation(i, "transform %s: no registry provided", spec.Transform)
				continue
			}
			t, ok := reg.Get(spec.Transform)
			if !ok {
				addViolation(i, "transform %s is not registered", spec.Transform)
				continue
			}
			if t.Input != sourceType {
				addViolation(i, "transform %s expects input type %s but source field %s has type %s",
					t.Name, t.Input, spec.Source, sourceType)
				continue
			}
			if t.Output != targetType {
				addViolation(i, "transform %s produces type %s but target field %s has type %s",
					t.Name, t.Output, spec.Target, targetType)
				continue
			}
			m.sourceType = sourceType
			m.transform = t

		default:
			addViolation(i, "unknown mapping kind: %s", spec.Kind)
			continue
		}

		mappings = append(mappings, m)
	}

	if len(violations) > 0 {
		return nil, &CompileError{Violations: violations}
	}

	return mappings, nil
}

func requireSource(source TableShape, spec Spec, i int, addViolation func(int, string, ...any)) (FieldType, bool) {
	if spec.Source == "" {
		addViolation(i, "source field is required for kind %s", spec.Kind)
		return "", false
	}
	sourceType, ok := source.Fields[spec.Source]
	if !ok {
		addViolation(i, "source field %s not in shape of table %s", spec.Source, source.Table)
		return "", false
	}
	return sourceType, true
}
