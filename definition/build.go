package definition

import (
	"fmt"

	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/mapping"
	"github.com/schemashift/migrate/run"
	"github.com/schemashift/migrate/transfer"
)

// Build compiles a definition into an executable plan using the given
// transform registry. Mapping compilation is fail-fast: a phase with an
// invalid mapping definition surfaces every violation before any row is
// touched.
func Build(def Definition, reg *mapping.Registry) (run.Plan, error) {
	shapes := make(map[string]mapping.TableShape, len(def.Tables))
	for name, tableDef := range def.Tables {
		shape := mapping.TableShape{
			Table:  migrate.TableName(name),
			Fields: make(map[migrate.FieldID]mapping.FieldType, len(tableDef.Fields)),
		}
		for field, typeName := range tableDef.Fields {
			fieldType, err := mapping.ParseFieldType(typeName)
			if err != nil {
				return run.Plan{}, fmt.Errorf("table %s field %s: %w", name, field, err)
			}
			shape.Fields[migrate.FieldID(field)] = fieldType
		}
		shapes[name] = shape
	}

	plan := run.Plan{Component: def.Component}
	for _, phaseDef := range def.Phases {
		phase, err := buildPhase(phaseDef, shapes, reg)
		if err != nil {
			return run.Plan{}, err
		}
		plan.Phases = append(plan.Phases, phase)
	}

	if err := plan.Validate(); err != nil {
		return run.Plan{}, err
	}

	return plan, nil
}

func buildPhase(def PhaseDef, shapes map[string]mapping.TableShape, reg *mapping.Registry) (run.Phase, error) {
	source, ok := shapes[def.Source]
	if !ok {
		return run.Phase{}, fmt.Errorf("phase %s: source table %s has no shape", def.ID, def.Source)
	}
	target, ok := shapes[def.Target]
	if !ok {
		return run.Phase{}, fmt.Errorf("phase %s: target table %s has no shape", def.ID, def.Target)
	}

	specs := make([]mapping.Spec, len(def.Mappings))
	for i, m := range def.Mappings {
		specs[i] = mapping.Spec{
			Source:    migrate.FieldID(m.Source),
			Target:    migrate.FieldID(m.Target),
			Kind:      mapping.Kind(m.Kind),
			Value:     m.Value,
			Transform: m.Transform,
		}
	}

	mappings, err := mapping.Compile(source, target, specs, reg)
	if err != nil {
		return run.Phase{}, fmt.Errorf("phase %s: %w", def.ID, err)
	}

	filter, err := buildFilter(def.Filter)
	if err != nil {
		return run.Phase{}, fmt.Errorf("phase %s: %w", def.ID, err)
	}

	return run.Phase{
		ID:               def.ID,
		Name:             def.Name,
		Order:            def.Order,
		DependsOn:        def.DependsOn,
		Tag:              def.Tag,
		RollbackRequired: def.RollbackRequired,
		Independent:      def.Independent,
		FatalRowErrors:   def.FatalRowErrors,
		Job: transfer.Job{
			Source:    migrate.TableName(def.Source),
			Target:    migrate.TableName(def.Target),
			Filter:    filter,
			Mappings:  mappings,
			BatchSize: def.BatchSize,
		},
	}, nil
}

func buildFilter(def *FilterDef) (migrate.Filter, error) {
	if def == nil {
		return nil, nil
	}

	field := migrate.FieldID(def.Field)
	switch def.Op {
	case "eq":
		value := def.Value
		return func(row migrate.Row) bool {
			v, ok := row.Get(field)
			return ok && looseEqual(v, value)
		}, nil
	case "ne":
		value := def.Value
		return func(row migrate.Row) bool {
			v, ok := row.Get(field)
			return ok && !looseEqual(v, value)
		}, nil
	case "exists":
		return func(row migrate.Row) bool {
			_, ok := row.Get(field)
			return ok
		}, nil
	case "absent":
		return func(row migrate.Row) bool {
			_, ok := row.Get(field)
			return !ok
		}, nil
	default:
		return nil, fmt.Errorf("unknown filter op: %s", def.Op)
	}
}

// looseEqual compares a stored value with a YAML literal. YAML decodes
// numbers as int or float64 while stored values may be any integer
// width, so compare the printed forms.
func looseEqual(a, b any) bool {
	if a == b {
		return true
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
