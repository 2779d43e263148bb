// Package definition loads declarative migration definitions from YAML
// and builds executable plans from them. A definition carries the table
// shapes, phases, and field mappings of one component's migration;
// validation rules are code and are attached to the plan after Build.
package definition

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is the YAML form of one component's migration.
type Definition struct {
	// Component identifies the migrated component, used as the tag
	// prefix and metrics label.
	Component string `yaml:"component"`

	// Tables declares the shapes of every table the phases reference.
	Tables map[string]TableDef `yaml:"tables"`

	// Phases are the units of work.
	Phases []PhaseDef `yaml:"phases"`
}

// TableDef declares the fields of one table.
type TableDef struct {
	// Fields maps field ids to type names: string, int, float, bool,
	// time, or bytes.
	Fields map[string]string `yaml:"fields"`
}

// PhaseDef is the YAML form of one phase.
type PhaseDef struct {
	ID               string       `yaml:"id"`
	Name             string       `yaml:"name"`
	Order            int          `yaml:"order"`
	DependsOn        []string     `yaml:"depends_on"`
	Tag              string       `yaml:"tag"`
	RollbackRequired bool         `yaml:"rollback_required"`
	Independent      bool         `yaml:"independent"`
	FatalRowErrors   bool         `yaml:"fatal_row_errors"`
	Source           string       `yaml:"source"`
	Target           string       `yaml:"target"`
	BatchSize        int          `yaml:"batch_size"`
	Filter           *FilterDef   `yaml:"filter"`
	Mappings         []MappingDef `yaml:"mappings"`
}

// FilterDef is a simple declarative source-row filter. Filters beyond
// these operators are attached in code as opaque predicates.
type FilterDef struct {
	// Field is the field the filter inspects.
	Field string `yaml:"field"`

	// Op is one of: eq, ne, exists, absent.
	Op string `yaml:"op"`

	// Value is the comparison value for eq and ne.
	Value any `yaml:"value"`
}

// MappingDef is the YAML form of one field mapping rule.
type MappingDef struct {
	Source    string `yaml:"source"`
	Target    string `yaml:"target"`
	Kind      string `yaml:"kind"`
	Value     any    `yaml:"value"`
	Transform string `yaml:"transform"`
}

// Load reads and parses a definition file.
func Load(path string) (Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Definition{}, fmt.Errorf("failed to read definition: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML definition.
func Parse(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("failed to parse definition: %w", err)
	}

	if def.Component == "" {
		return Definition{}, fmt.Errorf("definition has no component")
	}
	if len(def.Phases) == 0 {
		return Definition{}, fmt.Errorf("definition has no phases")
	}

	return def, nil
}
