package definition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemashift/migrate"
	"github.com/schemashift/migrate/mapping"
)

func sampleDefinition(t *testing.T) Definition {
	t.Helper()

	def, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)
	return def
}

func TestBuild_ProducesValidPlan(t *testing.T) {
	plan, err := Build(sampleDefinition(t), mapping.DefaultRegistry())

	require.NoError(t, err)
	assert.Equal(t, "50100", plan.Component)
	require.Len(t, plan.Phases, 1)

	phase := plan.Phases[0]
	assert.Equal(t, "users-to-accounts", phase.ID)
	assert.True(t, phase.RollbackRequired)
	assert.Equal(t, migrate.TableName("users"), phase.Job.Source)
	assert.Equal(t, migrate.TableName("accounts"), phase.Job.Target)
	assert.Equal(t, 50, phase.Job.BatchSize)
	assert.Len(t, phase.Job.Mappings, 3)
	require.NotNil(t, phase.Job.Filter)
}

func TestBuild_FilterMatchesDeclaredPredicate(t *testing.T) {
	plan, err := Build(sampleDefinition(t), mapping.DefaultRegistry())
	require.NoError(t, err)

	filter := plan.Phases[0].Job.Filter
	active := migrate.NewMapRowWithFields("u-1", map[migrate.FieldID]any{"active": true})
	inactive := migrate.NewMapRowWithFields("u-2", map[migrate.FieldID]any{"active": false})
	missing := migrate.NewMapRow("u-3")

	assert.True(t, filter(active))
	assert.False(t, filter(inactive))
	assert.False(t, filter(missing))
}

func TestBuild_FilterOps(t *testing.T) {
	mkFilter := func(t *testing.T, op string, value any) migrate.Filter {
		t.Helper()
		filter, err := buildFilter(&FilterDef{Field: "f", Op: op, Value: value})
		require.NoError(t, err)
		return filter
	}

	withField := migrate.NewMapRowWithFields("r-1", map[migrate.FieldID]any{"f": "x"})
	withoutField := migrate.NewMapRow("r-2")

	assert.True(t, mkFilter(t, "eq", "x")(withField))
	assert.False(t, mkFilter(t, "eq", "y")(withField))

	assert.True(t, mkFilter(t, "ne", "y")(withField))
	assert.False(t, mkFilter(t, "ne", "x")(withField))
	assert.False(t, mkFilter(t, "ne", "y")(withoutField))

	assert.True(t, mkFilter(t, "exists", nil)(withField))
	assert.False(t, mkFilter(t, "exists", nil)(withoutField))

	assert.True(t, mkFilter(t, "absent", nil)(withoutField))
	assert.False(t, mkFilter(t, "absent", nil)(withField))
}

func TestBuild_FilterComparesAcrossIntegerWidths(t *testing.T) {
	filter, err := buildFilter(&FilterDef{Field: "n", Op: "eq", Value: 5})
	require.NoError(t, err)

	assert.True(t, filter(migrate.NewMapRowWithFields("r-1", map[migrate.FieldID]any{"n": int64(5)})))
	assert.True(t, filter(migrate.NewMapRowWithFields("r-2", map[migrate.FieldID]any{"n": float64(5)})))
	assert.False(t, filter(migrate.NewMapRowWithFields("r-3", map[migrate.FieldID]any{"n": 6})))
}

func TestBuild_UnknownFilterOp(t *testing.T) {
	def := sampleDefinition(t)
	def.Phases[0].Filter.Op = "gt"

	_, err := Build(def, mapping.DefaultRegistry())

	assert.ErrorContains(t, err, "unknown filter op")
}

func TestBuild_UnknownFieldType(t *testing.T) {
	def := sampleDefinition(t)
	users := def.Tables["users"]
	users.Fields["name"] = "varchar"
	def.Tables["users"] = users

	_, err := Build(def, mapping.DefaultRegistry())

	assert.ErrorContains(t, err, "unknown field type")
}

func TestBuild_MissingTableShape(t *testing.T) {
	def := sampleDefinition(t)
	def.Phases[0].Source = "ghosts"

	_, err := Build(def, mapping.DefaultRegistry())

	assert.ErrorContains(t, err, "has no shape")
}

func TestBuild_SurfacesAllMappingViolations(t *testing.T) {
	def := sampleDefinition(t)
	def.Phases[0].Mappings = []MappingDef{
		{Source: "name", Target: "nope", Kind: "direct"},
		{Source: "ghost", Target: "tier", Kind: "direct"},
	}

	_, err := Build(def, mapping.DefaultRegistry())

	require.Error(t, err)
	var compileErr *mapping.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Len(t, compileErr.Violations, 2)
	assert.ErrorContains(t, err, "phase users-to-accounts")
}

func TestBuild_InvalidPlanRejected(t *testing.T) {
	def := sampleDefinition(t)
	second := def.Phases[0]
	second.ID = "duplicate-order"
	def.Phases = append(def.Phases, second)

	_, err := Build(def, mapping.DefaultRegistry())

	assert.ErrorContains(t, err, "share order")
}
