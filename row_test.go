package migrate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRow_GetSet(t *testing.T) {
	row := NewMapRow("r-1")

	_, ok := row.Get("name")
	assert.False(t, ok)

	row.Set("name", "ada")
	v, ok := row.Get("name")
	require.True(t, ok)
	assert.Equal(t, "ada", v)

	row.Set("name", "grace")
	v, _ = row.Get("name")
	assert.Equal(t, "grace", v)
}

func TestMapRow_FieldsAreSorted(t *testing.T) {
	row := NewMapRowWithFields("r-1", map[FieldID]any{
		"c": 3, "a": 1, "b": 2,
	})

	assert.Equal(t, []FieldID{"a", "b", "c"}, row.Fields())
}

func TestNewMapRowWithFields_CopiesInput(t *testing.T) {
	fields := map[FieldID]any{"x": 1}
	row := NewMapRowWithFields("r-1", fields)

	fields["x"] = 2

	v, _ := row.Get("x")
	assert.Equal(t, 1, v)
}

func TestMapRow_CloneIsIndependent(t *testing.T) {
	row := NewMapRowWithFields("r-1", map[FieldID]any{"x": 1})

	clone := row.Clone()
	clone.Set("x", 99)

	v, _ := row.Get("x")
	assert.Equal(t, 1, v)
	assert.Equal(t, row.Key(), clone.Key())
}

func TestCloneRow_CopiesArbitraryRow(t *testing.T) {
	row := NewMapRowWithFields("r-1", map[FieldID]any{"a": "one", "b": 2})

	clone := CloneRow(row)

	assert.True(t, RowsEqual(row, clone))
	clone.Set("a", "changed")
	assert.False(t, RowsEqual(row, clone))
}

func TestRowsEqual(t *testing.T) {
	a := NewMapRowWithFields("r-1", map[FieldID]any{"x": 1})
	b := NewMapRowWithFields("r-1", map[FieldID]any{"x": 1})
	assert.True(t, RowsEqual(a, b))

	differentKey := NewMapRowWithFields("r-2", map[FieldID]any{"x": 1})
	assert.False(t, RowsEqual(a, differentKey))

	differentValue := NewMapRowWithFields("r-1", map[FieldID]any{"x": 2})
	assert.False(t, RowsEqual(a, differentValue))

	extraField := NewMapRowWithFields("r-1", map[FieldID]any{"x": 1, "y": 2})
	assert.False(t, RowsEqual(a, extraField))
}
