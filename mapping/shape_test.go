package mapping

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemashift/migrate"
)

func TestParseFieldType(t *testing.T) {
	for _, name := range []string{"string", "int", "float", "bool", "time", "bytes"} {
		got, err := ParseFieldType(name)
		require.NoError(t, err)
		assert.Equal(t, FieldType(name), got)
	}

	_, err := ParseFieldType("decimal")
	assert.Error(t, err)
}

func TestTableShape_Has(t *testing.T) {
	shape := TableShape{
		Table:  "users",
		Fields: map[migrate.FieldID]FieldType{"name": TypeString},
	}

	assert.True(t, shape.Has("name"))
	assert.False(t, shape.Has("age"))
}

func TestConvertible_Identity(t *testing.T) {
	for _, ft := range []FieldType{TypeString, TypeInt, TypeFloat, TypeBool, TypeTime, TypeBytes} {
		assert.True(t, Convertible(ft, ft), "expected %s convertible to itself", ft)
	}
}

func TestConvertible_LosslessWidening(t *testing.T) {
	assert.True(t, Convertible(TypeInt, TypeFloat))
	assert.True(t, Convertible(TypeInt, TypeString))
	assert.True(t, Convertible(TypeBool, TypeString))
}

func TestConvertible_LossyPairsRejected(t *testing.T) {
	assert.False(t, Convertible(TypeFloat, TypeInt))
	assert.False(t, Convertible(TypeString, TypeInt))
	assert.False(t, Convertible(TypeString, TypeBool))
	assert.False(t, Convertible(TypeTime, TypeString))
}

func TestValueMatches(t *testing.T) {
	assert.True(t, ValueMatches("x", TypeString))
	assert.True(t, ValueMatches(7, TypeInt))
	assert.True(t, ValueMatches(int64(7), TypeInt))
	assert.True(t, ValueMatches(7.5, TypeFloat))
	assert.True(t, ValueMatches(true, TypeBool))
	assert.True(t, ValueMatches(time.Now(), TypeTime))
	assert.True(t, ValueMatches([]byte("x"), TypeBytes))

	assert.False(t, ValueMatches(7, TypeString))
	assert.False(t, ValueMatches("7", TypeInt))
	assert.False(t, ValueMatches(7, TypeFloat))
	assert.False(t, ValueMatches(nil, TypeString))
}

func TestConvertValue(t *testing.T) {
	assert.Equal(t, float64(7), convertValue(7, TypeInt, TypeFloat))
	assert.Equal(t, float64(7), convertValue(int64(7), TypeInt, TypeFloat))
	assert.Equal(t, "7", convertValue(7, TypeInt, TypeString))
	assert.Equal(t, "true", convertValue(true, TypeBool, TypeString))
	assert.Equal(t, "x", convertValue("x", TypeString, TypeString))
}
