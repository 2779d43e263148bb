package mapping

import (
	"fmt"
	"time"

	"github.com/schemashift/migrate"
)

// FieldType is the declared type of a field within a table shape.
type FieldType string

const (
	// TypeString is a text field.
	TypeString FieldType = "string"

	// TypeInt is a signed integer field.
	TypeInt FieldType = "int"

	// TypeFloat is a floating-point field.
	TypeFloat FieldType = "float"

	// TypeBool is a boolean field.
	TypeBool FieldType = "bool"

	// TypeTime is a timestamp field.
	TypeTime FieldType = "time"

	// TypeBytes is a raw byte field.
	TypeBytes FieldType = "bytes"
)

// ParseFieldType returns the FieldType for a name.
func ParseFieldType(name string) (FieldType, error) {
	switch FieldType(name) {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeTime, TypeBytes:
		return FieldType(name), nil
	default:
		return "", fmt.Errorf("unknown field type: %s", name)
	}
}

// TableShape declares the fields of a table and their types. The
// compiler validates mapping definitions against shapes before any row
// is touched.
type TableShape struct {
	// Table is the table the shape describes.
	Table migrate.TableName

	// Fields maps field ids to their declared types.
	Fields map[migrate.FieldID]FieldType
}

// Has reports whether the shape declares the given field.
func (s TableShape) Has(field migrate.FieldID) bool {
	_, ok := s.Fields[field]
	return ok
}

// losslessConversions lists the type pairs a Direct mapping may bridge
// beyond identity. Every listed conversion preserves the value exactly.
var losslessConversions = map[FieldType][]FieldType{
	TypeInt:  {TypeFloat, TypeString},
	TypeBool: {TypeString},
}

// Convertible reports whether a value of type from can be carried into
// a field of type to by a Direct mapping without loss.
func Convertible(from, to FieldType) bool {
	if from == to {
		return true
	}
	for _, t := range losslessConversions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// ValueMatches reports whether a runtime value is acceptable for a
// field of the given declared type.
func ValueMatches(value any, t FieldType) bool {
	switch t {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeInt:
		switch value.(type) {
		case int, int32, int64:
			return true
		}
		return false
	case TypeFloat:
		switch value.(type) {
		case float32, float64:
			return true
		}
		return false
	case TypeBool:
		_, ok := value.(bool)
		return ok
	case TypeTime:
		_, ok := value.(time.Time)
		return ok
	case TypeBytes:
		_, ok := value.([]byte)
		return ok
	default:
		return false
	}
}

// convertValue carries a value across a lossless Direct conversion.
// Callers must have checked Convertible first.
func convertValue(value any, from, to FieldType) any {
	if from == to {
		return value
	}

	switch {
	case from == TypeInt && to == TypeFloat:
		switch v := value.(type) {
		case int:
			return float64(v)
		case int32:
			return float64(v)
		case int64:
			return float64(v)
		}
	case from == TypeInt && to == TypeString:
		return fmt.Sprintf("%d", value)
	case from == TypeBool && to == TypeString:
		return fmt.Sprintf("%t", value)
	}

	return value
}
