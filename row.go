package migrate

import "sort"

// Row is the generic tabular-record abstraction the engine operates on.
// It decouples the engine from any concrete storage technology.
type Row interface {
	// Key returns the row's stable identity within its table.
	Key() RowKey

	// Get returns the value of a field and whether the field is present.
	Get(field FieldID) (any, bool)

	// Set sets the value of a field, adding it if absent.
	Set(field FieldID, value any)

	// Fields returns the ids of all present fields in stable order.
	Fields() []FieldID
}

// Filter is an opaque row predicate. The engine passes filters through to
// stores unmodified and never inspects them. A nil Filter matches all rows.
type Filter func(Row) bool

// MapRow is a map-backed Row implementation.
type MapRow struct {
	key    RowKey
	fields map[FieldID]any
}

// Compile-time check that MapRow implements Row.
var _ Row = (*MapRow)(nil)

// NewMapRow creates an empty row with the given key.
func NewMapRow(key RowKey) *MapRow {
	return &MapRow{
		key:    key,
		fields: make(map[FieldID]any),
	}
}

// NewMapRowWithFields creates a row with the given key and initial fields.
// The fields map is copied.
func NewMapRowWithFields(key RowKey, fields map[FieldID]any) *MapRow {
	r := NewMapRow(key)
	for id, v := range fields {
		r.fields[id] = v
	}
	return r
}

// Key returns the row's identity.
func (r *MapRow) Key() RowKey {
	return r.key
}

// Get returns the value of a field and whether the field is present.
func (r *MapRow) Get(field FieldID) (any, bool) {
	v, ok := r.fields[field]
	return v, ok
}

// Set sets the value of a field, adding it if absent.
func (r *MapRow) Set(field FieldID, value any) {
	r.fields[field] = value
}

// Fields returns the ids of all present fields sorted lexically.
func (r *MapRow) Fields() []FieldID {
	ids := make([]FieldID, 0, len(r.fields))
	for id := range r.fields {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Clone returns an independent copy of the row.
func (r *MapRow) Clone() *MapRow {
	return NewMapRowWithFields(r.key, r.fields)
}

// CloneRow copies an arbitrary Row into an independent MapRow.
func CloneRow(row Row) *MapRow {
	out := NewMapRow(row.Key())
	for _, id := range row.Fields() {
		if v, ok := row.Get(id); ok {
			out.Set(id, v)
		}
	}
	return out
}

// RowsEqual reports whether two rows have the same key and field-equal
// contents.
func RowsEqual(a, b Row) bool {
	if a.Key() != b.Key() {
		return false
	}
	af, bf := a.Fields(), b.Fields()
	if len(af) != len(bf) {
		return false
	}
	for _, id := range af {
		av, _ := a.Get(id)
		bv, ok := b.Get(id)
		if !ok || av != bv {
			return false
		}
	}
	return true
}
