package schema

// Row is one record of an imported table: field name -> raw value.
// Values are whatever the host's file reader produced; scalars are expected
// but the engine tolerates anything it can stringify.
type Row map[string]any

// Value returns the raw value for a field and whether the field exists.
func (r Row) Value(name string) (any, bool) {
	v, ok := r[name]
	return v, ok
}

// FieldNames returns the field names present in the row (unordered).
func (r Row) FieldNames() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	return names
}

// Field describes one available source field, for host-side field pickers.
// The engine itself never requires a manifest to evaluate.
type Field struct {
	Name string    `json:"name"`
	Type ValueType `json:"type,omitempty"`
}

// Table is an ordered sequence of rows sharing a field layout.
type Table struct {
	Fields []Field `json:"fields,omitempty"`
	Rows   []Row   `json:"rows"`
}
