package mapping

import (
	"context"

	"github.com/rowmap/rowmap/pkg/schema"
)

// MapEntry is one value substitution in a map transformation. An entry with
// a field name applies only when the transformation targets that field.
type MapEntry struct {
	FieldName string `json:"fieldName,omitempty"`
	From      string `json:"fromValue"`
	To        string `json:"toValue"`
}

// MapTransformation replaces the current scalar value through a lookup list.
// A value absent from the list passes through unchanged; that is never an
// error. Collection input fails the cell.
type MapTransformation struct {
	FieldName string     `json:"fieldName,omitempty"`
	Entries   []MapEntry `json:"entries"`
}

// NewMapTransformation creates a value-mapping step.
func NewMapTransformation(fieldName string, entries ...MapEntry) *MapTransformation {
	return &MapTransformation{FieldName: fieldName, Entries: entries}
}

func (t *MapTransformation) TypeID() string { return TypeIDMap }

func (t *MapTransformation) Info() TypeInfo {
	return TypeInfo{
		DisplayName: "Map Values",
		ShortName:   "Map",
		Description: "Replaces known values through a from/to lookup list.",
	}
}

func (t *MapTransformation) Apply(_ context.Context, _ schema.Row, in schema.TransformationResult) (schema.TransformationResult, error) {
	if in.Failed() {
		return in, nil
	}
	if in.IsCollection() {
		return in.Fail(MsgInvalidInputCollection), nil
	}

	current := in.String()
	for _, entry := range t.Entries {
		if entry.FieldName != "" && entry.FieldName != t.FieldName {
			continue
		}
		if entry.From == current {
			return in.Next(entry.To, schema.TypeString), nil
		}
	}
	return in, nil
}

func (t *MapTransformation) Clone() Transformation {
	entries := make([]MapEntry, len(t.Entries))
	copy(entries, t.Entries)
	return &MapTransformation{FieldName: t.FieldName, Entries: entries}
}

func (t *MapTransformation) ToDetail() (string, error) {
	return detailString(t)
}

func (t *MapTransformation) FromDetail(detail string) error {
	return detailParse(detail, t)
}

func (t *MapTransformation) MarshalJSON() ([]byte, error) {
	type alias MapTransformation
	return marshalEnvelope(t.TypeID(), (*alias)(t))
}
