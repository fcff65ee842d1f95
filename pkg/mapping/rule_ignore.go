package mapping

import (
	"context"

	"github.com/rowmap/rowmap/pkg/schema"
)

// IgnoreRule produces an explicitly absent value and tells the orchestrator
// to omit the target field from the output row.
type IgnoreRule struct {
	FieldlessRule
}

// NewIgnoreRule creates an ignore rule.
func NewIgnoreRule() *IgnoreRule {
	return &IgnoreRule{}
}

func (r *IgnoreRule) TypeID() string { return TypeIDIgnore }

func (r *IgnoreRule) Info() TypeInfo {
	return TypeInfo{
		DisplayName: "Ignore Field",
		ShortName:   "Ignore",
		Description: "Skips the target field entirely.",
	}
}

// SkipOutput marks the target field for omission.
func (r *IgnoreRule) SkipOutput() bool { return true }

func (r *IgnoreRule) ApplyRow(ctx context.Context, _ schema.Row) (schema.TransformationResult, error) {
	in, err := r.EntryResult(r.TypeID())
	if err != nil {
		return schema.TransformationResult{}, err
	}
	return r.ApplyValue(ctx, in)
}

func (r *IgnoreRule) ApplyValue(_ context.Context, in schema.TransformationResult) (schema.TransformationResult, error) {
	if in.Failed() {
		return in, nil
	}
	return in.Next(nil, schema.TypeEmpty), nil
}

func (r *IgnoreRule) Clone() Rule {
	return &IgnoreRule{FieldlessRule: FieldlessRule{BaseRule: r.cloneBase()}}
}

func (r *IgnoreRule) MarshalJSON() ([]byte, error) {
	type alias IgnoreRule
	return marshalEnvelope(r.TypeID(), (*alias)(r))
}

var _ Skipper = (*IgnoreRule)(nil)
