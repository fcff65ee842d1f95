package mapping

import (
	"context"
	"encoding/json"

	"github.com/rowmap/rowmap/pkg/schema"
)

// TypeIDs of the built-in mapping rules.
const (
	TypeIDCopy          = "copy"
	TypeIDConstantValue = "constantValue"
	TypeIDIgnore        = "ignore"
	TypeIDCombineRule   = "combineFields"
	TypeIDStaticValue   = "staticValue"
)

// CopyRule passes a single source field's value (after its transformation
// chain) through to the target field. Collections are not copyable as
// scalars and fail the cell.
type CopyRule struct {
	BaseRule
}

// NewCopyRule creates a copy rule over one source field transformation.
func NewCopyRule(source *FieldTransformation) *CopyRule {
	r := &CopyRule{}
	r.SetSourceFields(source)
	return r
}

func (r *CopyRule) TypeID() string { return TypeIDCopy }

func (r *CopyRule) Info() TypeInfo {
	return TypeInfo{
		DisplayName: "Copy Field",
		ShortName:   "Copy",
		Description: "Copies the value of a source field into the target field.",
	}
}

func (r *CopyRule) MaxSourceFields() int { return 1 }

func (r *CopyRule) ApplyRow(ctx context.Context, row schema.Row) (schema.TransformationResult, error) {
	in, err := r.resolveSingleSource(ctx, r.TypeID(), row)
	if err != nil {
		return schema.TransformationResult{}, err
	}
	return r.ApplyValue(ctx, in)
}

func (r *CopyRule) ApplyValue(_ context.Context, in schema.TransformationResult) (schema.TransformationResult, error) {
	if in.Failed() {
		return in, nil
	}
	if in.IsCollection() {
		return in.Fail(MsgInvalidInputCollection), nil
	}
	return in, nil
}

func (r *CopyRule) Clone() Rule {
	return &CopyRule{BaseRule: r.cloneBase()}
}

func (r *CopyRule) MarshalJSON() ([]byte, error) {
	type alias CopyRule
	return marshalEnvelope(r.TypeID(), (*alias)(r))
}

var _ json.Marshaler = (*CopyRule)(nil)
