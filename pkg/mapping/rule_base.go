package mapping

import (
	"context"

	"github.com/rowmap/rowmap/pkg/schema"
)

// BaseRule carries the configuration every rule variant shares: the source
// field transformations and the rule-specific detail string. Concrete rules
// embed it and add their own behavior.
type BaseRule struct {
	Sources []*FieldTransformation `json:"sourceFields,omitempty"`
	Detail  string                 `json:"ruleDetail,omitempty"`
}

// SourceFields returns the configured field transformations.
func (b *BaseRule) SourceFields() []*FieldTransformation {
	return b.Sources
}

// SetSourceFields replaces the configured field transformations.
func (b *BaseRule) SetSourceFields(sources ...*FieldTransformation) {
	b.Sources = sources
}

// cloneBase deep-copies the shared configuration.
func (b *BaseRule) cloneBase() BaseRule {
	sources := make([]*FieldTransformation, len(b.Sources))
	for i, ft := range b.Sources {
		sources[i] = ft.Clone()
	}
	return BaseRule{Sources: sources, Detail: b.Detail}
}

// resolveSources evaluates every configured field transformation against the
// row, enforcing the rule's source bound first.
func (b *BaseRule) resolveSources(ctx context.Context, typeID string, maxSources int, row schema.Row) ([]schema.TransformationResult, error) {
	if maxSources != MaxSourceFieldsUnbounded && len(b.Sources) > maxSources {
		return nil, schema.NewErrorf(schema.ErrCodeConfiguration,
			"rule %q accepts at most %d source field(s), got %d", typeID, maxSources, len(b.Sources))
	}

	results := make([]schema.TransformationResult, len(b.Sources))
	for i, ft := range b.Sources {
		res, err := ft.Apply(ctx, row)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

// resolveSingleSource evaluates the exactly-one configured field
// transformation of a single-field rule.
func (b *BaseRule) resolveSingleSource(ctx context.Context, typeID string, row schema.Row) (schema.TransformationResult, error) {
	if len(b.Sources) != 1 {
		return schema.TransformationResult{}, schema.NewErrorf(schema.ErrCodeConfiguration,
			"rule %q requires exactly one source field, got %d", typeID, len(b.Sources))
	}
	return b.Sources[0].Apply(ctx, row)
}

// FieldlessRule is the extension base for host rules that need no source
// field: it rejects configured sources and resolves rows to an empty entry
// result, leaving the value production to the embedding rule's ApplyValue.
type FieldlessRule struct {
	BaseRule
}

// MaxSourceFields is always zero for fieldless rules.
func (r *FieldlessRule) MaxSourceFields() int { return 0 }

// EntryResult validates the (empty) source configuration and returns the
// result a fieldless rule starts from.
func (r *FieldlessRule) EntryResult(typeID string) (schema.TransformationResult, error) {
	if len(r.Sources) != 0 {
		return schema.TransformationResult{}, schema.NewErrorf(schema.ErrCodeConfiguration,
			"rule %q takes no source fields, got %d", typeID, len(r.Sources))
	}
	return schema.NewResult(nil), nil
}

// FieldAccessRule is the extension base for host rules reading exactly one
// source field through its transformation chain.
type FieldAccessRule struct {
	BaseRule
}

// MaxSourceFields is always one for field-access rules.
func (r *FieldAccessRule) MaxSourceFields() int { return 1 }

// ResolveSource evaluates the single configured source against the row.
func (r *FieldAccessRule) ResolveSource(ctx context.Context, typeID string, row schema.Row) (schema.TransformationResult, error) {
	return r.resolveSingleSource(ctx, typeID, row)
}
