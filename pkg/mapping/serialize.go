package mapping

import (
	"encoding/json"

	"github.com/rowmap/rowmap/pkg/schema"
)

// envelope is the discriminator wrapper every serialized rule,
// transformation and comparison carries. The typeId is accepted in either
// camelCase or PascalCase on read and always written camelCase.
type envelope struct {
	TypeIDCamel  string `json:"typeId"`
	TypeIDPascal string `json:"TypeId"`
}

func (e envelope) typeID() string {
	if e.TypeIDCamel != "" {
		return e.TypeIDCamel
	}
	return e.TypeIDPascal
}

// marshalEnvelope serializes a concrete variant's configuration fields and
// injects its typeId discriminator. v must not carry a custom MarshalJSON
// (callers pass a local alias type to strip it).
func marshalEnvelope(typeID string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeSerialization, "marshal %q", typeID).WithCause(err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeSerialization, "marshal %q: not an object", typeID).WithCause(err)
	}
	id, err := json.Marshal(typeID)
	if err != nil {
		return nil, err
	}
	fields["typeId"] = id
	return json.Marshal(fields)
}

// unmarshalEnvelope extracts the typeId discriminator from a serialized
// object. An absent discriminator is a hard error.
func unmarshalEnvelope(data []byte, kind string) (string, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", schema.NewErrorf(schema.ErrCodeSerialization, "invalid %s payload", kind).WithCause(err)
	}
	id := env.typeID()
	if id == "" {
		return "", schema.NewErrorf(schema.ErrCodeSerialization, "%s payload has no typeId discriminator", kind)
	}
	return id, nil
}

// MarshalRule serializes a rule with its typeId discriminator.
func MarshalRule(r Rule) ([]byte, error) {
	return json.Marshal(r)
}

// UnmarshalRule resolves the typeId through the rule registry and
// deserializes the payload as the concrete variant. Unknown discriminators
// are a hard error.
func UnmarshalRule(data []byte) (Rule, error) {
	typeID, err := unmarshalEnvelope(data, "rule")
	if err != nil {
		return nil, err
	}
	factory, err := Rules.Resolve(typeID)
	if err != nil {
		return nil, err
	}
	rule := factory()
	if err := json.Unmarshal(data, rule); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeSerialization, "decode rule %q", typeID).WithCause(err)
	}
	return rule, nil
}

// MarshalTransformation serializes a transformation with its typeId
// discriminator.
func MarshalTransformation(t Transformation) ([]byte, error) {
	return json.Marshal(t)
}

// UnmarshalTransformation resolves the typeId through the transformation
// registry and deserializes the payload as the concrete variant.
func UnmarshalTransformation(data []byte) (Transformation, error) {
	typeID, err := unmarshalEnvelope(data, "transformation")
	if err != nil {
		return nil, err
	}
	factory, err := Transformations.Resolve(typeID)
	if err != nil {
		return nil, err
	}
	t := factory()
	if err := json.Unmarshal(data, t); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeSerialization, "decode transformation %q", typeID).WithCause(err)
	}
	return t, nil
}

// MarshalComparison serializes a comparison with its typeId discriminator.
func MarshalComparison(c Comparison) ([]byte, error) {
	return json.Marshal(c)
}

// UnmarshalComparison resolves the typeId through the comparison registry
// and deserializes the payload as the concrete variant.
func UnmarshalComparison(data []byte) (Comparison, error) {
	typeID, err := unmarshalEnvelope(data, "comparison")
	if err != nil {
		return nil, err
	}
	factory, err := Comparisons.Resolve(typeID)
	if err != nil {
		return nil, err
	}
	c := factory()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeSerialization, "decode comparison %q", typeID).WithCause(err)
	}
	return c, nil
}
