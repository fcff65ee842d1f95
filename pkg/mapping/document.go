package mapping

import (
	"encoding/json"
	"errors"

	"github.com/rowmap/rowmap/pkg/schema"
)

// The mapping set's wire form: a named document listing target fields and
// their rule envelopes in output column order.

func (fm FieldMapping) MarshalJSON() ([]byte, error) {
	var rule json.RawMessage
	if fm.Rule != nil {
		raw, err := MarshalRule(fm.Rule)
		if err != nil {
			return nil, err
		}
		rule = raw
	}
	return json.Marshal(struct {
		TargetField string          `json:"targetField"`
		Rule        json.RawMessage `json:"rule,omitempty"`
	}{TargetField: fm.TargetField, Rule: rule})
}

func (fm *FieldMapping) UnmarshalJSON(data []byte) error {
	var wire struct {
		TargetField string          `json:"targetField"`
		Rule        json.RawMessage `json:"rule"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return schema.NewError(schema.ErrCodeSerialization, "invalid field mapping").WithCause(err)
	}
	fm.TargetField = wire.TargetField
	if len(wire.Rule) > 0 {
		rule, err := UnmarshalRule(wire.Rule)
		if err != nil {
			return err
		}
		fm.Rule = rule
	}
	return nil
}

func (s *MappingSet) MarshalJSON() ([]byte, error) {
	type alias MappingSet
	return json.Marshal((*alias)(s))
}

func (s *MappingSet) UnmarshalJSON(data []byte) error {
	type alias MappingSet
	if err := json.Unmarshal(data, (*alias)(s)); err != nil {
		return err
	}
	return nil
}

// ParseDocument deserializes a mapping document, resolving every rule,
// transformation and comparison through the registries.
func ParseDocument(data []byte) (*MappingSet, error) {
	var set MappingSet
	if err := json.Unmarshal(data, &set); err != nil {
		var mapErr *schema.MappingError
		if errors.As(err, &mapErr) {
			return nil, mapErr
		}
		return nil, schema.NewError(schema.ErrCodeSerialization, "invalid mapping document").WithCause(err)
	}
	return &set, nil
}
