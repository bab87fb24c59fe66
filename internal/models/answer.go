package models

import "encoding/json"

// Spec is one structured specification the language model is asked to produce.
type Spec struct {
	Component string `json:"component" yaml:"component"`
	SpecType  string `json:"spec_type" yaml:"spec_type"`
	Value     string `json:"value" yaml:"value"`
	Unit      string `json:"unit" yaml:"unit"`
}

// ErrorPayload is the recovered form of a model reply that was not valid JSON.
type ErrorPayload struct {
	Error       string `json:"error"`
	RawResponse string `json:"raw_response"`
}

// Answer is a validated model reply. Exactly one of Value and Malformed is set:
// Value holds the decoded JSON (an object or an array of objects).
type Answer struct {
	Value     any
	Malformed *ErrorPayload
}

// MarshalJSON encodes the decoded value, or the error payload for malformed replies.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Malformed != nil {
		return json.Marshal(a.Malformed)
	}
	return json.Marshal(a.Value)
}

// IsMalformed reports whether the reply could not be parsed.
func (a Answer) IsMalformed() bool {
	return a.Malformed != nil
}

// Specs decodes the answer into typed specs. It accepts a single object or an
// array of objects and reports false when the value has some other shape.
func (a Answer) Specs() ([]Spec, bool) {
	if a.Malformed != nil || a.Value == nil {
		return nil, false
	}
	raw, err := json.Marshal(a.Value)
	if err != nil {
		return nil, false
	}
	switch a.Value.(type) {
	case []any:
		var specs []Spec
		if err := json.Unmarshal(raw, &specs); err != nil {
			return nil, false
		}
		return specs, true
	case map[string]any:
		var spec Spec
		if err := json.Unmarshal(raw, &spec); err != nil {
			return nil, false
		}
		return []Spec{spec}, true
	}
	return nil, false
}
