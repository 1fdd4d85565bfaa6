// Package values implements the open, dynamic parameter bag that flows
// between templates, fragments, sessions, and the wire. Parameters are
// declared at asset-load time with a shallow type, so at rest they are
// stored exactly as JSON decodes them rather than a hand-rolled union.
package values

import "encoding/json"

// Map is a parameter bag decoded from a JSON object. Values are one of
// string, float64, bool, []any, map[string]any, or nil, matching
// encoding/json's default decode targets for Go's untyped `any`.
type Map map[string]any

// Kind is the shallow declared type of a parameter, per the
// ParameterSchema type enumeration.
type Kind string

const (
	KindString  Kind = "string"
	KindInteger Kind = "integer"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
)

// Matches reports whether v has the shallow Go representation expected
// for k. integer and number both accept JSON numbers: JSON does not
// distinguish them, and the spec's own "integer" check does not require
// a fractional-free value to be rejected upstream of this layer.
func (k Kind) Matches(v any) bool {
	switch k {
	case KindString:
		_, ok := v.(string)
		return ok
	case KindInteger, KindNumber:
		_, ok := v.(float64)
		return ok
	case KindBoolean:
		_, ok := v.(bool)
		return ok
	case KindArray:
		_, ok := v.([]any)
		return ok
	case KindObject:
		_, ok := v.(map[string]any)
		return ok
	default:
		return false
	}
}

// Clone returns a deep-enough copy suitable for storing independently of
// the caller's map (shallow clone of the top level plus the JSON
// round-trip values already own their own backing arrays/maps since they
// were unmarshaled fresh per call).
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// DecodeMap unmarshals raw JSON into a Map, treating an empty/omitted
// body as an empty map rather than nil so callers don't need a nil check
// before ranging over it.
func DecodeMap(raw json.RawMessage) (Map, error) {
	if len(raw) == 0 {
		return Map{}, nil
	}
	var m Map
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = Map{}
	}
	return m, nil
}
