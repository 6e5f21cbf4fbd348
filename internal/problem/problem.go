// Package problem defines the structured diagnoses the classifiers emit.
// A problem is a stable kind tag plus a serializable payload; equality and
// serialization are defined only on that pair, never on the Go type.
package problem

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Problem is a structured diagnosis for a build or test failure.
type Problem interface {
	// Kind returns the stable string discriminator for this diagnosis.
	Kind() string
	// Details returns the JSON-serializable payload.
	Details() any
	fmt.Stringer
}

// Envelope is the wire form of a problem: {"kind": ..., "details": ...}.
type Envelope struct {
	Kind    string          `json:"kind"`
	Details json.RawMessage `json:"details"`
}

// MarshalJSON serializes a problem into its envelope form.
func MarshalJSON(p Problem) ([]byte, error) {
	details, err := json.Marshal(p.Details())
	if err != nil {
		return nil, fmt.Errorf("encoding %s details: %w", p.Kind(), err)
	}
	return json.Marshal(Envelope{Kind: p.Kind(), Details: details})
}

// Equal reports whether two problems describe the same diagnosis. Two
// problems compare equal when their kinds match and their payloads encode
// to the same JSON, regardless of the concrete types carrying them.
func Equal(a, b Problem) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	av, ok := normalize(a.Details())
	if !ok {
		return false
	}
	bv, ok := normalize(b.Details())
	if !ok {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

// normalize round-trips a payload through JSON so that payloads of
// different Go shapes compare by their encoded form.
func normalize(details any) (any, bool) {
	raw, err := json.Marshal(details)
	if err != nil {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	return v, true
}
