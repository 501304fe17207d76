package schema

import (
	"encoding/json"
	"fmt"
)

// Decode validates raw against t and converts the result to T.
//
// T may be Record or map[string]any, in which case the validated mapping is
// returned as is, or any type the record can be JSON-decoded into (structs
// with json tags). Date fields decode into time.Time.
func Decode[T any](t Type, raw map[string]any) (T, error) {
	rec, err := Validate(t, raw)
	if err != nil {
		var zero T
		return zero, err
	}
	return As[T](rec)
}

// As converts a validated record to T.
func As[T any](rec Record) (T, error) {
	if v, ok := any(rec).(T); ok {
		return v, nil
	}
	if v, ok := any(map[string]any(rec)).(T); ok {
		return v, nil
	}

	var out T
	data, err := json.Marshal(rec)
	if err != nil {
		return out, fmt.Errorf("schema: marshal record: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("schema: decode into %T: %w", out, err)
	}
	return out, nil
}
