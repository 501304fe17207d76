package schema

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/cast"

	"github.com/starford/typedmdx/pkg/apperr"
)

// Validate checks raw against the object shape t and returns the validated
// record. Every problem found is reported, sorted by path; validation never
// stops at the first failing field. The returned error is a *ValidationError.
func Validate(t Type, raw map[string]any) (Record, error) {
	if t.kind != KindObject {
		return nil, apperr.Configuration("validate", "shape must be an object, got %s", t.kind)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	v := &validator{}
	out := v.object(t, "", raw)
	if len(v.issues) > 0 {
		slices.SortStableFunc(v.issues, func(a, b Issue) int {
			return strings.Compare(a.Path, b.Path)
		})
		return nil, &ValidationError{Issues: v.issues}
	}
	return Record(out), nil
}

type validator struct {
	issues []Issue
}

func (v *validator) fail(path, format string, args ...any) {
	v.issues = append(v.issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

// value validates val against t. ok is false when nothing should be stored.
func (v *validator) value(t Type, path string, val any) (out any, ok bool) {
	if val == nil {
		if !t.optional {
			v.fail(path, "required")
		}
		return nil, false
	}

	switch t.kind {
	case KindString:
		s, isStr := val.(string)
		if !isStr {
			v.fail(path, "expected string, received %s", typeName(val))
			return nil, false
		}
		out = s
	case KindNumber:
		n, isNum := number(val)
		if !isNum {
			v.fail(path, "expected number, received %s", typeName(val))
			return nil, false
		}
		out = n
	case KindBool:
		b, isBool := val.(bool)
		if !isBool {
			v.fail(path, "expected bool, received %s", typeName(val))
			return nil, false
		}
		out = b
	case KindEnum:
		s, isStr := val.(string)
		if !isStr {
			v.fail(path, "expected one of %s, received %s", joinQuoted(t.values), typeName(val))
			return nil, false
		}
		if !slices.Contains(t.values, s) {
			v.fail(path, "invalid enum value %q, expected one of %s", s, joinQuoted(t.values))
			return nil, false
		}
		out = s
	case KindDate:
		d, err := date(val)
		if err != nil {
			v.fail(path, "%v", err)
			return nil, false
		}
		out = d
	case KindArray:
		items, isList := val.([]any)
		if !isList {
			v.fail(path, "expected array, received %s", typeName(val))
			return nil, false
		}
		before := len(v.issues)
		list := make([]any, 0, len(items))
		for i, item := range items {
			elemPath := path + "[" + strconv.Itoa(i) + "]"
			if item == nil {
				// Optional elements still may not be null.
				v.fail(elemPath, "expected %s, received null", t.elem.kind)
				continue
			}
			if got, keep := v.value(*t.elem, elemPath, item); keep {
				list = append(list, got)
			}
		}
		if len(v.issues) > before {
			return nil, false
		}
		out = list
	case KindObject:
		m, isMap := mapping(val)
		if !isMap {
			v.fail(path, "expected object, received %s", typeName(val))
			return nil, false
		}
		before := len(v.issues)
		obj := v.object(t, path, m)
		if len(v.issues) > before {
			return nil, false
		}
		out = obj
	default:
		v.fail(path, "field has no declared type")
		return nil, false
	}

	if len(t.rules) > 0 {
		if err := validation.Validate(out, t.rules...); err != nil {
			v.fail(path, "%s", err.Error())
			return nil, false
		}
	}
	if t.transform != nil {
		converted, err := t.transform(out)
		if err != nil {
			v.fail(path, "%v", err)
			return nil, false
		}
		out = converted
	}
	return out, true
}

// object validates declared fields in sorted order, then unknown keys.
func (v *validator) object(t Type, path string, raw map[string]any) map[string]any {
	out := make(map[string]any, len(t.fields))
	for _, key := range t.Keys() {
		if got, ok := v.value(t.fields[key], join(path, key), raw[key]); ok {
			out[key] = got
		}
	}
	if t.loose {
		return out
	}
	var unknown []string
	for key := range raw {
		if _, declared := t.fields[key]; !declared {
			unknown = append(unknown, key)
		}
	}
	slices.Sort(unknown)
	for _, key := range unknown {
		v.fail(join(path, key), "unrecognized key")
	}
	return out
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// mapping normalizes the two map shapes YAML decoding produces.
func mapping(val any) (map[string]any, bool) {
	switch m := val.(type) {
	case map[string]any:
		return m, true
	case Record:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	}
	return nil, false
}

func number(val any) (float64, bool) {
	switch val.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		n, err := cast.ToFloat64E(val)
		return n, err == nil
	}
	return 0, false
}

func date(val any) (time.Time, error) {
	switch d := val.(type) {
	case time.Time:
		return d, nil
	case string:
		if strings.TrimSpace(d) == "" {
			return time.Time{}, fmt.Errorf("invalid date %q", d)
		}
		t, err := cast.ToTimeE(d)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q", d)
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("expected date, received %s", typeName(val))
}

func typeName(val any) string {
	switch val.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return "number"
	case []any:
		return "array"
	case map[string]any, map[any]any, Record:
		return "object"
	case time.Time:
		return "date"
	}
	return fmt.Sprintf("%T", val)
}

func joinQuoted(values []string) string {
	quoted := make([]string, len(values))
	for i, s := range values {
		quoted[i] = strconv.Quote(s)
	}
	return strings.Join(quoted, ", ")
}
