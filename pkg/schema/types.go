// Package schema declares metadata shapes and validates loosely-typed
// frontmatter against them.
//
// A shape is built from immutable Type values:
//
//	blog := schema.Object(schema.Fields{
//		"title":       schema.String(),
//		"publishedAt": schema.Date(),
//		"tags":        schema.Array(schema.String()).Optional(),
//		"author":      schema.String(),
//	})
//
// Objects are closed by default: keys not declared in Fields are rejected.
// Call Loose to drop unknown keys instead.
package schema

import (
	"maps"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Kind identifies the variant of a Type.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindEnum
	KindArray
	KindObject
	KindDate
)

var kindNames = map[Kind]string{
	KindInvalid: "invalid",
	KindString:  "string",
	KindNumber:  "number",
	KindBool:    "bool",
	KindEnum:    "enum",
	KindArray:   "array",
	KindObject:  "object",
	KindDate:    "date",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "invalid"
}

// Record is a validated metadata mapping.
type Record map[string]any

// Fields maps field names to their types.
type Fields map[string]Type

// TransformFunc converts an already type-checked value.
type TransformFunc func(v any) (any, error)

// Type describes one metadata value. The zero Type is invalid.
// Methods never modify the receiver; they return an updated copy.
type Type struct {
	kind      Kind
	optional  bool
	values    []string
	elem      *Type
	fields    Fields
	loose     bool
	rules     []validation.Rule
	transform TransformFunc
}

func String() Type { return Type{kind: KindString} }
func Number() Type { return Type{kind: KindNumber} }
func Bool() Type   { return Type{kind: KindBool} }

// Date accepts a time value or a date string and yields a time.Time.
func Date() Type { return Type{kind: KindDate} }

// Enum accepts one of the given strings.
func Enum(values ...string) Type {
	return Type{kind: KindEnum, values: slices.Clone(values)}
}

// Array accepts a list whose elements all match elem.
func Array(elem Type) Type {
	return Type{kind: KindArray, elem: &elem}
}

// Object accepts a mapping matching fields. It is closed unless Loose is called.
func Object(fields Fields) Type {
	return Type{kind: KindObject, fields: maps.Clone(fields)}
}

// Optional marks the value as allowed to be absent or null.
func (t Type) Optional() Type {
	t.optional = true
	return t
}

// Required reverts Optional.
func (t Type) Required() Type {
	t.optional = false
	return t
}

// Loose makes an object drop unknown keys instead of rejecting them.
func (t Type) Loose() Type {
	t.loose = true
	return t
}

// Strict makes an object reject unknown keys (the default).
func (t Type) Strict() Type {
	t.loose = false
	return t
}

// With appends ozzo-validation rules checked after the type check.
func (t Type) With(rules ...validation.Rule) Type {
	t.rules = append(slices.Clone(t.rules), rules...)
	return t
}

// Transform sets a conversion applied after the type check and rules.
func (t Type) Transform(fn TransformFunc) Type {
	t.transform = fn
	return t
}

func (t Type) Kind() Kind         { return t.kind }
func (t Type) IsOptional() bool   { return t.optional }
func (t Type) IsLoose() bool      { return t.loose }
func (t Type) Values() []string   { return slices.Clone(t.values) }
func (t Type) IsObject() bool     { return t.kind == KindObject }
func (t Type) HasTransform() bool { return t.transform != nil }

// Elem returns the element type of an array.
func (t Type) Elem() (Type, bool) {
	if t.elem == nil {
		return Type{}, false
	}
	return *t.elem, true
}

// Fields returns a copy of an object's fields.
func (t Type) Fields() Fields {
	return maps.Clone(t.fields)
}

// Keys returns an object's field names in sorted order.
func (t Type) Keys() []string {
	return slices.Sorted(maps.Keys(t.fields))
}

// Describe renders the type as a short human-readable string.
func (t Type) Describe() string {
	s := t.kind.String()
	switch t.kind {
	case KindArray:
		if t.elem != nil {
			s = t.elem.Describe() + "[]"
		}
	case KindEnum:
		s = "enum(" + joinQuoted(t.values) + ")"
	}
	if t.optional {
		s += "?"
	}
	return s
}
