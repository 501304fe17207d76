package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/starford/typedmdx/pkg/apperr"
)

const authorDecl = `
type: object
fields:
  name: {type: string, min_length: 2}
  email: {type: string, format: email, optional: true}
  socials:
    type: array
    items:
      type: object
      fields:
        type: {type: enum, values: [x, linkedin]}
        href: {type: string, format: url}
`

func TestDecl_Build(t *testing.T) {
	var d Decl
	require.NoError(t, yaml.Unmarshal([]byte(authorDecl), &d))

	shape, err := d.Build()
	require.NoError(t, err)
	assert.Equal(t, KindObject, shape.Kind())
	assert.Equal(t, []string{"email", "name", "socials"}, shape.Keys())
	assert.True(t, shape.Fields()["email"].IsOptional())

	socials, ok := shape.Fields()["socials"].Elem()
	require.True(t, ok)
	assert.Equal(t, []string{"x", "linkedin"}, socials.Fields()["type"].Values())

	_, err = Validate(shape, map[string]any{
		"name":    "Ann",
		"socials": []any{map[string]any{"type": "x", "href": "https://x.com/ann"}},
	})
	assert.NoError(t, err)

	_, err = Validate(shape, map[string]any{
		"name":    "A",
		"email":   "nope",
		"socials": []any{map[string]any{"type": "x", "href": "not a url"}},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("name"))
	assert.True(t, verr.Has("email"))
	assert.True(t, verr.Has("socials[0].href"))
}

func TestDecl_Loose(t *testing.T) {
	d := Decl{Type: "object", Loose: true, Fields: map[string]Decl{"title": {Type: "string"}}}
	shape, err := d.Build()
	require.NoError(t, err)
	assert.True(t, shape.IsLoose())
}

func TestDecl_Invalid(t *testing.T) {
	cases := map[string]Decl{
		"missing type":   {},
		"unknown type":   {Type: "uuid"},
		"enum no values": {Type: "enum"},
		"array no items": {Type: "array"},
		"bad format":     {Type: "string", Format: "phone"},
		"bad pattern":    {Type: "string", Pattern: "("},
		"nested":         {Type: "object", Fields: map[string]Decl{"a": {Type: "wat"}}},
	}
	for name, d := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := d.Build()
			assert.ErrorIs(t, err, apperr.ErrConfiguration)
		})
	}
}

func TestDecl_Pattern(t *testing.T) {
	shape, err := Decl{Type: "object", Fields: map[string]Decl{
		"code": {Type: "string", Pattern: `^[A-Z]{3}$`},
	}}.Build()
	require.NoError(t, err)

	_, err = Validate(shape, map[string]any{"code": "ABC"})
	assert.NoError(t, err)
	_, err = Validate(shape, map[string]any{"code": "abc"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDecl_RulesRejectEmpty(t *testing.T) {
	d := Decl{Type: "object", Fields: map[string]Decl{
		"href":  {Type: "string", Format: FormatURL},
		"title": {Type: "string", MinLength: 3},
		"code":  {Type: "string", Pattern: `^[A-Z]+$`},
		"tags":  {Type: "array", MinLength: 1, Items: &Decl{Type: "string"}},
		"note":  {Type: "string", MaxLength: 10},
	}}
	shape, err := d.Build()
	require.NoError(t, err)

	_, err = Validate(shape, map[string]any{
		"href":  "",
		"title": "",
		"code":  "",
		"tags":  []any{},
		"note":  "",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("href"))
	assert.True(t, verr.Has("title"))
	assert.True(t, verr.Has("code"))
	assert.True(t, verr.Has("tags"))
	assert.False(t, verr.Has("note"), "max_length alone allows empty")
	assert.Len(t, verr.Issues, 4)
}
