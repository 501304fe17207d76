package schema

import (
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/typedmdx/pkg/apperr"
)

// Decl is the YAML form of a Type, used to declare shapes in config files:
//
//	type: object
//	fields:
//	  title: {type: string}
//	  tags: {type: array, optional: true, items: {type: string}}
//	  href: {type: string, format: url}
type Decl struct {
	Type      string          `yaml:"type"`
	Optional  bool            `yaml:"optional"`
	Values    []string        `yaml:"values"`
	Items     *Decl           `yaml:"items"`
	Fields    map[string]Decl `yaml:"fields"`
	Loose     bool            `yaml:"loose"`
	Format    string          `yaml:"format"`
	Pattern   string          `yaml:"pattern"`
	MinLength int             `yaml:"min_length"`
	MaxLength int             `yaml:"max_length"`
}

// Formats understood by Decl.Format.
const (
	FormatURL   = "url"
	FormatEmail = "email"
)

// Validate checks the declaration itself, not a document.
func (d *Decl) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Type, validation.Required, validation.In(
			KindString.String(), KindNumber.String(), KindBool.String(), KindEnum.String(),
			KindArray.String(), KindObject.String(), KindDate.String(),
		)),
		validation.Field(&d.Values, validation.When(d.Type == KindEnum.String(), validation.Required)),
		validation.Field(&d.Items, validation.When(d.Type == KindArray.String(), validation.NotNil)),
		validation.Field(&d.Format, validation.In(FormatURL, FormatEmail)),
		validation.Field(&d.MinLength, validation.Min(0)),
		validation.Field(&d.MaxLength, validation.Min(0)),
	)
}

// Build converts the declaration into a Type.
func (d Decl) Build() (Type, error) {
	return d.build("")
}

func (d Decl) build(path string) (Type, error) {
	if err := d.Validate(); err != nil {
		return Type{}, declErr(path, err)
	}

	var t Type
	switch d.Type {
	case "string":
		t = String()
	case "number":
		t = Number()
	case "bool":
		t = Bool()
	case "date":
		t = Date()
	case "enum":
		t = Enum(d.Values...)
	case "array":
		elem, err := d.Items.build(path + "[]")
		if err != nil {
			return Type{}, err
		}
		t = Array(elem)
	case "object":
		fields := make(Fields, len(d.Fields))
		for name, fd := range d.Fields {
			ft, err := fd.build(join(path, name))
			if err != nil {
				return Type{}, err
			}
			fields[name] = ft
		}
		t = Object(fields)
		if d.Loose {
			t = t.Loose()
		}
	}

	var rules []validation.Rule
	// ozzo's format, match and length rules pass empty values, so a field
	// that declares any of them must also be non-empty.
	if d.Format != "" || d.Pattern != "" || d.MinLength > 0 {
		rules = append(rules, validation.Required)
	}
	switch d.Format {
	case FormatURL:
		rules = append(rules, is.URL)
	case FormatEmail:
		rules = append(rules, is.EmailFormat)
	}
	if d.Pattern != "" {
		re, err := regexp.Compile(d.Pattern)
		if err != nil {
			return Type{}, declErr(path, fmt.Errorf("pattern: %w", err))
		}
		rules = append(rules, validation.Match(re))
	}
	if d.MinLength > 0 || d.MaxLength > 0 {
		rules = append(rules, validation.Length(d.MinLength, d.MaxLength))
	}
	if len(rules) > 0 {
		t = t.With(rules...)
	}
	if d.Optional {
		t = t.Optional()
	}
	return t, nil
}

func declErr(path string, err error) error {
	if path == "" {
		path = "(root)"
	}
	return apperr.Configuration("declare", "shape %s: %v", path, err)
}
