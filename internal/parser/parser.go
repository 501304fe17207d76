// Package parser splits content documents into a YAML frontmatter mapping
// and a raw body.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/starford/typedmdx/pkg/apperr"
)

const delim = "---"

var bom = []byte("\xef\xbb\xbf")

// Result holds the output of parsing a document.
type Result struct {
	// Frontmatter is the decoded metadata block; never nil.
	Frontmatter map[string]any
	// Body is everything after the closing delimiter line, verbatim.
	Body string
}

// Parse extracts frontmatter and body from raw document bytes. A document
// without a leading delimiter has empty frontmatter and is all body.
//
// Parse keeps no state between calls.
func Parse(data []byte) (*Result, error) {
	if !utf8.Valid(data) {
		return nil, parseErr("document is not valid UTF-8")
	}
	data = bytes.TrimPrefix(data, bom)

	first, rest, hasNL := cutLine(data)
	if !isDelim(first) || !hasNL {
		return &Result{Frontmatter: map[string]any{}, Body: string(data)}, nil
	}

	block, body, err := splitBlock(rest)
	if err != nil {
		return nil, err
	}

	fm, err := decode(block)
	if err != nil {
		return nil, err
	}
	return &Result{Frontmatter: fm, Body: string(body)}, nil
}

// splitBlock finds the closing delimiter line in data and returns the
// metadata block before it and the body after it.
func splitBlock(data []byte) (block, body []byte, err error) {
	offset := 0
	for offset <= len(data) {
		line, rest, hasNL := cutLine(data[offset:])
		if isDelim(line) {
			return data[:offset], rest, nil
		}
		if !hasNL {
			break
		}
		offset = len(data) - len(rest)
	}
	return nil, nil, parseErr("unterminated frontmatter block")
}

// decode unmarshals the YAML block with a fresh decoder.
func decode(block []byte) (map[string]any, error) {
	fm := map[string]any{}
	dec := yaml.NewDecoder(bytes.NewReader(block))
	if err := dec.Decode(&fm); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		return nil, parseErr("invalid frontmatter: %v", err)
	}
	if fm == nil {
		// A block holding only "~" or "null".
		fm = map[string]any{}
	}
	return fm, nil
}

// cutLine returns the first line of data (without its line ending), the
// remainder after the newline, and whether a newline was found.
func cutLine(data []byte) (line, rest []byte, hasNL bool) {
	i := bytes.IndexByte(data, '\n')
	if i < 0 {
		return data, nil, false
	}
	return data[:i], data[i+1:], true
}

func isDelim(line []byte) bool {
	return string(bytes.TrimRight(line, " \t\r")) == delim
}

func parseErr(format string, args ...any) error {
	return apperr.Parse("frontmatter", "", fmt.Errorf(format, args...))
}
