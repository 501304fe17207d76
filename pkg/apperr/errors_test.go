package apperr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKind(t *testing.T) {
	err := NotFound("get", "blog/x.mdx", fs.ErrNotExist)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrParse)
}

func TestError_Message(t *testing.T) {
	err := Parse("parse", "blog/a.mdx", errors.New("unterminated frontmatter"))
	assert.Equal(t, "parse blog/a.mdx: unterminated frontmatter", err.Error())

	err = &Error{Kind: ErrNotFound}
	assert.Equal(t, "not found", err.Error())
}

func TestKind_ThroughWrapping(t *testing.T) {
	err := fmt.Errorf("catalog: %w", Configuration("define", "folder %q is absolute", "/etc"))

	assert.Equal(t, ErrConfiguration, Kind(err))
	assert.Nil(t, Kind(errors.New("plain")))
}
