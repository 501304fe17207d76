package schema

import (
	"strings"

	"github.com/starford/typedmdx/pkg/apperr"
)

// Issue is one field-level validation failure.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationError carries every issue found while validating one mapping.
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = issue.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, apperr.ErrValidation) hold.
func (e *ValidationError) Is(target error) bool {
	return target == apperr.ErrValidation
}

// FieldErrors groups issue messages by path, in first-seen order of paths.
func (e *ValidationError) FieldErrors() ([]string, map[string][]string) {
	var paths []string
	grouped := make(map[string][]string)
	for _, issue := range e.Issues {
		if _, seen := grouped[issue.Path]; !seen {
			paths = append(paths, issue.Path)
		}
		grouped[issue.Path] = append(grouped[issue.Path], issue.Message)
	}
	return paths, grouped
}

// Has reports whether any issue was recorded for path.
func (e *ValidationError) Has(path string) bool {
	for _, issue := range e.Issues {
		if issue.Path == path {
			return true
		}
	}
	return false
}
