// Package apperr defines the error kinds shared by the content packages.
//
// Callers branch on kind with errors.Is:
//
//	if errors.Is(err, apperr.ErrNotFound) { ... }
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrParse         = errors.New("parse error")
	ErrValidation    = errors.New("validation failed")
	ErrConfiguration = errors.New("invalid configuration")
)

// Error is a kind plus the operation and path that produced it.
type Error struct {
	Kind error  // one of the Err* sentinels
	Op   string // e.g. "list", "get", "define"
	Path string // storage path, if any
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Op != "" && e.Path != "":
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, msg)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	case e.Path != "":
		return fmt.Sprintf("%s: %s", e.Path, msg)
	}
	return msg
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound builds an ErrNotFound error.
func NotFound(op, path string, cause error) error {
	return &Error{Kind: ErrNotFound, Op: op, Path: path, Err: cause}
}

// Parse builds an ErrParse error.
func Parse(op, path string, cause error) error {
	return &Error{Kind: ErrParse, Op: op, Path: path, Err: cause}
}

// Configuration builds an ErrConfiguration error from a message.
func Configuration(op, format string, args ...any) error {
	return &Error{Kind: ErrConfiguration, Op: op, Err: fmt.Errorf(format, args...)}
}

// Kind returns the sentinel kind of err, or nil if err carries none.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrParse, ErrValidation, ErrConfiguration} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
