package source

import (
	"errors"
	"fmt"
)

// ErrSourceUnavailable marks inputs that could not be opened or parsed.
// It is always fatal for a run.
var ErrSourceUnavailable = errors.New("source unavailable")

// SourceError wraps ErrSourceUnavailable with the failing path and step.
type SourceError struct {
	Path string
	Op   string // open | read | parse
	Err  error
}

func (e *SourceError) Error() string {
	if e == nil {
		return ""
	}
	msg := ErrSourceUnavailable.Error()
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *SourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrSourceUnavailable}
	}
	return []error{ErrSourceUnavailable, e.Err}
}

func unavailable(op, path string, err error) error {
	return &SourceError{Path: path, Op: op, Err: err}
}
