package sqlparser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnparseable is matched by errors.Is for input that is not SQL.
	ErrUnparseable = errors.New("sql is not parseable")

	// ErrUnknownStrategy is returned for a strategy name that is not registered.
	ErrUnknownStrategy = errors.New("unknown strategy")
)

// previewLen bounds the query text quoted in error messages.
const previewLen = 64

// UnparseableError reports input in which no statement could be recognised.
type UnparseableError struct {
	SQL  string
	Errs []error
}

func (e *UnparseableError) Error() string {
	preview := strings.Join(strings.Fields(e.SQL), " ")
	if len(preview) > previewLen {
		preview = preview[:previewLen] + "..."
	}
	if len(e.Errs) == 0 {
		return fmt.Sprintf("%s: %q", ErrUnparseable, preview)
	}
	return fmt.Sprintf("%s: %q: %v", ErrUnparseable, preview, e.Errs[0])
}

// Is makes UnparseableError match ErrUnparseable.
func (e *UnparseableError) Is(target error) bool {
	return target == ErrUnparseable
}

// Unwrap returns the per-statement errors.
func (e *UnparseableError) Unwrap() []error {
	return e.Errs
}
