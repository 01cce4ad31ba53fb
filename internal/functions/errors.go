package functions

import (
	"fmt"
)

// Kind classifies a template function failure.
type Kind int

const (
	// KindUsage covers bad arguments: unknown keywords, wrong types,
	// unknown anchors.
	KindUsage Kind = iota
	// KindMissingContext is a chapter-relative anchor used outside a chapter.
	KindMissingContext
	KindReadFailure
	KindWriteFailure
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindMissingContext:
		return "missing context"
	case KindReadFailure:
		return "read failure"
	case KindWriteFailure:
		return "write failure"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by template functions and surfaces as a render error.
type Error struct {
	Kind Kind
	Func string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindWriteFailure:
		return fmt.Sprintf("%s: could not copy file: %v", e.Func, e.Err)
	case KindReadFailure:
		return fmt.Sprintf("%s: could not read file: %v", e.Func, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Func, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
