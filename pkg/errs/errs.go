// Package errs defines the small error taxonomy used across speedlog.
//
// Config and Schema errors stop the process; Subprocess, Parse and Database
// errors are logged and the run still completes.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindSubprocess
	KindParse
	KindDatabase
	KindSchema
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindSubprocess:
		return "subprocess"
	case KindParse:
		return "parse"
	case KindDatabase:
		return "database"
	case KindSchema:
		return "schema"
	default:
		return "unknown"
	}
}

// Error carries the kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cause keeps pkg/errors.Cause working through the wrapper.
func (e *Error) Cause() error {
	return e.Err
}

// New creates an error of the given kind with a stack trace.
func New(kind Kind, op, msg string) error {
	return &Error{Kind: kind, Op: op, Err: errors.New(msg)}
}

// Wrap annotates err with a kind and operation. A nil err stays nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: errors.WithStack(err)}
}

func Wrapf(kind Kind, op string, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: errors.Wrapf(err, format, args...)}
}

// KindOf returns the kind of the outermost *Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Fatal reports whether err must terminate the process with a non-zero status.
func Fatal(err error) bool {
	switch KindOf(err) {
	case KindConfig, KindSchema:
		return true
	default:
		return false
	}
}
