package diag

import (
	"errors"
	"fmt"
)

// Error is a fatal compilation (or execution) failure.
type Error struct {
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Msg
	if msg == "" {
		msg = e.Code.Title()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code.ID(), msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code.ID(), msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches category sentinels and errors carrying the same code.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch t := target.(type) {
	case *categoryError:
		return e.Code.Category() == t.cat
	case *Error:
		return t != nil && t.Code == e.Code
	}
	return false
}

type categoryError struct{ cat Category }

func (c *categoryError) Error() string { return c.cat.String() + " failure" }

// Category sentinels for errors.Is.
var (
	ErrLookup       error = &categoryError{cat: CategoryLookup}
	ErrTypeMismatch error = &categoryError{cat: CategoryTypeMismatch}
	ErrShape        error = &categoryError{cat: CategoryShape}
	ErrBackend      error = &categoryError{cat: CategoryBackend}
	ErrRuntime      error = &categoryError{cat: CategoryRuntime}
)

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code to an underlying error.
func Wrap(code Code, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the first diag code found in the chain.
func CodeOf(err error) (Code, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Code, true
	}
	return UnknownCode, false
}
