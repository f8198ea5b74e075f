// Package skerr provides errors that carry the call site where they were
// created or wrapped, so that logs show where a failure originated.
package skerr

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// StackTrace is one frame of the call stack.
type StackTrace struct {
	File string
	Line int
}

// String returns the frame as "file:line".
func (st *StackTrace) String() string {
	return fmt.Sprintf("%s:%d", st.File, st.Line)
}

// ErrorWithContext is an error with a call stack and optional extra context.
type ErrorWithContext struct {
	// Wrapped is the original error. Never nil.
	Wrapped error
	// CallStack is the stack at the time the error was first wrapped.
	CallStack []StackTrace
	// Context is additional text prepended to the wrapped error's message.
	Context []string
}

// Error implements the error interface.
func (err *ErrorWithContext) Error() string {
	var out strings.Builder
	for i := len(err.Context) - 1; i >= 0; i-- {
		out.WriteString(err.Context[i])
		out.WriteString(": ")
	}
	out.WriteString(err.Wrapped.Error())
	out.WriteString(". At")
	for _, st := range err.CallStack {
		out.WriteString(" ")
		out.WriteString(st.String())
	}
	return out.String()
}

// Unwrap supports errors.Is and errors.As.
func (err *ErrorWithContext) Unwrap() error {
	return err.Wrapped
}

// CallStack returns at most maxLines frames of the current stack, skipping
// startAt frames above the caller.
func CallStack(maxLines, startAt int) []StackTrace {
	pcs := make([]uintptr, maxLines)
	n := runtime.Callers(startAt+2, pcs)
	if n == 0 {
		return nil
	}
	frames := runtime.CallersFrames(pcs[:n])
	rv := make([]StackTrace, 0, n)
	for {
		f, more := frames.Next()
		file := f.File
		if idx := strings.LastIndex(file, "/"); idx >= 0 {
			if pidx := strings.LastIndex(file[:idx], "/"); pidx >= 0 {
				file = file[pidx+1:]
			}
		}
		rv = append(rv, StackTrace{File: file, Line: f.Line})
		if !more {
			break
		}
	}
	return rv
}

// Wrap adds the current call stack to err, unless it already has one.
// Returns nil if err is nil.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var ewc *ErrorWithContext
	if errors.As(err, &ewc) {
		return err
	}
	return &ErrorWithContext{
		Wrapped:   err,
		CallStack: CallStack(6, 1),
	}
}

// Wrapf is like Wrap, but also prefixes the message with the formatted text.
// Returns nil if err is nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	var ewc *ErrorWithContext
	if errors.As(err, &ewc) && ewc == err {
		ewc.Context = append(ewc.Context, msg)
		return ewc
	}
	return &ErrorWithContext{
		Wrapped:   err,
		CallStack: CallStack(6, 1),
		Context:   []string{msg},
	}
}

// Fmt is like fmt.Errorf, but records the call stack.
func Fmt(format string, args ...interface{}) error {
	return &ErrorWithContext{
		Wrapped:   fmt.Errorf(format, args...),
		CallStack: CallStack(6, 1),
	}
}

// Unwrap returns the innermost error that was wrapped by this package.
func Unwrap(err error) error {
	var ewc *ErrorWithContext
	for errors.As(err, &ewc) {
		err = ewc.Wrapped
	}
	return err
}
