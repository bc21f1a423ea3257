package domain

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"syscall"
)

// Caller-correctable error kinds. Match them with errors.Is.
var (
	ErrInvalidSignal   = errors.New("invalid signal")
	ErrInvalidDomain   = errors.New("invalid domain")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNoControls      = errors.New("no controls supported")
)

// InvalidArgumentError reports a bad argument to an IOGroup call.
// These are programming or configuration errors and are never retried.
type InvalidArgumentError struct {
	Kind    error
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return e.Message
}

// Unwrap exposes the error kind to errors.Is
func (e *InvalidArgumentError) Unwrap() error {
	return e.Kind
}

// NewInvalidArgument builds an InvalidArgumentError of the given kind
func NewInvalidArgument(kind error, format string, args ...interface{}) *InvalidArgumentError {
	return &InvalidArgumentError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// FatalError reports an unrecoverable failure of the underlying counter
// subsystem. An adapter that produced one during construction must not be used.
type FatalError struct {
	Component string
	File      string
	Line      int
	Call      string
	Status    int
	// Errno is set when the subsystem reported a system-level failure
	Errno syscall.Errno
	// Detail is the subsystem's diagnostic text for Status
	Detail string
}

func (e *FatalError) Error() string {
	prefix := fmt.Sprintf("%s:%d: ", e.Component, e.Line)
	switch {
	case e.Errno != 0:
		return prefix + fmt.Sprintf("System error in %s: %s", e.Call, e.Errno.Error())
	case e.Status > 0:
		return prefix + fmt.Sprintf("Error calculating: %s", e.Call)
	default:
		return prefix + fmt.Sprintf("Error in %s(%d): %s", e.Call, e.Status, e.Detail)
	}
}

// Unwrap exposes the OS error, if any
func (e *FatalError) Unwrap() error {
	if e.Errno != 0 {
		return e.Errno
	}
	return nil
}

// NewFatalError builds a FatalError stamped with the file and line of the
// site that invoked the caller of NewFatalError
func NewFatalError(component, call string, status int, errno syscall.Errno, detail string) *FatalError {
	fe := &FatalError{
		Component: component,
		Call:      call,
		Status:    status,
		Errno:     errno,
		Detail:    detail,
	}
	if _, file, line, ok := runtime.Caller(2); ok {
		fe.File = filepath.Base(file)
		fe.Line = line
	}
	return fe
}

// IsFatal reports whether err carries a FatalError
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
