package counter

import (
	"errors"
	"fmt"
	"syscall"
)

// Status codes returned by Library calls. Values follow PAPI's numbering so
// diagnostics line up with papi_avail output.
const (
	StatusOK         = 0
	StatusInvalid    = -1
	StatusNoMemory   = -2
	StatusSystem     = -3
	StatusNoSupport  = -4
	StatusBug        = -6
	StatusNoEvent    = -7
	StatusConflict   = -8
	StatusNotRunning = -9
	StatusIsRunning  = -10
	StatusNoEventSet = -11
	StatusNoInit     = -14
	StatusPermission = -15
)

var statusText = map[int]string{
	StatusOK:         "No error",
	StatusInvalid:    "Invalid argument",
	StatusNoMemory:   "Insufficient memory",
	StatusSystem:     "A System/C library call failed",
	StatusNoSupport:  "Not supported by component",
	StatusBug:        "Internal error, please send mail to the developers",
	StatusNoEvent:    "Event does not exist",
	StatusConflict:   "Event exists, but cannot be counted due to counter resource limitations",
	StatusNotRunning: "EventSet is currently not running",
	StatusIsRunning:  "EventSet is currently counting",
	StatusNoEventSet: "No such EventSet Available",
	StatusNoInit:     "PAPI hasn't been initialized yet",
	StatusPermission: "Permission level does not permit operation",
}

// StatusText returns the diagnostic text for a status code
func StatusText(status int) string {
	if text, ok := statusText[status]; ok {
		return text
	}
	return fmt.Sprintf("Unknown error code %d", status)
}

// StatusError is the error every Library implementation returns
type StatusError struct {
	Status int
	// Errno is populated for StatusSystem
	Errno syscall.Errno
}

func (e *StatusError) Error() string {
	if e.Status == StatusSystem && e.Errno != 0 {
		return fmt.Sprintf("%s: %s", StatusText(e.Status), e.Errno.Error())
	}
	return StatusText(e.Status)
}

// Unwrap exposes the OS error for StatusSystem
func (e *StatusError) Unwrap() error {
	if e.Errno != 0 {
		return e.Errno
	}
	return nil
}

// Errorf is a shorthand for a StatusError without errno
func Errorf(status int) error {
	return &StatusError{Status: status}
}

// SystemError wraps an OS error number as StatusSystem
func SystemError(errno syscall.Errno) error {
	return &StatusError{Status: StatusSystem, Errno: errno}
}

// StatusOf extracts the status code from an error.
// nil maps to StatusOK, foreign errors map to StatusBug.
func StatusOf(err error) (int, syscall.Errno) {
	if err == nil {
		return StatusOK, 0
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status, se.Errno
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return StatusSystem, errno
	}
	return StatusBug, 0
}
