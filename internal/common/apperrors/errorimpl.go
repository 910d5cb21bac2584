package apperrors

import (
	"errors"
	"strings"
)

// appError implements Error.
type appError struct {
	msg        string  // primary error message
	base       error   // template error for errors.Is/As compatibility
	causes     []error // underlying errors attached with Err or MsgErr
	statuscode int     // HTTP status code
}

// Error returns the primary message only.
func (e *appError) Error() string {
	return e.msg
}

// ErrorAll returns the message followed by every attached cause, in the form
// "msg: cause1; cause2". Messages returned to the shell use this form.
func (e *appError) ErrorAll() string {
	parts := make([]string, 0, len(e.causes))
	for _, err := range e.causes {
		if err == nil {
			continue
		}
		parts = append(parts, err.Error())
	}
	if len(parts) == 0 {
		return e.msg
	}
	return e.msg + ": " + strings.Join(parts, "; ")
}

// Unwrap returns the template error.
func (e *appError) Unwrap() error {
	return e.base
}

// Causes returns the attached causes in the order they were added.
func (e *appError) Causes() []error {
	return e.causes
}

// New creates a fresh error using the current error as a template.
func (e *appError) New(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		statuscode: e.statuscode,
	}
}

// Msg creates a new error with a new message. Causes of the receiver are kept.
func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:        msg,
		base:       e,
		causes:     e.causes,
		statuscode: e.statuscode,
	}
}

// MsgErr creates a new error with a message and the given causes.
func (e *appError) MsgErr(msg string, errs ...error) Error {
	return &appError{
		msg:        msg,
		base:       e,
		causes:     append(append([]error{}, e.causes...), errs...),
		statuscode: e.statuscode,
	}
}

// Err attaches causes while keeping the current message.
func (e *appError) Err(errs ...error) Error {
	return e.MsgErr(e.msg, errs...)
}

// SetStatusCode returns a shallow copy with an updated status code.
// The copy still matches the receiver with errors.Is.
func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statuscode = code
	cp.base = e
	return &cp
}

// StatusCode returns the HTTP status code, 0 if unset.
func (e *appError) StatusCode() int {
	return e.statuscode
}

// Is reports whether target is in the template chain or among the causes.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if t, ok := target.(*appError); ok && t == e {
		return true
	}
	if e.base != nil && errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.causes {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// New creates a root-level error with the given message.
func New(msg string) Error {
	return &appError{
		msg: msg,
	}
}
