// Package apperrors provides chained application errors. An error is derived from a
// template error with New, Msg or MsgErr, so callers can match a whole family with
// errors.Is while still getting a specific human-readable message. Each error also
// carries an HTTP status code used by the command server.
package apperrors

// Error defines the interface for application errors. All methods that produce an
// error return a fresh value; the receiver is never mutated.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // creates a new error using current as template
	Msg(msg string) Error                  // creates a new error with message, derived from current
	MsgErr(msg string, err ...error) Error // creates error with message and attaches causes
	Err(err ...error) Error                // attaches causes to the current error
	SetStatusCode(int) Error               // sets HTTP status code for the error
	StatusCode() int                       // returns the current status code
	ErrorAll() string                      // returns message followed by attached causes
	Causes() []error                       // returns the attached causes
}
