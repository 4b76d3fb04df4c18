package rate

import "fmt"

// Code identifies a caller-visible failure of GetCurrentRate.
type Code string

const (
	CodeNoDataAvailable Code = "NO_DATA_AVAILABLE"
	CodeInvalidOverride Code = "INVALID_OVERRIDE"
)

// Error is returned by Service.GetCurrentRate. Err holds the last underlying
// cause and is exposed through Unwrap.
type Error struct {
	Code    Code
	Message string
	Err     error
}

var (
	ErrNoDataAvailable = &Error{Code: CodeNoDataAvailable, Message: "no data available"}
	ErrInvalidOverride = &Error{Code: CodeInvalidOverride, Message: "invalid override value"}
)

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}
