package protocol

import "fmt"

// Status codes carried in service replies.
const (
	StatusOK             = 200
	StatusBadRequest     = 400
	StatusUnauthorized   = 401
	StatusPaymentNeeded  = 402
	StatusForbidden      = 403
	StatusNotFound       = 404
	StatusServerError    = 500
	StatusNotImplemented = 501
)

var statusText = map[int]string{
	StatusBadRequest:     "the request was invalid or cannot be otherwise served",
	StatusUnauthorized:   "the security key provided is not authorized to perform this operation",
	StatusPaymentNeeded:  "the request cannot be served as the payment is required to proceed",
	StatusForbidden:      "the request is understood but it has been refused or access is not allowed",
	StatusNotFound:       "the resource requested does not exist",
	StatusServerError:    "an unexpected condition was encountered and no more specific message is suitable",
	StatusNotImplemented: "the server either does not recognize the request method, or it lacks the ability to fulfill the request",
}

// Error is a non-success status returned by the service.
type Error struct {
	Status  int
	Message string
}

// Status errors for errors.Is matching. Any *Error with the same Status matches.
var (
	ErrBadRequest     = &Error{Status: StatusBadRequest, Message: statusText[StatusBadRequest]}
	ErrUnauthorized   = &Error{Status: StatusUnauthorized, Message: statusText[StatusUnauthorized]}
	ErrPaymentNeeded  = &Error{Status: StatusPaymentNeeded, Message: statusText[StatusPaymentNeeded]}
	ErrForbidden      = &Error{Status: StatusForbidden, Message: statusText[StatusForbidden]}
	ErrNotFound       = &Error{Status: StatusNotFound, Message: statusText[StatusNotFound]}
	ErrServerError    = &Error{Status: StatusServerError, Message: statusText[StatusServerError]}
	ErrNotImplemented = &Error{Status: StatusNotImplemented, Message: statusText[StatusNotImplemented]}
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("emitter: status %d", e.Status)
	}
	return fmt.Sprintf("emitter: status %d: %s", e.Status, e.Message)
}

// Is matches any *Error carrying the same status code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Status == e.Status
}

// ErrorFromStatus builds the error for a reply status, using the standard
// message for known codes.
func ErrorFromStatus(status int) *Error {
	msg, ok := statusText[status]
	if !ok {
		msg = "unknown error"
	}
	return &Error{Status: status, Message: msg}
}

// NewError builds the error carried by an error-topic event. An empty message
// falls back to the standard text for the status.
func NewError(status int, message string) *Error {
	if message == "" {
		return ErrorFromStatus(status)
	}
	return &Error{Status: status, Message: message}
}
