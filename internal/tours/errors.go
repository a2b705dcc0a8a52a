package tours

import "fmt"

// Kind classifies a request failure.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindUnauthorized:
		return "unauthorized"
	}
	return "unknown"
}

// Error is a terminal per-request failure with a client-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Is reports whether target is the bare sentinel of the same kind, so that
// errors.Is(err, ErrNotFound) matches any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrValidation   = &Error{Kind: KindValidation}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
)

// Client-facing messages.
const (
	MsgMissingFields     = "Missing required fields"
	MsgTourNotFound      = "Tour not found"
	MsgTourExists        = "Tour with this ID already exists"
	MsgTourHasLegs       = "Cannot delete tour with existing legs. Delete the legs first."
	MsgLegNotFound       = "Tour leg not found"
	MsgUnauthorized      = "Unauthorized"
	MsgInvalidFlightDate = "Invalid flight_date (use YYYY-MM-DD)"
)

// Validationf returns a validation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a not-found error with the given message.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict returns a conflict error with the given message.
func Conflict(msg string) error {
	return &Error{Kind: KindConflict, Message: msg}
}
