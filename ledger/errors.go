package ledger

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies ledger errors so the HTTP layer can map them to responses
// without inspecting messages.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindInvalidState
	KindConflict
	KindGateway
	KindSignature
)

type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Cause() error {
	return e.cause
}

func (e *Error) Unwrap() error {
	return e.cause
}

func E(kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func WrapE(kind Kind, cause error, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		cause:   cause,
	}
}

// KindOf returns the Kind carried by err, or zero when err is not a ledger error.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	if lerr, ok := err.(*Error); ok {
		return lerr.Kind
	}
	if lerr, ok := errors.Cause(err).(*Error); ok {
		return lerr.Kind
	}
	return 0
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
