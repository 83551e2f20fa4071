package rides

import (
	"errors"
	"fmt"
)

// Kind classifies engine errors so handlers can map them to responses
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindDuplicate
)

// Error carries a kind and a human-readable reason
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func validationErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func forbiddenErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func conflictErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func duplicateErr(format string, args ...interface{}) *Error {
	return &Error{Kind: KindDuplicate, Message: fmt.Sprintf(format, args...)}
}

// ErrKind extracts the Kind from an engine error, reporting ok=false for
// errors that did not originate here
func ErrKind(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsConflict reports whether err is a state-machine conflict, including a
// lost race on AcceptOffer or SubmitRating
func IsConflict(err error) bool {
	k, ok := ErrKind(err)
	return ok && k == KindConflict
}

// IsDuplicate reports whether err is a ledger uniqueness violation
func IsDuplicate(err error) bool {
	k, ok := ErrKind(err)
	return ok && k == KindDuplicate
}

// IsNotFound reports whether err means the referenced entity is absent or
// not visible to the caller
func IsNotFound(err error) bool {
	k, ok := ErrKind(err)
	return ok && k == KindNotFound
}
