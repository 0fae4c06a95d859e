package apperrors

import "errors"

// Error classes. Every sentinel below unwraps to exactly one of them so the
// transport layer can map outcomes without listing each sentinel.
var (
	NotFound  = errors.New("not found")
	Forbidden = errors.New("forbidden")
	Conflict  = errors.New("conflict")
	Invalid   = errors.New("invalid")
)

type classified struct {
	msg   string
	class error
}

func (e *classified) Error() string { return e.msg }

func (e *classified) Unwrap() error { return e.class }

func newError(class error, msg string) error {
	return &classified{msg: msg, class: class}
}

var ErrInvalidInput = newError(Invalid, "invalid input")
