package model

import "errors"

// Error kinds shared by every layer. Concrete failures wrap exactly one of
// these so callers can branch with errors.Is without knowing the package
// that produced them.
var (
	ErrNotFound     = errors.New("not found")
	ErrPrecondition = errors.New("precondition violated")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

// Reason is a concrete, user-presentable failure of a given kind.
type Reason struct {
	kind error
	code string
	msg  string
}

// NewReason declares a failure with a stable code and message.
func NewReason(kind error, code, msg string) *Reason {
	return &Reason{kind: kind, code: code, msg: msg}
}

func (r *Reason) Error() string { return r.msg }

// Unwrap exposes the kind.
func (r *Reason) Unwrap() error { return r.kind }

// Code is the stable machine-readable identifier.
func (r *Reason) Code() string { return r.code }

// Kind returns the kind the reason belongs to.
func (r *Reason) Kind() error { return r.kind }

// CodeOf returns the code of the first Reason in err's chain, or "".
func CodeOf(err error) string {
	var r *Reason
	if errors.As(err, &r) {
		return r.code
	}
	return ""
}
