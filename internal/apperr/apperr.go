// Package apperr defines the error taxonomy shared by the storefront stores.
//
// Validation and promo errors are returned to the caller for display. Load and
// persistence errors are recoverable: the owning component degrades to an
// empty or in-memory state and the error is surfaced as a notice.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an Error.
type Kind int

const (
	KindValidation Kind = iota
	KindPromo
	KindLoad
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindPromo:
		return "PROMO"
	case KindLoad:
		return "LOAD"
	case KindPersistence:
		return "PERSISTENCE"
	default:
		return "UNKNOWN"
	}
}

// Error is a classified failure. Op names the operation that failed
// ("cart.add", "wishlist.save") and Msg is safe to show to the user.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports malformed input to a store operation.
func Validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

// Validationf is Validation with formatting.
func Validationf(op, format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Promo reports an invalid or unknown promo code.
func Promo(op, msg string) *Error {
	return &Error{Kind: KindPromo, Op: op, Msg: msg}
}

// Load wraps a catalog fetch or parse failure.
func Load(op string, err error) *Error {
	return &Error{Kind: KindLoad, Op: op, Err: err}
}

// Persistence wraps a side-store read or write failure.
func Persistence(op string, err error) *Error {
	return &Error{Kind: KindPersistence, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return 0, false
}

func is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func IsValidation(err error) bool  { return is(err, KindValidation) }
func IsPromo(err error) bool       { return is(err, KindPromo) }
func IsLoad(err error) bool        { return is(err, KindLoad) }
func IsPersistence(err error) bool { return is(err, KindPersistence) }
