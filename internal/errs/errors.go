package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound = errors.New("not_found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
	// ErrUnprocessable is used for semantic validation failures (HTTP 422)
	ErrUnprocessable = errors.New("unprocessable")
	// ErrNotAnAccount indicates a payee name that does not resolve to an account row
	ErrNotAnAccount = errors.New("not_an_account")
	// ErrImmutable indicates an attempt to change immutable fields
	ErrImmutable = errors.New("immutable")
	// ErrNotTransfer indicates the transaction is not part of a transfer pair
	ErrNotTransfer = errors.New("not_transfer")
)
