package gift

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestFailed is the single failure kind surfaced by every store backend.
	ErrRequestFailed = errors.New("store request failed")

	// ErrInvalidInput is returned for nil stores and bad constructor options.
	ErrInvalidInput = errors.New("invalid input")
)

// OpError wraps a backend failure with the store operation that produced it.
// It matches both ErrRequestFailed and the underlying cause.
type OpError struct {
	Op  string
	Err error
}

func (e OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, ErrRequestFailed)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrRequestFailed, e.Err)
}

func (e OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRequestFailed}
	}
	return []error{ErrRequestFailed, e.Err}
}

func opErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var oe OpError
	if errors.As(err, &oe) {
		return err
	}
	return OpError{Op: op, Err: err}
}

// IsRequestFailure reports whether err is a store-request failure.
func IsRequestFailure(err error) bool { return errors.Is(err, ErrRequestFailed) }
