package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrRecordExists is returned when adding a record that already exists.
	ErrRecordExists = errors.New("record already exists")

	// ErrRecordNotFound is returned when updating a record that does not exist.
	ErrRecordNotFound = errors.New("record not found")
)

// Fault is a transient failure of the remote service. The same call often
// succeeds when repeated.
type Fault struct {
	// Op is the operation that failed, for example "query_test_cases".
	Op string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return fmt.Sprintf("webservice fault in %s: %v", f.Op, f.Err)
}

// Unwrap returns the underlying cause.
func (f *Fault) Unwrap() error {
	return f.Err
}

// NewFault wraps err as a transient fault of op.
func NewFault(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Fault{Op: op, Err: err}
}

// IsFault reports whether err is, or wraps, a *Fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}
