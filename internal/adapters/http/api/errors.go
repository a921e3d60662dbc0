package api

import "fmt"

// opError tags an error with the handler operation that produced it.
type opError struct {
	op  string
	err error
}

func (e *opError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *opError) Unwrap() error { return e.err }

// Wrap annotates err with op. The error kind of err is preserved for
// status mapping.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &opError{op: op, err: err}
}
