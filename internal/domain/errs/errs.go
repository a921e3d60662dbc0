// Package errs defines the error kinds shared by the ledger engine.
//
// Calling layers map kinds to their own request-level codes via Code.
package errs

import (
	"errors"
	"strings"
)

// Sentinel error kinds. These allow errors.Is from callers.
var (
	ErrArgs      = errors.New("ERR_ARGS")
	ErrTimestamp = errors.New("ERR_TIMESTAMP")
	ErrSteamID   = errors.New("ERR_STEAMID")
	ErrCategory  = errors.New("ERR_CATEGORY")
	ErrCorrupt   = errors.New("ERR_CORRUPT")
)

var kinds = []error{ErrArgs, ErrTimestamp, ErrSteamID, ErrCategory, ErrCorrupt}

// Error carries the failing operation, its kind and an optional cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil {
		if e.Kind != nil {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// New returns an error of the given kind for op.
func New(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap returns an error of the given kind for op with cause err.
func Wrap(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Code returns the kind code of err ("ERR_ARGS", ...) or "" when err carries
// no known kind.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return ""
}
