package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrOutOfRange = errors.New("span outside ledger")
	ErrShortWrite = errors.New("short write")
)
