package errors

import (
	"errors"
	"fmt"
	"io/fs"
)

// Store errors. Both are reported inside a *StoreError.
var (
	ErrStoreUnavailable = errors.New("store: workbook cannot be read or written")
	ErrStoreLocked      = errors.New("store: workbook is open in another program")
)

// Application/Flow specific errors
var (
	ErrNotLoggedIn     = errors.New("tmdb: not logged in")
	ErrFormNotFound    = errors.New("tmdb: edit form not found on page")
	ErrUnsupportedSite = errors.New("extract: unsupported video site")
	ErrNoTitleFound    = errors.New("extract: no title found on page")
	ErrInvalidTarget   = errors.New("tmdb: url is not a tv or movie page")
)

// StoreError is returned by the spreadsheet store when the workbook itself
// cannot be accessed. Per-row problems are never StoreErrors.
type StoreError struct {
	Op   string // "load", "save", "init"
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Retryable reports whether the operation may succeed once the user closes
// the workbook or fixes its permissions.
func (e *StoreError) Retryable() bool {
	return errors.Is(e.Err, ErrStoreLocked) || errors.Is(e.Err, fs.ErrPermission)
}

// IsRetryable reports whether err carries a retryable *StoreError.
func IsRetryable(err error) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return false
}
