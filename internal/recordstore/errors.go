package recordstore

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store failures.
type ErrorCode string

const (
	// CodeStorageUnavailable: the durable store's Get or Set failed.
	// The store never retries; the caller decides.
	CodeStorageUnavailable ErrorCode = "STORAGE_UNAVAILABLE"

	// CodeDataCorruption: a blob exists but does not decode to a valid
	// collection (bad JSON, missing required fields, duplicate ids).
	CodeDataCorruption ErrorCode = "DATA_CORRUPTION"

	// CodeInvalidRecord: the caller passed a record or id the store refuses.
	CodeInvalidRecord ErrorCode = "INVALID_RECORD"

	// CodeClosed: the store has been closed.
	CodeClosed ErrorCode = "CLOSED"
)

// Error is the typed failure returned by every Store operation.
type Error struct {
	Code ErrorCode
	Op   string
	Key  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("recordstore: %s: %s", e.Op, e.Code)
	if e.Key != "" {
		msg += fmt.Sprintf(" (key=%s)", e.Key)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsUnavailable reports whether err is a storage failure.
func IsUnavailable(err error) bool { return hasCode(err, CodeStorageUnavailable) }

// IsCorruption reports whether err is a data corruption failure.
func IsCorruption(err error) bool { return hasCode(err, CodeDataCorruption) }

// IsInvalid reports whether err rejects the caller's input.
func IsInvalid(err error) bool { return hasCode(err, CodeInvalidRecord) }

// IsClosed reports whether err came from a closed store.
func IsClosed(err error) bool { return hasCode(err, CodeClosed) }
