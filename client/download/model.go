package download

import (
	"errors"
	"fmt"
)

// ChunkSize is the size of the buffer used to stream a body to disk.
const ChunkSize = 32 << 10

var (
	ErrCreateDestination     = errors.New("destination create failed")
	ErrWrite                 = errors.New("destination write failed")
	ErrContentLengthMismatch = errors.New("content length mismatch")
	ErrChecksumMismatch      = errors.New("checksum mismatch")
	ErrDownloadCancelled     = errors.New("download cancelled")
)

// Error wraps a sentinel error with additional detail.
type Error struct {
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}
