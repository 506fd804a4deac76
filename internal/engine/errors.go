package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a conversion failed.
type ErrorKind string

const (
	KindSourceNotFound            ErrorKind = "source_not_found"
	KindNotADirectory             ErrorKind = "not_a_directory"
	KindWriteFailure              ErrorKind = "write_failure"
	KindDestinationCleanupFailure ErrorKind = "destination_cleanup_failure"
)

var (
	// ErrSourceNotFound is returned when the source directory does not exist.
	ErrSourceNotFound = errors.New("source directory not found")

	// ErrNotADirectory is returned when the source path exists but is not a directory.
	ErrNotADirectory = errors.New("source path is not a directory")
)

// WriteFailureError wraps any error raised while packing a directory:
// permission errors, full disks, interrupted writes, unreadable files.
type WriteFailureError struct {
	Cause error
}

func (e *WriteFailureError) Error() string {
	return fmt.Sprintf("failed to write archive: %v", e.Cause)
}

func (e *WriteFailureError) Unwrap() error {
	return e.Cause
}

// CleanupFailureError is returned when a partial archive could not be removed
// after a write failure. Primary holds the failure that triggered the cleanup.
type CleanupFailureError struct {
	Path    string
	Cause   error
	Primary error
}

func (e *CleanupFailureError) Error() string {
	return fmt.Sprintf("failed to remove partial archive %s: %v (after: %v)", e.Path, e.Cause, e.Primary)
}

func (e *CleanupFailureError) Unwrap() []error {
	return []error{e.Primary, e.Cause}
}

// KindOf reports the ErrorKind of err. It returns an empty kind for nil and
// KindWriteFailure for errors that carry no known kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}

	var cleanupErr *CleanupFailureError
	if errors.As(err, &cleanupErr) {
		return KindDestinationCleanupFailure
	}

	switch {
	case errors.Is(err, ErrSourceNotFound):
		return KindSourceNotFound
	case errors.Is(err, ErrNotADirectory):
		return KindNotADirectory
	default:
		return KindWriteFailure
	}
}
