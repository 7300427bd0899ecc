package simplemunki

import (
	"errors"
	"fmt"
)

// Error classifications
var (
	// ErrFileDoesNotExist indicates the requested repo file was not found
	ErrFileDoesNotExist = errors.New("file does not exist")

	// ErrFileAlreadyExists indicates a create collided with an existing repo file
	ErrFileAlreadyExists = errors.New("file already exists")

	// ErrFileRead indicates a read from the repo failed
	ErrFileRead = errors.New("file read failed")

	// ErrFileWrite indicates a write to the repo failed
	ErrFileWrite = errors.New("file write failed")

	// ErrFileDelete indicates a delete from the repo failed
	ErrFileDelete = errors.New("file delete failed")
)

// FileError represents an error from an operation on a repo file
type FileError struct {
	Op       string
	Kind     string
	Pathname string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Kind, e.Pathname, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// fileError builds a FileError that matches class with errors.Is. The
// cause, when non-nil, stays reachable through the wrap chain.
func fileError(op, kind, pathname string, class, cause error) *FileError {
	err := class
	if cause != nil {
		err = fmt.Errorf("%w: %w", class, cause)
	}
	return &FileError{Op: op, Kind: kind, Pathname: pathname, Err: err}
}
