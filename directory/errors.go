package directory

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConflict is returned when a write lost to a concurrent change, or
	// when a directory with the requested id already exists.
	ErrConflict = errors.New("directories: conflict")

	// ErrNotFound is returned when a directory or item doesn't exist.
	ErrNotFound = errors.New("directories: not found")

	// ErrForbidden is returned when the caller may not access the owner's tree.
	ErrForbidden = errors.New("directories: forbidden")

	// ErrInvalidArgument is returned when a request fails validation.
	ErrInvalidArgument = errors.New("directories: invalid argument")

	// ErrNotAllowed is returned for operations that are never permitted on
	// the home directory.
	ErrNotAllowed = errors.New("directories: not allowed")

	// ErrInternalDefect is returned when a request could not be built. It
	// indicates a bug in this package, not bad input.
	ErrInternalDefect = errors.New("directories: internal defect")

	// ErrPartialFailure is matched by *PartialMoveError.
	ErrPartialFailure = errors.New("directories: move partially applied")
)

// PartialMoveError is returned by a non-atomic move when the items were
// added to the target but the follow-up write failed. The items are then
// present in both directories.
type PartialMoveError struct {
	Owner  string
	Source string
	Target string
	Items  []string
	cause  error
}

func (e *PartialMoveError) Error() string {
	return fmt.Sprintf("directories: items [%s] were added to %s but not removed from %s: %v",
		strings.Join(e.Items, ", "), e.Target, e.Source, e.cause)
}

// Is reports the error as ErrPartialFailure.
func (e *PartialMoveError) Is(target error) bool {
	return target == ErrPartialFailure
}

func (e *PartialMoveError) Unwrap() error {
	return e.cause
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
