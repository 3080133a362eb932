package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrCollision marks a destination that is already occupied.
	ErrCollision = errors.New("destination already exists")

	// ErrNotRegular marks a path that is not a regular file.
	ErrNotRegular = errors.New("not a regular file")

	// ErrInvalidPath marks a root or folder argument that cannot be used at all.
	ErrInvalidPath = errors.New("invalid path")
)

// CollisionError reports that Dst is occupied, so Src was left in place.
type CollisionError struct {
	Src string
	Dst string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("destination already exists: %s", e.Dst)
}

func (e *CollisionError) Is(target error) bool { return target == ErrCollision }

// IsCollision reports whether err is a destination collision.
func IsCollision(err error) bool {
	return errors.Is(err, ErrCollision)
}

// PathError is a call-level input error: the path handed to a scan or a
// reorganization does not exist or is not a directory.
type PathError struct {
	Path   string
	Reason string
	Err    error
}

func (e *PathError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Path, e.Reason)
}

func (e *PathError) Is(target error) bool { return target == ErrInvalidPath }

func (e *PathError) Unwrap() error { return e.Err }
