package static

import "errors"

var (
	// ErrRootRequired is returned when the root directory is empty or relative.
	ErrRootRequired = errors.New("static: absolute root directory is required")

	// ErrRootNotDirectory is returned when the root path is not a directory.
	ErrRootNotDirectory = errors.New("static: root is not a directory")
)
