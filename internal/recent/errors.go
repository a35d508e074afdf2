package recent

import "errors"

var (
	// ErrNotFound reports an unknown record id.
	ErrNotFound = errors.New("recent file not found")
	// ErrUnavailable reports a record whose file can no longer be read. The
	// record has been removed.
	ErrUnavailable = errors.New("recent file unavailable")
)
