package race

import "errors"

var (
	// ErrNoMatch is returned when every watcher finished without a match.
	ErrNoMatch = errors.New("no matching launch observed")

	// ErrBothFailed is returned when every watcher terminated on an error.
	ErrBothFailed = errors.New("all watchers failed")

	// ErrNoWatchers is returned by Race when no watcher is registered.
	ErrNoWatchers = errors.New("no watchers registered")
)
