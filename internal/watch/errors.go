package watch

import "errors"

var (
	// ErrConnect is returned when a watcher cannot establish its stream.
	ErrConnect = errors.New("connect failed")

	// ErrConnectionLost is returned when an established stream drops abnormally.
	ErrConnectionLost = errors.New("connection lost")
)
