package heartbeat

import "errors"

var (
	ErrInvalidWindow = errors.New("heartbeat: window size must be >= 1")
	ErrInvalidDepth  = errors.New("heartbeat: buffer depth must be >= 1")

	// ErrNoPublisher is returned by New when no publish target is configured.
	ErrNoPublisher = errors.New("heartbeat: no state publisher configured")

	// ErrFinished is returned by operations on an engine after Finish.
	ErrFinished = errors.New("heartbeat: engine finished")
)
