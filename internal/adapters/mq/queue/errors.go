package queue

import "errors"

var (
	// ErrDuplicate is returned when a request of the same event type is already queued.
	ErrDuplicate = errors.New("request of this event type already queued")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("queue closed")
)
