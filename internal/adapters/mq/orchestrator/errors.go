package orchestrator

import "errors"

var (
	// ErrCooldown is returned when the event type fired inside its cooldown window.
	ErrCooldown = errors.New("event type in cooldown")
	// ErrQueueFull is returned when the queue is full of higher priority work.
	ErrQueueFull = errors.New("queue full")
	// ErrStopped is returned once shutdown has begun.
	ErrStopped = errors.New("orchestrator stopped")
)
