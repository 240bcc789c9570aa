package inference

import "errors"

var (
	// ErrThrottled means the provider or the local request budget refused the call.
	ErrThrottled = errors.New("inference throttled")
	// ErrEmptyResponse means the provider answered with no usable text.
	ErrEmptyResponse = errors.New("inference returned empty response")
	// ErrProvider wraps every other provider failure.
	ErrProvider = errors.New("inference provider error")
)
