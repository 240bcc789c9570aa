package service

import "errors"

// ErrUnauthorized is returned when a telemetry document carries the wrong token.
var ErrUnauthorized = errors.New("telemetry token mismatch")
