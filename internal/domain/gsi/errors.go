package gsi

import "errors"

// ErrMalformedDocument is returned when the body is not a JSON object.
var ErrMalformedDocument = errors.New("malformed gsi document")
