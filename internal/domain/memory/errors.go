package memory

import "errors"

var (
	ErrRecordNotFound       = errors.New("memory record not found")
	ErrOutcomeAlreadySet    = errors.New("memory record already has a different outcome")
	ErrInvalidEffectiveness = errors.New("effectiveness must be positive, negative or neutral")
	ErrPersistence          = errors.New("memory persistence failed")
)
