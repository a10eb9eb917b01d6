package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownMetric     = errors.New("unknown metric type")
	ErrInvalidOption     = errors.New("winning option must be 1 or 2")
	ErrInvalidInput      = errors.New("invalid input")
)
