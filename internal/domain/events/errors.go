package events

import "errors"

var (
	ErrNotFound        = errors.New("event not found")
	ErrForbidden       = errors.New("not allowed to modify this event")
	ErrInvalidCapacity = errors.New("maxSpots must be at least 1")
)
