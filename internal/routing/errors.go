package routing

import (
	"errors"
	"fmt"
)

// Fatal engine errors. Both signal a defect in the authored network or the
// kinematics rather than a transient condition.
var (
	// ErrOffNetwork is returned when a position maps to no tile.
	ErrOffNetwork = errors.New("routing: position is off the tile network")

	// ErrMalformedIntersection is returned when an intersection tile has no
	// permitted exits for an arrival direction.
	ErrMalformedIntersection = errors.New("routing: malformed intersection")

	// ErrSpawnOnIntersection is returned when a vehicle would start on an
	// intersection tile, where its initial direction is undefined.
	ErrSpawnOnIntersection = errors.New("routing: vehicle cannot start on an intersection")

	// ErrDuplicateTile is returned when two authored tiles share a position.
	ErrDuplicateTile = errors.New("routing: duplicate tile position")

	// ErrMisplacedDevice is returned when a stop sign or stoplight is not
	// centered on a tile corner over an intersection.
	ErrMisplacedDevice = errors.New("routing: device does not sit on an intersection corner")
)

// ValidationError describes a network authoring fault found at construction.
type ValidationError struct {
	Code    string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the sentinel so callers can use errors.Is.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
