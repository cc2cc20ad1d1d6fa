package world

import (
	"errors"
	"fmt"
)

var (
	ErrBadColor    = errors.New("color component out of range")
	ErrBadEnergy   = errors.New("energy out of range")
	ErrCapacity    = errors.New("population limit reached")
	ErrNotFound    = errors.New("element not found")
	ErrBadSnapshot = errors.New("invalid snapshot")
	ErrInvariant   = errors.New("world invariant violated")
)

func errInvalidBounds(b Bounds) error {
	return fmt.Errorf("bounds min %v exceeds max %v", b.Min, b.Max)
}

func errBadResourceType(t ResourceType) error {
	return fmt.Errorf("unknown resource type %q", string(t))
}
