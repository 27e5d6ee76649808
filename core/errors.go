package core

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicate     = errors.New("is duplicate")
	ErrPoolDestroyed = errors.New("pool already destroyed")
	ErrInvalidValue  = errors.New("invalid value")
)

// StatusError is a non-OK status surfaced as an error.
type StatusError struct {
	Op     string
	Status Status
}

func (e *StatusError) Error() string {
	if e.Op == "" {
		return "status " + e.Status.String()
	}
	return fmt.Sprintf("%s: status %s", e.Op, e.Status)
}

// AllocationError is the panic value raised when an arena cannot satisfy an
// allocation. It is recovered at the ABI boundary and terminates the
// configuration cycle or request that owned the arena.
type AllocationError struct {
	Size uintptr
	Err  error
}

func (e *AllocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("allocation of %d bytes failed: %v", e.Size, e.Err)
	}
	return fmt.Sprintf("allocation of %d bytes failed", e.Size)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}
