package core

import (
	"fmt"

	"github.com/caffeineduck/ngxmod/abi"
)

// Status is the host's integer result convention. Non-positive values are
// result codes; positive values are HTTP status codes.
type Status abi.Int

const (
	OK       = Status(abi.OK)
	Error    = Status(abi.Error)
	Again    = Status(abi.Again)
	Busy     = Status(abi.Busy)
	Done     = Status(abi.Done)
	Declined = Status(abi.Declined)
	Abort    = Status(abi.Abort)
)

// StatusFromNative converts a host result without interpretation.
func StatusFromNative(rc abi.Int) Status {
	return Status(rc)
}

// Native returns the host encoding of s.
func (s Status) Native() abi.Int {
	return abi.Int(s)
}

func (s Status) IsOK() bool {
	return s == OK
}

// IsHTTP reports whether s carries an HTTP status code.
func (s Status) IsHTTP() bool {
	return s > 0
}

// Err returns nil for OK and a *StatusError otherwise.
func (s Status) Err() error {
	if s == OK {
		return nil
	}
	return &StatusError{Status: s}
}

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case Error:
		return "ERROR"
	case Again:
		return "AGAIN"
	case Busy:
		return "BUSY"
	case Done:
		return "DONE"
	case Declined:
		return "DECLINED"
	case Abort:
		return "ABORT"
	}
	if s > 0 {
		return fmt.Sprintf("HTTP %d", int(s))
	}
	return fmt.Sprintf("status(%d)", int(s))
}
