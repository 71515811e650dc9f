package device

import (
	"errors"
	"fmt"
)

// ErrLocalValidation is wrapped by errors raised before a command reaches
// the wire, e.g. an unknown trigger address for the current CCD
// configuration (spec §7, §8 invariant 9).
var ErrLocalValidation = errors.New("icl: local validation failed")

// ErrAlreadyStarted is returned by Manager.Start when called twice without
// an intervening Stop (spec §8 invariant 5).
var ErrAlreadyStarted = errors.New("icl: device manager already started")

// ErrNotStarted is returned by Manager.Stop when the manager is not
// currently started.
var ErrNotStarted = errors.New("icl: device manager not started")

// NoDevicesFoundError is returned by discovery when a class reports zero
// devices and the caller requested strictness.
type NoDevicesFoundError struct {
	Class string
}

func (e *NoDevicesFoundError) Error() string {
	return fmt.Sprintf("icl: no %s devices found", e.Class)
}
