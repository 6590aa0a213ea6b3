package osd

import (
	"errors"
	"fmt"
)

// Error classes. Every error returned by Device matches exactly one of
// them with errors.Is.
var (
	ErrValidation    = errors.New("invalid argument")
	ErrSequence      = errors.New("overlay not reset")
	ErrHardwareFault = errors.New("hardware fault")
)

// Specific causes, each wrapping its class.
var (
	ErrRowRange       = fmt.Errorf("%w: row out of range", ErrValidation)
	ErrFilterRange    = fmt.Errorf("%w: filter mode out of range", ErrValidation)
	ErrMemConfigRange = fmt.Errorf("%w: memory config out of range", ErrValidation)
	ErrBootMode       = fmt.Errorf("%w: unknown boot mode", ErrValidation)
	ErrNoAck          = fmt.Errorf("%w: reset not acknowledged", ErrHardwareFault)
)

func transportError(op string, err error) error {
	return fmt.Errorf("osd: %s: %w: %w", op, ErrHardwareFault, err)
}
