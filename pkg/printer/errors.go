package printer

import (
	"context"
	"errors"
)

var (
	// ErrNoCapability means direct device printing is not available to the caller.
	ErrNoCapability = errors.New("printer: direct device printing not available")
	// ErrUserCancelled means the operator aborted device selection. It is terminal:
	// no other channel is tried.
	ErrUserCancelled = errors.New("printer: device selection cancelled")
	// ErrNoDevice means no device was chosen or configured.
	ErrNoDevice = errors.New("printer: no device selected")
	// ErrChannel wraps open and write failures on the device link.
	ErrChannel = errors.New("printer: device channel error")
	// ErrHostPrint wraps failures of the host print facility.
	ErrHostPrint = errors.New("printer: host print failed")
)

// IsTerminal reports whether err must stop printing without trying another channel.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrUserCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
