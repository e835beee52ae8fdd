// Package phxerr declares the error kinds the core raises, per spec §7.
// Codec errors are plain sentinels; lifecycle and boundary errors carry a
// cause or state so callers can log or branch on them without string
// matching.
package phxerr

import (
	"errors"
	"fmt"
)

// Sentinel codec errors.
var (
	// ErrBadSize is returned when a payload is not exactly 20 bytes. A frame
	// of the wrong length is reported as ErrNotPhoenix instead.
	ErrBadSize = errors.New("phoenix: bad size")

	// ErrBadRange is returned when a decoded field falls outside its
	// documented range.
	ErrBadRange = errors.New("phoenix: value out of range")

	// ErrNotPhoenix is returned by unwrap when manufacturer data does not
	// match the magic/company-id/length frame rules.
	ErrNotPhoenix = errors.New("phoenix: not a phoenix frame")

	// ErrNoLocationYet indicates the precision finder has no receiver-side
	// location fix; callers should render a searching state.
	ErrNoLocationYet = errors.New("phoenix: no receiver location yet")
)

// BleUnavailableError reports that the peripheral or central cannot be used
// in its current platform state.
type BleUnavailableError struct {
	State string
}

func (e *BleUnavailableError) Error() string {
	return fmt.Sprintf("phoenix: ble unavailable: %s", e.State)
}

// TransmissionError wraps a peripheral start-advertising failure.
type TransmissionError struct {
	Cause error
}

func (e *TransmissionError) Error() string {
	return fmt.Sprintf("phoenix: transmission error: %v", e.Cause)
}

func (e *TransmissionError) Unwrap() error { return e.Cause }

// ScanFailedError wraps a central scan-start failure.
type ScanFailedError struct {
	Cause error
}

func (e *ScanFailedError) Error() string {
	return fmt.Sprintf("phoenix: scan failed: %v", e.Cause)
}

func (e *ScanFailedError) Unwrap() error { return e.Cause }

// SensorUnavailableError reports a single non-fatal sensor stream failure;
// fusion degrades the affected flags rather than propagating this further.
type SensorUnavailableError struct {
	Modality string
	Cause    error
}

func (e *SensorUnavailableError) Error() string {
	return fmt.Sprintf("phoenix: sensor %q unavailable: %v", e.Modality, e.Cause)
}

func (e *SensorUnavailableError) Unwrap() error { return e.Cause }
