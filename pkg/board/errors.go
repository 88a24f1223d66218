package board

import "errors"

// Sentinel errors of the driver. Concrete causes stay wrapped behind them;
// callers discriminate with errors.Is.
var (
	// ErrNoPortAvailable means port resolution found no candidate serial port.
	ErrNoPortAvailable = errors.New("no serial port available")
	// ErrTransportFailure means the transport failed at open/read/write level.
	ErrTransportFailure = errors.New("transport failure")
	// ErrNotConnected means the operation requires a live session.
	ErrNotConnected = errors.New("not connected")
	// ErrDeviceMismatch means the connected device does not report the
	// expected board type.
	ErrDeviceMismatch = errors.New("device identity mismatch")
	// ErrFlashFailed means the external flashing operation failed.
	ErrFlashFailed = errors.New("firmware flash failed")
	// ErrNoFlasher means no flashing collaborator is configured.
	ErrNoFlasher = errors.New("no flasher configured")
	// ErrOutOfRange means a channel index or waveform parameter falls
	// outside the board's limits.
	ErrOutOfRange = errors.New("parameter out of range")
)
