// Package firmware gates firmware-update decisions and defines the flash
// capability boundary. Flashing itself is an external operation; the
// driver only decides whether one is needed and hands over the port.
package firmware

import "context"

// HostVersion is the peripheral protocol version this driver speaks. A
// board reporting anything else should be reflashed before use.
const HostVersion = "0.0.0"

// NeedsUpdate reports whether the board firmware differs from what the
// host expects. Exact string comparison: any difference, newer or older,
// calls for a reflash.
func NeedsUpdate(hostVersion, deviceVersion string) bool {
	return hostVersion != deviceVersion
}

// Flasher performs the external firmware flashing operation for a given
// hardware revision over a named port. Treated as opaque and long-running.
type Flasher interface {
	Flash(ctx context.Context, hardwareVersion, port string) error
}

// FlasherFunc adapts a function to the Flasher interface.
type FlasherFunc func(ctx context.Context, hardwareVersion, port string) error

// Flash implements Flasher.
func (f FlasherFunc) Flash(ctx context.Context, hardwareVersion, port string) error {
	return f(ctx, hardwareVersion, port)
}
