package board

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/itohio/godrop/pkg/proxy"
)

// Range is a closed [Min, Max] interval of a board parameter.
type Range struct {
	Min float32
	Max float32
}

// Contains reports whether v lies inside the range. NaN is never inside.
func (r Range) Contains(v float32) bool {
	return !math32.IsNaN(v) && v >= r.Min && v <= r.Max
}

// Identity is the identity block reported by a connected board. The
// session caches one per connection; it is absent while disconnected.
type Identity struct {
	Name            string
	HardwareVersion string
	SoftwareVersion string
	SerialNumber    uint32
	ChannelCount    int
	Voltage         Range
	Frequency       Range
}

// String renders the identity the way the host historically displayed it.
func (id Identity) String() string {
	return fmt.Sprintf("%s v%s (Firmware: %s, S/N %03d), %d channels",
		id.Name, id.HardwareVersion, id.SoftwareVersion, id.SerialNumber, id.ChannelCount)
}

// identityFromProperties maps the wire-level property block to an Identity.
func identityFromProperties(p proxy.Properties) Identity {
	return Identity{
		Name:            p.Name,
		HardwareVersion: p.HardwareVersion,
		SoftwareVersion: p.SoftwareVersion,
		SerialNumber:    p.SerialNumber,
		ChannelCount:    p.ChannelCount,
		Voltage:         Range{Min: p.MinVoltage, Max: p.MaxVoltage},
		Frequency:       Range{Min: p.MinFrequency, Max: p.MaxFrequency},
	}
}

// ChannelState is the per-channel electrode state, index = logical channel
// number. Callers produce one per protocol step; the session normalizes it
// to the board's channel count before mapping.
type ChannelState []bool

// normalized pads with false or truncates so the result has exactly n
// entries.
func (s ChannelState) normalized(n int) ChannelState {
	if len(s) == n {
		return s
	}
	out := make(ChannelState, n)
	copy(out, s)
	return out
}
