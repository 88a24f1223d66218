// Package proxy talks to the board's microcontroller-hosted peripheral
// proxy: a small RPC surface for pin-level commands and identity queries.
// The serial backend speaks the framed protocol in frame.go; the mock and
// gpio backends stand in when no MCU is on the other end.
package proxy

// PinMode selects the direction of a digital pin.
type PinMode uint8

const (
	Input PinMode = iota
	Output
)

// String returns the lowercase mode name.
func (m PinMode) String() string {
	switch m {
	case Input:
		return "input"
	case Output:
		return "output"
	}
	return "unknown"
}

// Properties is the identity block the peripheral reports.
type Properties struct {
	Name            string
	HardwareVersion string
	SoftwareVersion string
	SerialNumber    uint32
	ChannelCount    int
	MinVoltage      float32
	MaxVoltage      float32
	MinFrequency    float32
	MaxFrequency    float32
}

// DefaultProperties is the identity a factory-fresh board reports.
func DefaultProperties() Properties {
	return Properties{
		Name:            "open_drop",
		HardwareVersion: "1.1",
		SoftwareVersion: "0.0.0",
		SerialNumber:    0,
		ChannelCount:    68,
		MinVoltage:      0,
		MaxVoltage:      200,
		MinFrequency:    0,
		MaxFrequency:    10e3,
	}
}

// Conn is an open link to the board's peripheral proxy (real or mocked).
type Conn interface {
	PinMode(pin int, mode PinMode) error
	DigitalWrite(pin int, level bool) error
	SetVoltage(v float32) error
	SetFrequency(hz float32) error
	Properties() (Properties, error)
	I2CScan() ([]byte, error)
	IsOpen() bool
	Close() error
}

// DialFunc opens a Conn on a serial port. Sessions take one so tests and
// alternative backends can stand in for real hardware.
type DialFunc func(port string, baud int) (Conn, error)

// Ensure every backend implements Conn.
var _ Conn = (*Serial)(nil)
var _ Conn = (*Mock)(nil)
var _ Conn = (*GPIO)(nil)
