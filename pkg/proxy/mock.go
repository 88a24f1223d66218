package proxy

import (
	"fmt"
	"sync"
)

// Write records a single digital write seen by the mock.
type Write struct {
	Pin   int
	Level bool
}

// Mock is an in-memory Conn that records every request in order. It backs
// hardware-free tests and the CLI's --mock flag.
type Mock struct {
	mu     sync.Mutex
	open   bool
	calls  int
	writes []Write
	modes  map[int]PinMode
	levels map[int]bool

	props     Properties
	devices   []byte
	voltage   float32
	frequency float32

	// Failure hooks. When set and returning an error, the op fails with it.
	OnPinMode      func(pin int, mode PinMode) error
	OnDigitalWrite func(pin int, level bool) error
	PropsErr       error
	CloseErr       error
}

// NewMock returns an open mock reporting the factory identity.
func NewMock() *Mock {
	return &Mock{
		open:   true,
		modes:  make(map[int]PinMode),
		levels: make(map[int]bool),
		props:  DefaultProperties(),
	}
}

// Dialer returns a DialFunc that reopens and hands out this mock
// regardless of the requested port.
func (m *Mock) Dialer() DialFunc {
	return func(port string, baud int) (Conn, error) {
		m.mu.Lock()
		m.open = true
		m.mu.Unlock()
		return m, nil
	}
}

// PinMode records a pin direction change.
func (m *Mock) PinMode(pin int, mode PinMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if !m.open {
		return fmt.Errorf("mock proxy is closed")
	}
	if m.OnPinMode != nil {
		if err := m.OnPinMode(pin, mode); err != nil {
			return err
		}
	}
	m.modes[pin] = mode
	return nil
}

// DigitalWrite records a pin write.
func (m *Mock) DigitalWrite(pin int, level bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if !m.open {
		return fmt.Errorf("mock proxy is closed")
	}
	if m.OnDigitalWrite != nil {
		if err := m.OnDigitalWrite(pin, level); err != nil {
			return err
		}
	}
	m.writes = append(m.writes, Write{Pin: pin, Level: level})
	m.levels[pin] = level
	return nil
}

// SetVoltage records the requested waveform amplitude.
func (m *Mock) SetVoltage(v float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if !m.open {
		return fmt.Errorf("mock proxy is closed")
	}
	m.voltage = v
	return nil
}

// SetFrequency records the requested waveform frequency.
func (m *Mock) SetFrequency(hz float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if !m.open {
		return fmt.Errorf("mock proxy is closed")
	}
	m.frequency = hz
	return nil
}

// Properties returns the configured identity block.
func (m *Mock) Properties() (Properties, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if !m.open {
		return Properties{}, fmt.Errorf("mock proxy is closed")
	}
	if m.PropsErr != nil {
		return Properties{}, m.PropsErr
	}
	return m.props, nil
}

// I2CScan returns the configured device addresses.
func (m *Mock) I2CScan() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if !m.open {
		return nil, fmt.Errorf("mock proxy is closed")
	}
	return append([]byte(nil), m.devices...), nil
}

// IsOpen reports whether the mock link is up.
func (m *Mock) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// Close drops the link. Returns CloseErr when set, but closes regardless.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return m.CloseErr
}

// Drop simulates losing the physical link: subsequent ops fail and IsOpen
// reports false, without going through Close.
func (m *Mock) Drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
}

// SetProperties replaces the identity the mock reports.
func (m *Mock) SetProperties(p Properties) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.props = p
}

// SetI2CDevices sets the addresses I2CScan returns.
func (m *Mock) SetI2CDevices(devices []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = append([]byte(nil), devices...)
}

// Writes returns a copy of the digital-write log.
func (m *Mock) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}

// ResetLog clears the digital-write log, keeping pin levels and modes.
func (m *Mock) ResetLog() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = nil
}

// Level returns the last level written to a pin.
func (m *Mock) Level(pin int) (level, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	level, ok = m.levels[pin]
	return level, ok
}

// Mode returns the configured direction of a pin.
func (m *Mock) Mode(pin int) (mode PinMode, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mode, ok = m.modes[pin]
	return mode, ok
}

// Calls returns how many proxy ops were attempted, including failed ones.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Voltage returns the last waveform amplitude set.
func (m *Mock) Voltage() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.voltage
}

// Frequency returns the last waveform frequency set.
func (m *Mock) Frequency() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frequency
}
