// Package board drives a digital microfluidics control board through the
// pin-level proxy running on its microcontroller. A Session owns the
// connection lifecycle, caches the board identity, and turns logical
// channel states into ordered pin writes via the mux package.
package board

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itohio/godrop/pkg/firmware"
	"github.com/itohio/godrop/pkg/mux"
	"github.com/itohio/godrop/pkg/proxy"
	"github.com/rs/zerolog/log"
)

// DefaultSettleDelay is how long a freshly opened link is left alone before
// the first request. Boards that reset when the port opens need the time to
// finish booting.
const DefaultSettleDelay = 2 * time.Second

// Session is a stateful connection to one control board. The zero value is
// not usable; construct with New. All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	dial    proxy.DialFunc
	ports   func() ([]proxy.Port, error)
	flasher firmware.Flasher

	polarity     mux.Polarity
	settle       time.Duration
	expectedName string

	port     string
	baud     int
	state    State
	conn     proxy.Conn
	identity *Identity
}

// Option adjusts a Session at construction time.
type Option func(*Session)

// WithDialer replaces the serial dialer. Tests install a mock here.
func WithDialer(dial proxy.DialFunc) Option {
	return func(s *Session) { s.dial = dial }
}

// WithPortLister replaces the enumerator consulted when no port is named.
func WithPortLister(ports func() ([]proxy.Port, error)) Option {
	return func(s *Session) { s.ports = ports }
}

// WithPolarity selects the electrode drive convention. The default is
// mux.ActiveLowIdle.
func WithPolarity(p mux.Polarity) Option {
	return func(s *Session) { s.polarity = p }
}

// WithSettleDelay overrides the post-open settle delay. Zero skips it.
func WithSettleDelay(d time.Duration) Option {
	return func(s *Session) { s.settle = d }
}

// WithExpectedName makes Connect verify that the board reports the given
// name, failing with ErrDeviceMismatch otherwise. Empty disables the check.
func WithExpectedName(name string) Option {
	return func(s *Session) { s.expectedName = name }
}

// WithFlasher installs the firmware flasher used by FlashFirmware.
func WithFlasher(f firmware.Flasher) Option {
	return func(s *Session) { s.flasher = f }
}

// New builds a disconnected session. port may be empty, in which case
// Connect binds to the first enumerated serial port. A zero baud selects
// proxy.DefaultBaudRate.
func New(port string, baud int, opts ...Option) *Session {
	if baud == 0 {
		baud = proxy.DefaultBaudRate
	}
	s := &Session{
		dial:     func(port string, baud int) (proxy.Conn, error) { return proxy.Dial(port, baud) },
		ports:    proxy.ListPorts,
		polarity: mux.ActiveLowIdle,
		settle:   DefaultSettleDelay,
		port:     port,
		baud:     baud,
		state:    Disconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect opens the link and prepares the board: it resolves the target
// port, waits out the boot settle delay, switches every multiplexer pin to
// output, parks the electrode array at idle, and reads the identity block.
// Connecting to the port and baud rate already in use is a no-op; any other
// target closes the current link first.
func (s *Session) Connect(ctx context.Context, port string, baud int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if baud == 0 {
		baud = s.baud
	}
	port, err := s.resolvePortLocked(port)
	if err != nil {
		return err
	}
	if s.connectedLocked() && s.port == port && s.baud == baud {
		return nil
	}
	s.closeLocked()

	s.state = Connecting
	conn, err := s.dial(port, baud)
	if err != nil {
		s.state = Disconnected
		return fmt.Errorf("%w: failed to open %s: %w", ErrTransportFailure, port, err)
	}

	if s.settle > 0 {
		select {
		case <-time.After(s.settle):
		case <-ctx.Done():
			conn.Close()
			s.state = Disconnected
			return fmt.Errorf("failed to settle %s: %w", port, ctx.Err())
		}
	}

	s.conn = conn
	s.port = port
	s.baud = baud
	if err := s.initLocked(); err != nil {
		s.closeLocked()
		return err
	}
	s.state = Connected
	log.Info().Str("port", port).Int("baud", baud).Str("board", s.identity.Name).Msg("board connected")
	return nil
}

// resolvePortLocked picks the port to open: the explicit request, else the
// port a previous Connect bound, else the first enumerated port.
func (s *Session) resolvePortLocked(port string) (string, error) {
	if port != "" {
		return port, nil
	}
	if s.port != "" {
		return s.port, nil
	}
	ports, err := s.ports()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoPortAvailable, err)
	}
	if len(ports) == 0 {
		return "", ErrNoPortAvailable
	}
	return ports[0].Name, nil
}

// initLocked prepares a fresh link: pin directions, idle pattern, identity.
func (s *Session) initLocked() error {
	for pin := mux.FirstPin; pin <= mux.LastPin; pin++ {
		if err := s.conn.PinMode(pin, proxy.Output); err != nil {
			return fmt.Errorf("%w: failed to configure pin %d: %w", ErrTransportFailure, pin, err)
		}
	}
	if err := s.clearLocked(); err != nil {
		return err
	}
	props, err := s.conn.Properties()
	if err != nil {
		return fmt.Errorf("%w: failed to read identity: %w", ErrTransportFailure, err)
	}
	id := identityFromProperties(props)
	if s.expectedName != "" && id.Name != s.expectedName {
		return fmt.Errorf("%w: board reports %q, want %q", ErrDeviceMismatch, id.Name, s.expectedName)
	}
	s.identity = &id
	return nil
}

// Disconnect releases the link. Calling it while disconnected is a no-op.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		log.Info().Str("port", s.port).Msg("board disconnected")
	}
	s.closeLocked()
}

// closeLocked drops the link and the cached identity. Close errors are not
// actionable at this point and are only logged.
func (s *Session) closeLocked() {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			log.Debug().Err(err).Str("port", s.port).Msg("close failed")
		}
		s.conn = nil
	}
	s.identity = nil
	s.state = Disconnected
}

// Connected reports whether the session holds a live link. A transport that
// collapsed underneath the session counts as disconnected; detecting that
// tears the session down.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectedLocked()
}

func (s *Session) connectedLocked() bool {
	if s.state != Connected {
		return false
	}
	if s.conn == nil || !s.conn.IsOpen() {
		s.closeLocked()
		return false
	}
	return true
}

// SetChannels drives the whole electrode array in one pass: everything goes
// back to idle first, then the truthy channels are energized in ascending
// order. Short states are padded with false, long ones truncated to the
// board's channel count.
func (s *Session) SetChannels(state ChannelState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connectedLocked() {
		return ErrNotConnected
	}
	n := s.identity.ChannelCount
	if n > mux.NumChannels {
		n = mux.NumChannels
	}
	state = state.normalized(n)
	if err := s.clearLocked(); err != nil {
		return err
	}
	for ch, on := range state {
		if !on {
			continue
		}
		if err := s.setChannelLocked(ch, true); err != nil {
			return err
		}
	}
	return nil
}

// SetChannel drives a single electrode without disturbing the rest of the
// array.
func (s *Session) SetChannel(channel int, on bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connectedLocked() {
		return ErrNotConnected
	}
	return s.setChannelLocked(channel, on)
}

// ClearAllChannels returns every electrode to idle.
func (s *Session) ClearAllChannels() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connectedLocked() {
		return ErrNotConnected
	}
	return s.clearLocked()
}

func (s *Session) setChannelLocked(channel int, on bool) error {
	writes, err := mux.ChannelWrites(channel, on, s.polarity)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutOfRange, err)
	}
	log.Debug().Int("channel", channel).Bool("on", on).Msg("drive channel")
	return s.writeLocked(writes)
}

func (s *Session) clearLocked() error {
	return s.writeLocked(mux.ClearWrites(s.polarity))
}

func (s *Session) writeLocked(writes []mux.PinWrite) error {
	for _, w := range writes {
		if err := s.conn.DigitalWrite(w.Pin, w.Level); err != nil {
			return s.transportErrLocked(fmt.Errorf("failed to write pin %d: %w", w.Pin, err))
		}
	}
	return nil
}

// transportErrLocked wraps a link failure and, when the transport has
// actually collapsed, tears the session down so the next call reports
// ErrNotConnected instead of hammering a dead port.
func (s *Session) transportErrLocked(err error) error {
	if s.conn != nil && !s.conn.IsOpen() {
		s.closeLocked()
	}
	return fmt.Errorf("%w: %w", ErrTransportFailure, err)
}

// SetWaveformVoltage sets the electrode drive amplitude. Values outside the
// range the board advertises are rejected without touching the link.
func (s *Session) SetWaveformVoltage(volts float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connectedLocked() {
		return ErrNotConnected
	}
	if r := s.identity.Voltage; !r.Contains(volts) {
		return fmt.Errorf("%w: voltage %g outside [%g, %g]", ErrOutOfRange, volts, r.Min, r.Max)
	}
	if err := s.conn.SetVoltage(volts); err != nil {
		return s.transportErrLocked(fmt.Errorf("failed to set voltage: %w", err))
	}
	return nil
}

// SetWaveformFrequency sets the electrode drive frequency. Values outside
// the range the board advertises are rejected without touching the link.
func (s *Session) SetWaveformFrequency(hertz float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connectedLocked() {
		return ErrNotConnected
	}
	if r := s.identity.Frequency; !r.Contains(hertz) {
		return fmt.Errorf("%w: frequency %g outside [%g, %g]", ErrOutOfRange, hertz, r.Min, r.Max)
	}
	if err := s.conn.SetFrequency(hertz); err != nil {
		return s.transportErrLocked(fmt.Errorf("failed to set frequency: %w", err))
	}
	return nil
}

// I2CDevices scans the board's I2C bus and returns the responding 7-bit
// addresses.
func (s *Session) I2CDevices() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connectedLocked() {
		return nil, ErrNotConnected
	}
	devices, err := s.conn.I2CScan()
	if err != nil {
		return nil, s.transportErrLocked(fmt.Errorf("failed to scan i2c bus: %w", err))
	}
	return devices, nil
}

// Identity returns a copy of the identity cached at connect time, or nil
// while disconnected.
func (s *Session) Identity() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil
	}
	id := *s.identity
	return &id
}

// RefreshIdentity re-reads the identity block from the board and replaces
// the cached copy.
func (s *Session) RefreshIdentity() (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connectedLocked() {
		return nil, ErrNotConnected
	}
	props, err := s.conn.Properties()
	if err != nil {
		return nil, s.transportErrLocked(fmt.Errorf("failed to read identity: %w", err))
	}
	id := identityFromProperties(props)
	s.identity = &id
	out := id
	return &out, nil
}

// snapshot returns the cached identity, or ErrNotConnected while no live
// link holds one. It never touches the transport.
func (s *Session) snapshot() (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connectedLocked() || s.identity == nil {
		return Identity{}, ErrNotConnected
	}
	return *s.identity, nil
}

// Name returns the board name.
func (s *Session) Name() (string, error) {
	id, err := s.snapshot()
	return id.Name, err
}

// HardwareVersion returns the board hardware revision.
func (s *Session) HardwareVersion() (string, error) {
	id, err := s.snapshot()
	return id.HardwareVersion, err
}

// SoftwareVersion returns the firmware version the board reports.
func (s *Session) SoftwareVersion() (string, error) {
	id, err := s.snapshot()
	return id.SoftwareVersion, err
}

// SerialNumber returns the board serial number.
func (s *Session) SerialNumber() (uint32, error) {
	id, err := s.snapshot()
	return id.SerialNumber, err
}

// ChannelCount returns the number of electrode channels the board reports.
func (s *Session) ChannelCount() (int, error) {
	id, err := s.snapshot()
	return id.ChannelCount, err
}

// VoltageRange returns the drive amplitude range the board accepts.
func (s *Session) VoltageRange() (Range, error) {
	id, err := s.snapshot()
	return id.Voltage, err
}

// FrequencyRange returns the drive frequency range the board accepts.
func (s *Session) FrequencyRange() (Range, error) {
	id, err := s.snapshot()
	return id.Frequency, err
}

// Port returns the serial port the session is bound to. It is seeded by New
// and updated by every successful Connect.
func (s *Session) Port() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Baud returns the configured baud rate.
func (s *Session) Baud() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.baud
}

// State returns the connection state, accounting for transports that
// collapsed since the last operation.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectedLocked()
	return s.state
}

// Polarity returns the electrode drive convention in use.
func (s *Session) Polarity() mux.Polarity {
	return s.polarity
}
