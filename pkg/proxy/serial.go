package proxy

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the rate the board's USB-serial bridge enumerates at.
	DefaultBaudRate = 115200

	// readTimeout bounds a single port read; readExact retries short reads
	// until requestTimeout.
	readTimeout    = 100 * time.Millisecond
	requestTimeout = 2 * time.Second
)

// Serial is a Conn over a physical serial link, one framed request in
// flight at a time.
type Serial struct {
	port string
	baud int

	mu   sync.Mutex
	conn serial.Port
	open bool
}

// Dial opens the serial port in 8N1 mode and returns a connected proxy.
func Dial(port string, baud int) (*Serial, error) {
	if baud == 0 {
		baud = DefaultBaudRate
	}

	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	conn, err := serial.Open(port, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", port, err)
	}
	if err := conn.SetReadTimeout(readTimeout); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", port, err)
	}

	log.Debug().Str("port", port).Int("baud", baud).Msg("serial proxy opened")
	return newSerial(port, baud, conn), nil
}

// newSerial wraps an already-open port. Split from Dial so tests can plug
// in an in-memory port.
func newSerial(port string, baud int, conn serial.Port) *Serial {
	return &Serial{port: port, baud: baud, conn: conn, open: true}
}

// PinMode configures the direction of a pin on the peripheral.
func (s *Serial) PinMode(pin int, mode PinMode) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	_, err := s.roundTrip(opPinMode, []byte{byte(pin), byte(mode)})
	return err
}

// DigitalWrite drives a pin to a level.
func (s *Serial) DigitalWrite(pin int, level bool) error {
	if err := checkPin(pin); err != nil {
		return err
	}
	_, err := s.roundTrip(opDigitalWrite, []byte{byte(pin), levelByte(level)})
	return err
}

// SetVoltage sets the electrode drive waveform amplitude.
func (s *Serial) SetVoltage(v float32) error {
	_, err := s.roundTrip(opSetVoltage, appendFloat32(nil, v))
	return err
}

// SetFrequency sets the electrode drive waveform frequency.
func (s *Serial) SetFrequency(hz float32) error {
	_, err := s.roundTrip(opSetFrequency, appendFloat32(nil, hz))
	return err
}

// Properties queries the board identity block.
func (s *Serial) Properties() (Properties, error) {
	body, err := s.roundTrip(opProperties, nil)
	if err != nil {
		return Properties{}, err
	}
	return parseProperties(body)
}

// I2CScan lists the device addresses the peripheral sees on its I2C bus.
func (s *Serial) I2CScan() ([]byte, error) {
	body, err := s.roundTrip(opI2CScan, nil)
	if err != nil {
		return nil, err
	}
	if len(body) < 1 {
		return nil, fmt.Errorf("i2c scan response too short")
	}
	n := int(body[0])
	if len(body) < 1+n {
		return nil, fmt.Errorf("i2c scan response truncated: want %d addresses, have %d bytes", n, len(body)-1)
	}
	return append([]byte(nil), body[1:1+n]...), nil
}

// IsOpen reports whether the link is usable. It turns false once Close is
// called or a port-level error marks the link dead.
func (s *Serial) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// Close releases the port. Safe to call more than once.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}
	s.open = false

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", s.port, err)
	}
	log.Debug().Str("port", s.port).Msg("serial proxy closed")
	return nil
}

// roundTrip sends one request and reads its response.
func (s *Serial) roundTrip(op byte, body []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, fmt.Errorf("serial proxy %s is closed", s.port)
	}

	payload := make([]byte, 0, 1+len(body))
	payload = append(payload, op)
	payload = append(payload, body...)

	frame, err := encodeFrame(payload)
	if err != nil {
		return nil, err
	}

	// Drop stale bytes from a previous aborted exchange.
	if err := s.conn.ResetInputBuffer(); err != nil {
		return nil, s.fail(fmt.Errorf("failed to reset input buffer: %w", err))
	}
	if _, err := s.conn.Write(frame); err != nil {
		return nil, s.fail(fmt.Errorf("failed to write frame: %w", err))
	}

	resp, err := s.readFrame()
	if err != nil {
		return nil, err
	}
	return splitResponse(resp, op)
}

// readFrame reads one length/CRC envelope from the port.
func (s *Serial) readFrame() ([]byte, error) {
	var header [headerSize]byte
	if err := s.readExact(header[:]); err != nil {
		return nil, s.fail(fmt.Errorf("failed to read frame header: %w", err))
	}

	size := int(binary.BigEndian.Uint16(header[:]))
	if size == 0 || size > maxPayload {
		return nil, fmt.Errorf("frame size %d out of range 1..%d", size, maxPayload)
	}

	buf := make([]byte, size+crcSize)
	if err := s.readExact(buf); err != nil {
		return nil, s.fail(fmt.Errorf("failed to read frame body: %w", err))
	}
	return checkFrame(buf)
}

// readExact fills buf, retrying short reads until requestTimeout. The port
// read timeout keeps individual Read calls bounded.
func (s *Serial) readExact(buf []byte) error {
	deadline := time.Now().Add(requestTimeout)
	off := 0
	for off < len(buf) {
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s waiting for %d bytes (got %d)", requestTimeout, len(buf), off)
		}
		n, err := s.conn.Read(buf[off:])
		if err != nil {
			return err
		}
		off += n
	}
	return nil
}

// fail marks the link dead when err is a port-level disconnection, so
// IsOpen reports false and the session can react.
func (s *Serial) fail(err error) error {
	if isDisconnectionError(err) {
		s.open = false
		log.Debug().Err(err).Str("port", s.port).Msg("serial proxy link lost")
	}
	return err
}

// isDisconnectionError reports whether err means the port itself is gone
// rather than a transient protocol failure.
func isDisconnectionError(err error) bool {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortNotFound, serial.PortClosed, serial.InvalidSerialPort:
			return true
		}
	}
	return false
}

func checkPin(pin int) error {
	if pin < 0 || pin > 0xFF {
		return fmt.Errorf("pin %d out of range 0..255", pin)
	}
	return nil
}
