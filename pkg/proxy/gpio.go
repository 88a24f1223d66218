package proxy

import (
	"fmt"
	"sync"

	"github.com/itohio/godrop/pkg/mux"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// GPIO drives the pin matrix directly from host GPIO lines, for builds
// where the board hangs off the host computer (e.g. a Raspberry Pi header)
// instead of a serial MCU. Identity is synthesized since there is no
// peripheral to ask.
type GPIO struct {
	mu    sync.Mutex
	pins  map[int]gpio.PinIO
	props Properties
	open  bool
}

var (
	hostInitOnce sync.Once
	hostInitErr  error
)

// DialGPIO resolves a board-pin to GPIO-line-name mapping against the host
// registry and returns a proxy driving those lines. A nil mapping uses
// DefaultGPIOMap.
func DialGPIO(mapping map[int]string, props Properties) (*GPIO, error) {
	hostInitOnce.Do(func() {
		_, hostInitErr = host.Init()
	})
	if hostInitErr != nil {
		return nil, fmt.Errorf("failed to init gpio host: %w", hostInitErr)
	}

	if mapping == nil {
		mapping = DefaultGPIOMap()
	}
	pins := make(map[int]gpio.PinIO, len(mapping))
	for pin, name := range mapping {
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio line %s (board pin %d) not found", name, pin)
		}
		pins[pin] = p
	}

	log.Debug().Int("lines", len(pins)).Msg("gpio proxy opened")
	return NewGPIO(pins, props), nil
}

// NewGPIO wraps already-resolved GPIO lines. Split from DialGPIO so tests
// can plug in fake pins.
func NewGPIO(pins map[int]gpio.PinIO, props Properties) *GPIO {
	return &GPIO{pins: pins, props: props, open: true}
}

// DefaultGPIOMap maps every board pin the driver owns onto the
// same-numbered host line ("GPIO2".."GPIO18").
func DefaultGPIOMap() map[int]string {
	m := make(map[int]string, mux.LastPin-mux.FirstPin+1)
	for pin := mux.FirstPin; pin <= mux.LastPin; pin++ {
		m[pin] = fmt.Sprintf("GPIO%d", pin)
	}
	return m
}

// PinMode sets the direction of a board pin's line.
func (g *GPIO) PinMode(pin int, mode PinMode) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.line(pin)
	if err != nil {
		return err
	}
	if mode == Input {
		if err := p.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			return fmt.Errorf("failed to set %s as input: %w", p.Name(), err)
		}
		return nil
	}
	// Direction latches on the first Out; lines start low like an MCU
	// coming out of reset.
	if err := p.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to set %s as output: %w", p.Name(), err)
	}
	return nil
}

// DigitalWrite drives a board pin's line to a level.
func (g *GPIO) DigitalWrite(pin int, level bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, err := g.line(pin)
	if err != nil {
		return err
	}
	if err := p.Out(gpio.Level(level)); err != nil {
		return fmt.Errorf("failed to drive %s: %w", p.Name(), err)
	}
	return nil
}

// SetVoltage is unavailable without an MCU: amplitude is set by the analog
// front end, not by a header line.
func (g *GPIO) SetVoltage(v float32) error {
	return fmt.Errorf("gpio proxy: waveform voltage control not available")
}

// SetFrequency is unavailable without an MCU.
func (g *GPIO) SetFrequency(hz float32) error {
	return fmt.Errorf("gpio proxy: waveform frequency control not available")
}

// Properties returns the synthesized identity block.
func (g *GPIO) Properties() (Properties, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.open {
		return Properties{}, fmt.Errorf("gpio proxy is closed")
	}
	return g.props, nil
}

// I2CScan probes the host's first I2C bus for responding devices, the way
// i2cdetect does.
func (g *GPIO) I2CScan() ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.open {
		return nil, fmt.Errorf("gpio proxy is closed")
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("failed to open i2c bus: %w", err)
	}
	defer bus.Close()

	var found []byte
	var probe [1]byte
	for addr := uint16(0x08); addr <= 0x77; addr++ {
		if err := bus.Tx(addr, nil, probe[:]); err == nil {
			found = append(found, byte(addr))
		}
	}
	return found, nil
}

// IsOpen reports whether the proxy is usable.
func (g *GPIO) IsOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.open
}

// Close floats all lines and marks the proxy closed. Safe to call more
// than once.
func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.open {
		return nil
	}
	g.open = false

	var firstErr error
	for _, p := range g.pins {
		if err := p.In(gpio.PullNoChange, gpio.NoEdge); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to release %s: %w", p.Name(), err)
		}
	}
	return firstErr
}

func (g *GPIO) line(pin int) (gpio.PinIO, error) {
	if !g.open {
		return nil, fmt.Errorf("gpio proxy is closed")
	}
	p, ok := g.pins[pin]
	if !ok {
		return nil, fmt.Errorf("board pin %d has no gpio mapping", pin)
	}
	return p, nil
}
