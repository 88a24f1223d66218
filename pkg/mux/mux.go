// Package mux maps logical electrode channels onto the multiplexed
// gate/source pin matrix of the control board.
package mux

import (
	"fmt"
	"strings"
)

const (
	// NumGates is the number of gate pins on the board (indices 0-8).
	NumGates = 9
	// NumSources is the number of source pins per gate group (indices 1-8).
	NumSources = 8
	// NumChannels is the number of logical electrode channels the matrix
	// can address.
	NumChannels = 68

	// Gate and source indices are anchored to the board's digital pin
	// numbering: gates occupy pins 2-10, sources pins 11-18.
	gatePinBase   = 2
	sourcePinBase = 10

	// FirstPin and LastPin bound the span of digital pins the driver owns
	// and configures as outputs.
	FirstPin = gatePinBase
	LastPin  = sourcePinBase + NumSources
)

// Polarity selects between the two historical idle conventions of this
// board family. The physical board revision determines which one is safe;
// driving the wrong convention energizes electrodes that should be off.
type Polarity uint8

const (
	// ActiveLowIdle idles with all gates HIGH and all sources LOW.
	ActiveLowIdle Polarity = iota
	// ActiveHighIdle idles with all gates LOW and all sources HIGH.
	ActiveHighIdle
)

var polarityNames = map[Polarity]string{
	ActiveLowIdle:  "active_low_idle",
	ActiveHighIdle: "active_high_idle",
}

// String returns the configuration name of the polarity mode.
func (p Polarity) String() string {
	if name, ok := polarityNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePolarity parses a polarity mode name as it appears in configuration
// files.
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "active_low_idle", "activelowidle":
		return ActiveLowIdle, nil
	case "active_high_idle", "activehighidle":
		return ActiveHighIdle, nil
	}
	return ActiveLowIdle, fmt.Errorf("unknown polarity mode %q", s)
}

// gateIdle returns the level gates rest at under this convention.
func (p Polarity) gateIdle() bool { return p == ActiveLowIdle }

// sourceIdle returns the level sources rest at under this convention.
func (p Polarity) sourceIdle() bool { return p == ActiveHighIdle }

// PinWrite is a single digital pin write.
type PinWrite struct {
	Pin   int
	Level bool
}

// GatePin returns the physical pin number of a gate index (0-8).
func GatePin(gate int) int { return gatePinBase + gate }

// SourcePin returns the physical pin number of a source index (1-8).
func SourcePin(source int) int { return sourcePinBase + source }

// Locate returns the (gate, source) index pair that addresses a logical
// channel. The first four channels are special-cased onto gate 0; beyond
// them every gate group carries eight consecutive channels, with the gate
// selected by floor division.
func Locate(channel int) (gate, source int, err error) {
	if channel < 0 || channel >= NumChannels {
		return 0, 0, fmt.Errorf("channel %d out of range 0..%d", channel, NumChannels-1)
	}
	switch {
	case channel < 2:
		return 0, 2*channel + 1, nil
	case channel < 4:
		return 0, 2*channel + 2, nil
	default:
		return (channel-4)/8 + 1, (channel-4)%8 + 1, nil
	}
}

// ChannelWrites returns the pin writes that drive a single channel: one
// gate write at the requested level and one source write at its negation.
// The disabling family is written first per the polarity convention, so a
// half-applied write never energizes a neighboring electrode.
func ChannelWrites(channel int, state bool, mode Polarity) ([]PinWrite, error) {
	gate, source, err := Locate(channel)
	if err != nil {
		return nil, err
	}
	gw := PinWrite{Pin: GatePin(gate), Level: state}
	sw := PinWrite{Pin: SourcePin(source), Level: !state}
	if mode == ActiveHighIdle {
		return []PinWrite{sw, gw}, nil
	}
	return []PinWrite{gw, sw}, nil
}

// ClearWrites returns the idle pattern for the whole matrix: every gate and
// every source driven to the convention's resting level, disabling family
// first.
func ClearWrites(mode Polarity) []PinWrite {
	writes := make([]PinWrite, 0, NumGates+NumSources)
	if mode == ActiveHighIdle {
		writes = appendSourceIdle(writes, mode)
		return appendGateIdle(writes, mode)
	}
	writes = appendGateIdle(writes, mode)
	return appendSourceIdle(writes, mode)
}

func appendGateIdle(writes []PinWrite, mode Polarity) []PinWrite {
	for gate := 0; gate < NumGates; gate++ {
		writes = append(writes, PinWrite{Pin: GatePin(gate), Level: mode.gateIdle()})
	}
	return writes
}

func appendSourceIdle(writes []PinWrite, mode Polarity) []PinWrite {
	for source := 1; source <= NumSources; source++ {
		writes = append(writes, PinWrite{Pin: SourcePin(source), Level: mode.sourceIdle()})
	}
	return writes
}
