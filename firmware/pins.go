//go:build tinygo

package main

import "machine"

const (
	// Board identity reported by the properties op
	BOARD_NAME       = "open_drop"
	HARDWARE_VERSION = "1.1"
	SOFTWARE_VERSION = "0.0.0"
	SERIAL_NUMBER    = 0
	CHANNEL_COUNT    = 68

	// Electrode drive waveform limits
	MIN_VOLTAGE   = 0
	MAX_VOLTAGE   = 200
	MIN_FREQUENCY = 0
	MAX_FREQUENCY = 10000

	// Multiplexer pin span: gates on wire pins 2-10, sources on 11-18
	FIRST_PIN = 2
	LAST_PIN  = 18

	// Serial configuration
	// A full channel update is 17 idle writes plus up to 68 channel pairs,
	// each a 9-byte frame both ways. 115200 baud moves ~11.5 kB/s, which
	// clears a worst-case update in well under 300 ms.
	UART_BAUD_RATE = 115200
)

// pinTable maps the logical pin numbers used on the wire to MCU pins.
var pinTable = [LAST_PIN + 1]machine.Pin{
	2:  machine.D2,
	3:  machine.D3,
	4:  machine.D4,
	5:  machine.D5,
	6:  machine.D6,
	7:  machine.D7,
	8:  machine.D8,
	9:  machine.D9,
	10: machine.D10,
	11: machine.D11,
	12: machine.D12,
	13: machine.D13,
	14: machine.D14,
	15: machine.D15,
	16: machine.D16,
	17: machine.D17,
	18: machine.D18,
}

// lookupPin returns the MCU pin for a wire pin number.
func lookupPin(pin byte) (machine.Pin, bool) {
	if pin < FIRST_PIN || pin > LAST_PIN {
		return machine.NoPin, false
	}
	return pinTable[pin], true
}
