//go:generate tinygo flash -target=arduino-mega2560

//go:build tinygo

package main

import (
	"encoding/binary"
	"hash/crc32"
	"machine"
	"math"
	"time"
)

// Wire protocol, mirroring the host driver. One request per envelope:
//
//	2 bytes  payload length, big endian
//	n bytes  payload: op byte + arguments
//	4 bytes  IEEE CRC-32 of the payload, big endian
//
// The response echoes the op byte, adds a status byte, then result data.
const (
	OP_PIN_MODE      = 0x01
	OP_DIGITAL_WRITE = 0x02
	OP_SET_VOLTAGE   = 0x03
	OP_SET_FREQUENCY = 0x04
	OP_PROPERTIES    = 0x10
	OP_I2C_SCAN      = 0x11

	STATUS_OK       = 0x00
	STATUS_BAD_OP   = 0x01
	STATUS_BAD_PIN  = 0x02
	STATUS_BAD_ARG  = 0x03
	STATUS_HARDWARE = 0x04

	MAX_PAYLOAD = 512
)

var (
	uart = machine.UART0
	i2c  = machine.I2C0

	// Current waveform settings; applied by the HV generator front end
	waveformVoltage   float32
	waveformFrequency float32

	payloadBuf [MAX_PAYLOAD]byte
	replyBuf   [MAX_PAYLOAD]byte
)

func main() {
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})
	i2c.Configure(machine.I2CConfig{})

	// Main loop: one framed request at a time
	for {
		payload, ok := readFrame()
		if !ok {
			continue
		}
		handleRequest(payload)
	}
}

// readFrame reads one envelope off the UART and verifies its CRC. A bad
// length or CRC drops the frame; the host times out and resends.
func readFrame() ([]byte, bool) {
	var header [2]byte
	readExact(header[:])

	size := int(binary.BigEndian.Uint16(header[:]))
	if size == 0 || size > MAX_PAYLOAD {
		return nil, false
	}

	payload := payloadBuf[:size]
	readExact(payload)

	var trailer [4]byte
	readExact(trailer[:])
	if crc32.ChecksumIEEE(payload) != binary.BigEndian.Uint32(trailer[:]) {
		return nil, false
	}
	return payload, true
}

// readExact blocks until buf is full.
func readExact(buf []byte) {
	for off := 0; off < len(buf); {
		if uart.Buffered() == 0 {
			time.Sleep(100 * time.Microsecond)
			continue
		}
		b, err := uart.ReadByte()
		if err != nil {
			continue
		}
		buf[off] = b
		off++
	}
}

// handleRequest dispatches one request payload and sends the response.
func handleRequest(payload []byte) {
	op := payload[0]
	args := payload[1:]

	// Response payload starts with the echoed op and a status placeholder
	reply := replyBuf[:2]
	reply[0] = op
	reply[1] = STATUS_OK

	switch op {
	case OP_PIN_MODE:
		reply[1] = doPinMode(args)
	case OP_DIGITAL_WRITE:
		reply[1] = doDigitalWrite(args)
	case OP_SET_VOLTAGE:
		reply[1] = doSetVoltage(args)
	case OP_SET_FREQUENCY:
		reply[1] = doSetFrequency(args)
	case OP_PROPERTIES:
		reply = appendProperties(reply)
	case OP_I2C_SCAN:
		reply = appendI2CScan(reply)
	default:
		reply[1] = STATUS_BAD_OP
	}

	writeFrame(reply)
}

func doPinMode(args []byte) byte {
	if len(args) != 2 {
		return STATUS_BAD_ARG
	}
	pin, ok := lookupPin(args[0])
	if !ok {
		return STATUS_BAD_PIN
	}
	mode := machine.PinInput
	if args[1] != 0 {
		mode = machine.PinOutput
	}
	pin.Configure(machine.PinConfig{Mode: mode})
	return STATUS_OK
}

func doDigitalWrite(args []byte) byte {
	if len(args) != 2 {
		return STATUS_BAD_ARG
	}
	pin, ok := lookupPin(args[0])
	if !ok {
		return STATUS_BAD_PIN
	}
	pin.Set(args[1] != 0)
	return STATUS_OK
}

func doSetVoltage(args []byte) byte {
	if len(args) != 4 {
		return STATUS_BAD_ARG
	}
	v := math.Float32frombits(binary.BigEndian.Uint32(args))
	if v != v || v < MIN_VOLTAGE || v > MAX_VOLTAGE {
		return STATUS_BAD_ARG
	}
	waveformVoltage = v
	return STATUS_OK
}

func doSetFrequency(args []byte) byte {
	if len(args) != 4 {
		return STATUS_BAD_ARG
	}
	hz := math.Float32frombits(binary.BigEndian.Uint32(args))
	if hz != hz || hz < MIN_FREQUENCY || hz > MAX_FREQUENCY {
		return STATUS_BAD_ARG
	}
	waveformFrequency = hz
	return STATUS_OK
}

// appendProperties packs the identity block: fixed-width head, then the
// three length-prefixed strings.
func appendProperties(reply []byte) []byte {
	reply = binary.BigEndian.AppendUint32(reply, SERIAL_NUMBER)
	reply = binary.BigEndian.AppendUint16(reply, CHANNEL_COUNT)
	reply = appendFloat32(reply, MIN_VOLTAGE)
	reply = appendFloat32(reply, MAX_VOLTAGE)
	reply = appendFloat32(reply, MIN_FREQUENCY)
	reply = appendFloat32(reply, MAX_FREQUENCY)
	reply = appendString(reply, BOARD_NAME)
	reply = appendString(reply, HARDWARE_VERSION)
	return appendString(reply, SOFTWARE_VERSION)
}

// appendI2CScan probes the 7-bit address space and appends a count followed
// by the responding addresses.
func appendI2CScan(reply []byte) []byte {
	countAt := len(reply)
	reply = append(reply, 0)

	var probe [1]byte
	for addr := uint16(0x08); addr <= 0x77; addr++ {
		if err := i2c.Tx(addr, nil, probe[:]); err == nil {
			reply = append(reply, byte(addr))
			reply[countAt]++
		}
	}
	return reply
}

func appendFloat32(dst []byte, f float32) []byte {
	return binary.BigEndian.AppendUint32(dst, math.Float32bits(f))
}

func appendString(dst []byte, s string) []byte {
	dst = append(dst, byte(len(s)))
	return append(dst, s...)
}

// writeFrame wraps a response payload in the length/CRC envelope.
func writeFrame(payload []byte) {
	var header [2]byte
	binary.BigEndian.PutUint16(header[:], uint16(len(payload)))
	uart.Write(header[:])
	uart.Write(payload)

	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], crc32.ChecksumIEEE(payload))
	uart.Write(trailer[:])
}
