package proxy

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"math"
)

// Wire protocol. Each request and response travels in an envelope:
//
//	2 bytes  payload length, big endian
//	n bytes  payload
//	4 bytes  IEEE CRC-32 of the payload, big endian
//
// A request payload is the op byte followed by its arguments. A response
// payload echoes the op byte, then a status byte, then any result data.
const (
	headerSize = 2
	crcSize    = 4
	maxPayload = 512
)

// Ops understood by the peripheral.
const (
	opPinMode      byte = 0x01
	opDigitalWrite byte = 0x02
	opSetVoltage   byte = 0x03
	opSetFrequency byte = 0x04
	opProperties   byte = 0x10
	opI2CScan      byte = 0x11
)

// Response status codes.
const (
	statusOK       byte = 0x00
	statusBadOp    byte = 0x01
	statusBadPin   byte = 0x02
	statusBadArg   byte = 0x03
	statusHardware byte = 0x04
)

// RemoteError is a failure reported by the peripheral itself rather than
// by the transport.
type RemoteError struct {
	Op   byte
	Code byte
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("peripheral rejected op 0x%02x: %s", e.Op, statusText(e.Code))
}

func statusText(code byte) string {
	switch code {
	case statusBadOp:
		return "unknown op"
	case statusBadPin:
		return "pin out of range"
	case statusBadArg:
		return "malformed arguments"
	case statusHardware:
		return "hardware fault"
	}
	return fmt.Sprintf("status 0x%02x", code)
}

// encodeFrame wraps a payload in the length/CRC envelope.
func encodeFrame(payload []byte) ([]byte, error) {
	if len(payload) == 0 || len(payload) > maxPayload {
		return nil, fmt.Errorf("payload size %d out of range 1..%d", len(payload), maxPayload)
	}
	frame := make([]byte, 0, headerSize+len(payload)+crcSize)
	frame = binary.BigEndian.AppendUint16(frame, uint16(len(payload)))
	frame = append(frame, payload...)
	frame = binary.BigEndian.AppendUint32(frame, crc32.ChecksumIEEE(payload))
	return frame, nil
}

// checkFrame verifies the CRC trailer of a received envelope body and
// returns the bare payload. buf holds payload bytes followed by the CRC.
func checkFrame(buf []byte) ([]byte, error) {
	if len(buf) < crcSize+1 {
		return nil, fmt.Errorf("frame body too short: %d bytes", len(buf))
	}
	payload := buf[:len(buf)-crcSize]
	want := binary.BigEndian.Uint32(buf[len(buf)-crcSize:])
	if got := crc32.ChecksumIEEE(payload); got != want {
		return nil, fmt.Errorf("frame CRC mismatch: got %08x, want %08x", got, want)
	}
	return payload, nil
}

// splitResponse validates a response payload against the op that was sent
// and returns the result data.
func splitResponse(payload []byte, op byte) ([]byte, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("response too short: %d bytes", len(payload))
	}
	if payload[0] != op {
		return nil, fmt.Errorf("response op 0x%02x does not match request op 0x%02x", payload[0], op)
	}
	if code := payload[1]; code != statusOK {
		return nil, &RemoteError{Op: op, Code: code}
	}
	return payload[2:], nil
}

func appendFloat32(dst []byte, f float32) []byte {
	return binary.BigEndian.AppendUint32(dst, math.Float32bits(f))
}

func readFloat32(data []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(data))
}

func appendString(dst []byte, s string) []byte {
	if len(s) > 0xFF {
		s = s[:0xFF]
	}
	dst = append(dst, byte(len(s)))
	return append(dst, s...)
}

func readString(data []byte) (string, []byte, error) {
	if len(data) < 1 {
		return "", nil, fmt.Errorf("truncated string")
	}
	n := int(data[0])
	if len(data) < 1+n {
		return "", nil, fmt.Errorf("truncated string: want %d bytes, have %d", n, len(data)-1)
	}
	return string(data[1 : 1+n]), data[1+n:], nil
}

// propertiesFixedSize is the byte count of the fixed-width head of the
// properties block: serial number, channel count and the four range bounds.
const propertiesFixedSize = 4 + 2 + 4*4

// appendProperties packs p into the wire layout: the fixed-width head
// followed by the three length-prefixed strings (name, hardware version,
// software version).
func appendProperties(dst []byte, p Properties) []byte {
	dst = binary.BigEndian.AppendUint32(dst, p.SerialNumber)
	dst = binary.BigEndian.AppendUint16(dst, uint16(p.ChannelCount))
	dst = appendFloat32(dst, p.MinVoltage)
	dst = appendFloat32(dst, p.MaxVoltage)
	dst = appendFloat32(dst, p.MinFrequency)
	dst = appendFloat32(dst, p.MaxFrequency)
	dst = appendString(dst, p.Name)
	dst = appendString(dst, p.HardwareVersion)
	return appendString(dst, p.SoftwareVersion)
}

// parseProperties unpacks a properties block.
func parseProperties(data []byte) (Properties, error) {
	if len(data) < propertiesFixedSize+3 {
		return Properties{}, fmt.Errorf("properties payload too short: %d bytes", len(data))
	}

	var p Properties
	p.SerialNumber = binary.BigEndian.Uint32(data)
	p.ChannelCount = int(binary.BigEndian.Uint16(data[4:]))
	p.MinVoltage = readFloat32(data[6:])
	p.MaxVoltage = readFloat32(data[10:])
	p.MinFrequency = readFloat32(data[14:])
	p.MaxFrequency = readFloat32(data[18:])

	rest := data[propertiesFixedSize:]
	var err error
	if p.Name, rest, err = readString(rest); err != nil {
		return Properties{}, fmt.Errorf("properties name: %w", err)
	}
	if p.HardwareVersion, rest, err = readString(rest); err != nil {
		return Properties{}, fmt.Errorf("properties hardware version: %w", err)
	}
	if p.SoftwareVersion, _, err = readString(rest); err != nil {
		return Properties{}, fmt.Errorf("properties software version: %w", err)
	}
	return p, nil
}

func levelByte(level bool) byte {
	if level {
		return 1
	}
	return 0
}
