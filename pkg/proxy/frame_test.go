package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFrame(t *testing.T) {
	frame, err := encodeFrame([]byte{opDigitalWrite, 12, 1})
	require.NoError(t, err)

	// 2-byte length, payload, 4-byte CRC.
	require.Len(t, frame, 2+3+4)
	assert.Equal(t, byte(0), frame[0])
	assert.Equal(t, byte(3), frame[1])
	assert.Equal(t, []byte{opDigitalWrite, 12, 1}, frame[2:5])

	payload, err := checkFrame(frame[2:])
	require.NoError(t, err)
	assert.Equal(t, []byte{opDigitalWrite, 12, 1}, payload)
}

func TestEncodeFrame_SizeLimits(t *testing.T) {
	_, err := encodeFrame(nil)
	assert.Error(t, err)

	_, err = encodeFrame(make([]byte, maxPayload+1))
	assert.Error(t, err)

	_, err = encodeFrame(make([]byte, maxPayload))
	assert.NoError(t, err)
}

func TestCheckFrame_CorruptCRC(t *testing.T) {
	frame, err := encodeFrame([]byte{opPinMode, 5, byte(Output)})
	require.NoError(t, err)

	body := append([]byte(nil), frame[2:]...)
	body[0] ^= 0xFF

	_, err = checkFrame(body)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "CRC mismatch")
}

func TestCheckFrame_TooShort(t *testing.T) {
	_, err := checkFrame([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestSplitResponse(t *testing.T) {
	tests := []struct {
		name     string
		payload  []byte
		op       byte
		wantBody []byte
		wantErr  bool
	}{
		{
			name:     "ok with body",
			payload:  []byte{opI2CScan, statusOK, 1, 0x20},
			op:       opI2CScan,
			wantBody: []byte{1, 0x20},
		},
		{
			name:     "ok empty body",
			payload:  []byte{opDigitalWrite, statusOK},
			op:       opDigitalWrite,
			wantBody: []byte{},
		},
		{
			name:    "remote status error",
			payload: []byte{opDigitalWrite, statusBadPin},
			op:      opDigitalWrite,
			wantErr: true,
		},
		{
			name:    "op echo mismatch",
			payload: []byte{opPinMode, statusOK},
			op:      opDigitalWrite,
			wantErr: true,
		},
		{
			name:    "too short",
			payload: []byte{opPinMode},
			op:      opPinMode,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := splitResponse(tt.payload, tt.op)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}

func TestSplitResponse_RemoteErrorCode(t *testing.T) {
	_, err := splitResponse([]byte{opSetVoltage, statusBadArg}, opSetVoltage)
	require.Error(t, err)

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, opSetVoltage, remote.Op)
	assert.Equal(t, statusBadArg, remote.Code)
	assert.Contains(t, remote.Error(), "malformed arguments")
}

func TestProperties_WireRoundTrip(t *testing.T) {
	want := Properties{
		Name:            "open_drop",
		HardwareVersion: "1.1",
		SoftwareVersion: "0.0.0",
		SerialNumber:    42,
		ChannelCount:    68,
		MinVoltage:      0,
		MaxVoltage:      200,
		MinFrequency:    0,
		MaxFrequency:    10e3,
	}

	got, err := parseProperties(appendProperties(nil, want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseProperties_Truncated(t *testing.T) {
	full := appendProperties(nil, DefaultProperties())

	// Every prefix short of the full block must fail, never panic.
	for n := 0; n < len(full); n++ {
		_, err := parseProperties(full[:n])
		assert.Error(t, err, "prefix length %d", n)
	}

	_, err := parseProperties(full)
	assert.NoError(t, err)
}

func TestReadString(t *testing.T) {
	s, rest, err := readString([]byte{3, 'a', 'b', 'c', 0xFF})
	require.NoError(t, err)
	assert.Equal(t, "abc", s)
	assert.Equal(t, []byte{0xFF}, rest)

	_, _, err = readString(nil)
	assert.Error(t, err)

	_, _, err = readString([]byte{4, 'a', 'b'})
	assert.Error(t, err)
}
