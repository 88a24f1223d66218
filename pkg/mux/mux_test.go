package mux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate(t *testing.T) {
	tests := []struct {
		name       string
		channel    int
		wantGate   int
		wantSource int
		wantErr    bool
	}{
		{name: "channel 0", channel: 0, wantGate: 0, wantSource: 1},
		{name: "channel 1", channel: 1, wantGate: 0, wantSource: 3},
		{name: "channel 2", channel: 2, wantGate: 0, wantSource: 6},
		{name: "channel 3", channel: 3, wantGate: 0, wantSource: 8},
		{name: "channel 4 - first of gate 1", channel: 4, wantGate: 1, wantSource: 1},
		{name: "channel 11 - last of gate 1", channel: 11, wantGate: 1, wantSource: 8},
		{name: "channel 12 - first of gate 2", channel: 12, wantGate: 2, wantSource: 1},
		{name: "channel 19 - last of gate 2", channel: 19, wantGate: 2, wantSource: 8},
		{name: "channel 60 - first of gate 8", channel: 60, wantGate: 8, wantSource: 1},
		{name: "channel 67 - last channel", channel: 67, wantGate: 8, wantSource: 8},
		{name: "negative channel", channel: -1, wantErr: true},
		{name: "channel past matrix", channel: 68, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, source, err := Locate(tt.channel)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantGate, gate)
			assert.Equal(t, tt.wantSource, source)
		})
	}
}

func TestLocate_GateGroups(t *testing.T) {
	// Beyond the four special-cased channels, every group of eight
	// consecutive channels shares one gate: 4..11 -> gate 1, 12..19 ->
	// gate 2, ..., 60..67 -> gate 8.
	for channel := 4; channel < NumChannels; channel++ {
		gate, source, err := Locate(channel)
		require.NoError(t, err)
		assert.Equal(t, (channel-4)/8+1, gate, "channel %d", channel)
		assert.Equal(t, (channel-4)%8+1, source, "channel %d", channel)
		assert.GreaterOrEqual(t, source, 1)
		assert.LessOrEqual(t, source, NumSources)
		assert.LessOrEqual(t, gate, NumGates-1)
	}
}

func TestChannelWrites_WritePair(t *testing.T) {
	// Every channel write is exactly one gate write and one source write,
	// with the source level the negation of the gate level.
	for _, mode := range []Polarity{ActiveLowIdle, ActiveHighIdle} {
		for _, state := range []bool{true, false} {
			for channel := 0; channel < NumChannels; channel++ {
				writes, err := ChannelWrites(channel, state, mode)
				require.NoError(t, err)
				require.Len(t, writes, 2)

				gate, source, err := Locate(channel)
				require.NoError(t, err)

				var gw, sw PinWrite
				if writes[0].Pin >= sourcePinBase+1 {
					sw, gw = writes[0], writes[1]
				} else {
					gw, sw = writes[0], writes[1]
				}

				assert.Equal(t, GatePin(gate), gw.Pin, "channel %d mode %s", channel, mode)
				assert.Equal(t, SourcePin(source), sw.Pin, "channel %d mode %s", channel, mode)
				assert.Equal(t, state, gw.Level)
				assert.Equal(t, !state, sw.Level)
			}
		}
	}
}

func TestChannelWrites_SpotChecks(t *testing.T) {
	tests := []struct {
		channel    int
		wantGate   int
		wantSource int
	}{
		{channel: 0, wantGate: 0, wantSource: 1},
		{channel: 3, wantGate: 0, wantSource: 8},
		{channel: 4, wantGate: 1, wantSource: 1},
		{channel: 11, wantGate: 1, wantSource: 8},
		{channel: 12, wantGate: 2, wantSource: 1},
		{channel: 67, wantGate: 8, wantSource: 8},
	}

	for _, tt := range tests {
		writes, err := ChannelWrites(tt.channel, true, ActiveLowIdle)
		require.NoError(t, err)
		require.Len(t, writes, 2)
		assert.Equal(t, GatePin(tt.wantGate), writes[0].Pin, "channel %d", tt.channel)
		assert.Equal(t, SourcePin(tt.wantSource), writes[1].Pin, "channel %d", tt.channel)
		assert.True(t, writes[0].Level)
		assert.False(t, writes[1].Level)
	}
}

func TestChannelWrites_Order(t *testing.T) {
	// ActiveLowIdle writes the gate first, ActiveHighIdle the source
	// first, matching the clear ordering of each convention.
	writes, err := ChannelWrites(10, true, ActiveLowIdle)
	require.NoError(t, err)
	assert.Equal(t, GatePin(1), writes[0].Pin)
	assert.Equal(t, SourcePin(7), writes[1].Pin)

	writes, err = ChannelWrites(10, true, ActiveHighIdle)
	require.NoError(t, err)
	assert.Equal(t, SourcePin(7), writes[0].Pin)
	assert.Equal(t, GatePin(1), writes[1].Pin)
}

func TestChannelWrites_OutOfRange(t *testing.T) {
	for _, channel := range []int{-1, NumChannels, 1000} {
		writes, err := ChannelWrites(channel, true, ActiveLowIdle)
		assert.Error(t, err, "channel %d", channel)
		assert.Nil(t, writes)
	}
}

func TestClearWrites_ActiveLowIdle(t *testing.T) {
	writes := ClearWrites(ActiveLowIdle)
	require.Len(t, writes, NumGates+NumSources)

	// Gates first, all driven HIGH.
	for i := 0; i < NumGates; i++ {
		assert.Equal(t, GatePin(i), writes[i].Pin)
		assert.True(t, writes[i].Level)
	}
	// Then sources, all driven LOW.
	for i := 0; i < NumSources; i++ {
		w := writes[NumGates+i]
		assert.Equal(t, SourcePin(i+1), w.Pin)
		assert.False(t, w.Level)
	}
}

func TestClearWrites_ActiveHighIdle(t *testing.T) {
	writes := ClearWrites(ActiveHighIdle)
	require.Len(t, writes, NumGates+NumSources)

	// Sources first, all driven HIGH.
	for i := 0; i < NumSources; i++ {
		assert.Equal(t, SourcePin(i+1), writes[i].Pin)
		assert.True(t, writes[i].Level)
	}
	// Then gates, all driven LOW.
	for i := 0; i < NumGates; i++ {
		w := writes[NumSources+i]
		assert.Equal(t, GatePin(i), w.Pin)
		assert.False(t, w.Level)
	}
}

func TestClearWrites_CoversEveryPin(t *testing.T) {
	for _, mode := range []Polarity{ActiveLowIdle, ActiveHighIdle} {
		seen := make(map[int]int)
		for _, w := range ClearWrites(mode) {
			seen[w.Pin]++
		}
		for pin := FirstPin; pin <= LastPin; pin++ {
			assert.Equal(t, 1, seen[pin], "pin %d mode %s", pin, mode)
		}
	}
}

func TestPinNumbers(t *testing.T) {
	assert.Equal(t, 2, GatePin(0))
	assert.Equal(t, 10, GatePin(8))
	assert.Equal(t, 11, SourcePin(1))
	assert.Equal(t, 18, SourcePin(8))
	assert.Equal(t, 2, FirstPin)
	assert.Equal(t, 18, LastPin)
}

func TestParsePolarity(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Polarity
		wantErr bool
	}{
		{name: "active low idle", input: "active_low_idle", want: ActiveLowIdle},
		{name: "active high idle", input: "active_high_idle", want: ActiveHighIdle},
		{name: "camel case", input: "ActiveLowIdle", want: ActiveLowIdle},
		{name: "padded", input: "  active_high_idle ", want: ActiveHighIdle},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "idle_high", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePolarity(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolarity_String(t *testing.T) {
	assert.Equal(t, "active_low_idle", ActiveLowIdle.String())
	assert.Equal(t, "active_high_idle", ActiveHighIdle.String())
	assert.Equal(t, "unknown", Polarity(99).String())
}
