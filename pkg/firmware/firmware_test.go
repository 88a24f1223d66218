package firmware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNeedsUpdate(t *testing.T) {
	tests := []struct {
		name   string
		host   string
		device string
		want   bool
	}{
		{name: "identical", host: "1.2.0", device: "1.2.0", want: false},
		{name: "device behind", host: "1.2.0", device: "1.1.9", want: true},
		{name: "device ahead", host: "1.2.0", device: "1.3.0", want: true},
		{name: "empty device", host: "1.2.0", device: "", want: true},
		{name: "both zero", host: "0.0.0", device: "0.0.0", want: false},
		{name: "no fuzzy matching", host: "1.2.0", device: "1.2", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsUpdate(tt.host, tt.device))
		})
	}
}

func TestFlasherFunc(t *testing.T) {
	var gotVersion, gotPort string
	f := FlasherFunc(func(ctx context.Context, hardwareVersion, port string) error {
		gotVersion = hardwareVersion
		gotPort = port
		return nil
	})

	err := f.Flash(context.Background(), "2.1", "/dev/ttyACM0")
	assert.NoError(t, err)
	assert.Equal(t, "2.1", gotVersion)
	assert.Equal(t, "/dev/ttyACM0", gotPort)

	boom := errors.New("flash tool exited 1")
	f = FlasherFunc(func(ctx context.Context, hardwareVersion, port string) error {
		return boom
	})
	assert.ErrorIs(t, f.Flash(context.Background(), "2.1", "/dev/ttyACM0"), boom)
}
