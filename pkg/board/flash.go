package board

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// FlashFirmware rewrites the board firmware through the configured flasher.
// A disconnected session connects first so the target port is known and the
// board verified present. When exclusive is true the serial port is released
// before the flasher runs and the session stays disconnected afterwards;
// flashing tools need the port to themselves.
func (s *Session) FlashFirmware(ctx context.Context, hardwareVersion string, exclusive bool) error {
	s.mu.Lock()
	flasher := s.flasher
	s.mu.Unlock()
	if flasher == nil {
		return ErrNoFlasher
	}

	if !s.Connected() {
		if err := s.Connect(ctx, "", 0); err != nil {
			return err
		}
	}

	s.mu.Lock()
	port := s.port
	if exclusive {
		s.closeLocked()
	}
	s.mu.Unlock()

	log.Info().Str("port", port).Str("hardware", hardwareVersion).Msg("flashing firmware")
	if err := flasher.Flash(ctx, hardwareVersion, port); err != nil {
		return fmt.Errorf("%w: %w", ErrFlashFailed, err)
	}
	return nil
}
