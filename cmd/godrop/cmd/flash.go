package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/itohio/godrop/pkg/firmware"
	"github.com/spf13/cobra"
)

var (
	flashHardware  string
	flashExclusive bool
)

var flashCmd = &cobra.Command{
	Use:   "flash",
	Short: "Run the configured external firmware flasher",
	Long: `Connect to resolve the board's port, then hand it over to the flash
command configured under flash.command in the configuration file. With
--exclusive the serial port is released before the flasher runs; most
flashing tools need the port to themselves.`,
	RunE: runFlash,
}

func init() {
	flashCmd.Flags().StringVar(&flashHardware, "hardware", "", "target hardware version (default: as reported by the board)")
	flashCmd.Flags().BoolVar(&flashExclusive, "exclusive", true, "release the serial port before flashing")
	rootCmd.AddCommand(flashCmd)
}

func runFlash(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}

	hardware := flashHardware
	if hardware == "" {
		if err := s.Connect(context.Background(), "", 0); err != nil {
			return err
		}
		if hardware, err = s.HardwareVersion(); err != nil {
			return err
		}
	}

	if err := s.FlashFirmware(context.Background(), hardware, flashExclusive); err != nil {
		return err
	}
	fmt.Printf("flashed firmware for hardware %s on %s\n", hardware, s.Port())
	return nil
}

// execFlasher adapts a command template to the flash capability. {port} and
// {hardware} placeholders are substituted before the command runs.
func execFlasher(template string) firmware.FlasherFunc {
	return func(ctx context.Context, hardwareVersion, port string) error {
		line := strings.ReplaceAll(template, "{port}", port)
		line = strings.ReplaceAll(line, "{hardware}", hardwareVersion)
		fields := strings.Fields(line)
		if len(fields) == 0 {
			return fmt.Errorf("flash command is empty")
		}

		c := exec.CommandContext(ctx, fields[0], fields[1:]...)
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("%s: %w", fields[0], err)
		}
		return nil
	}
}
