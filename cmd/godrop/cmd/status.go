package cmd

import (
	"context"
	"fmt"

	"github.com/itohio/godrop/pkg/firmware"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Connect and print the board identity",
	Long: `Connect to the board, print its identity block (name, hardware and
firmware versions, serial number, channel count and waveform limits) and
report whether the firmware differs from the protocol version this driver
speaks.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	if err := s.Connect(context.Background(), "", 0); err != nil {
		return err
	}
	defer s.Disconnect()

	id := s.Identity()
	fmt.Printf("%s on %s @ %d baud\n", id, s.Port(), s.Baud())
	fmt.Printf("  voltage   %g..%g V\n", id.Voltage.Min, id.Voltage.Max)
	fmt.Printf("  frequency %g..%g Hz\n", id.Frequency.Min, id.Frequency.Max)
	fmt.Printf("  polarity  %s\n", s.Polarity())

	if firmware.NeedsUpdate(firmware.HostVersion, id.SoftwareVersion) {
		fmt.Printf("firmware update required: board runs %s, host speaks %s\n",
			id.SoftwareVersion, firmware.HostVersion)
	} else {
		fmt.Println("firmware up to date")
	}
	return nil
}
