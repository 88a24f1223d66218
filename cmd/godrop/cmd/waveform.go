package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var voltageCmd = &cobra.Command{
	Use:   "voltage <volts>",
	Short: "Set the electrode drive amplitude",
	Args:  cobra.ExactArgs(1),
	RunE:  runVoltage,
}

var frequencyCmd = &cobra.Command{
	Use:   "frequency <hertz>",
	Short: "Set the electrode drive frequency",
	Args:  cobra.ExactArgs(1),
	RunE:  runFrequency,
}

func init() {
	rootCmd.AddCommand(voltageCmd)
	rootCmd.AddCommand(frequencyCmd)
}

func runVoltage(cmd *cobra.Command, args []string) error {
	v, err := strconv.ParseFloat(args[0], 32)
	if err != nil {
		return fmt.Errorf("bad voltage %q: %w", args[0], err)
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	if err := s.Connect(context.Background(), "", 0); err != nil {
		return err
	}
	defer s.Disconnect()

	if err := s.SetWaveformVoltage(float32(v)); err != nil {
		return err
	}
	fmt.Printf("waveform voltage set to %g V\n", v)
	return nil
}

func runFrequency(cmd *cobra.Command, args []string) error {
	hz, err := strconv.ParseFloat(args[0], 32)
	if err != nil {
		return fmt.Errorf("bad frequency %q: %w", args[0], err)
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	if err := s.Connect(context.Background(), "", 0); err != nil {
		return err
	}
	defer s.Disconnect()

	if err := s.SetWaveformFrequency(float32(hz)); err != nil {
		return err
	}
	fmt.Printf("waveform frequency set to %g Hz\n", hz)
	return nil
}
