package cmd

import (
	"fmt"

	"github.com/itohio/godrop/pkg/proxy"
	"github.com/spf13/cobra"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List available serial ports",
	Long: `Enumerate the serial ports visible on this host, with USB product and
serial-number metadata where the platform exposes it. Use this to pick a
port before connecting, or to verify the board enumerated at all.`,
	RunE: runPorts,
}

func init() {
	rootCmd.AddCommand(portsCmd)
}

func runPorts(cmd *cobra.Command, args []string) error {
	ports, err := proxy.ListPorts()
	if err != nil {
		return fmt.Errorf("list ports: %w", err)
	}

	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
		return nil
	}

	for _, p := range ports {
		if p.SerialNumber != "" {
			fmt.Printf("  %s\t%s (S/N %s)\n", p.Name, p.Description, p.SerialNumber)
			continue
		}
		fmt.Printf("  %s\t%s\n", p.Name, p.Description)
	}
	return nil
}
