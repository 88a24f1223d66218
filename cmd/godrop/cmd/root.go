package cmd

import (
	"fmt"
	"os"

	"github.com/itohio/godrop/pkg/board"
	"github.com/itohio/godrop/pkg/config"
	"github.com/itohio/godrop/pkg/mux"
	"github.com/itohio/godrop/pkg/proxy"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile  string
	portFlag string
	baudFlag int
	useMock  bool
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "godrop",
	Short: "Digital microfluidics control board driver",
	Long: `Drive an OpenDrop-style digital microfluidics board over its serial
peripheral proxy: enumerate ports, query the board identity, set electrode
channel states, and hand the port over to an external firmware flasher.

Examples:
  godrop ports                       # List candidate serial ports
  godrop status                      # Connect and print the board identity
  godrop set 0,4,12                  # Energize channels 0, 4 and 12
  godrop set 1010                    # Same thing as a 0/1 bitstring
  godrop clear                       # Park every electrode at idle
  godrop flash --hardware 1.1        # Run the configured flashing command`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "godrop.yaml", "configuration file")
	rootCmd.PersistentFlags().StringVarP(&portFlag, "port", "p", "", "serial port (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&baudFlag, "baud", "b", 0, "baud rate (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "drive an in-memory mock board instead of hardware")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// newSession builds a board session from the configuration file with flag
// overrides applied.
func newSession() (*board.Session, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	polarity, err := mux.ParsePolarity(cfg.Board.Polarity)
	if err != nil {
		return nil, fmt.Errorf("config board.polarity: %w", err)
	}

	opts := []board.Option{
		board.WithPolarity(polarity),
		board.WithSettleDelay(cfg.Board.SettleDelay),
		board.WithExpectedName(cfg.Board.ExpectedName),
	}
	if cfg.Flash.Command != "" {
		opts = append(opts, board.WithFlasher(execFlasher(cfg.Flash.Command)))
	}

	port := cfg.Serial.Port
	if portFlag != "" {
		port = portFlag
	}
	baud := cfg.Serial.BaudRate
	if baudFlag != 0 {
		baud = baudFlag
	}

	if useMock {
		m := proxy.NewMock()
		props := proxy.DefaultProperties()
		props.Name = cfg.Mock.Name
		props.HardwareVersion = cfg.Mock.HardwareVersion
		props.SoftwareVersion = cfg.Mock.SoftwareVersion
		props.ChannelCount = cfg.Mock.ChannelCount
		m.SetProperties(props)
		opts = append(opts,
			board.WithDialer(m.Dialer()),
			board.WithPortLister(func() ([]proxy.Port, error) {
				return []proxy.Port{{Name: "mock", Description: "mock board"}}, nil
			}),
			board.WithSettleDelay(0),
		)
	}

	return board.New(port, baud, opts...), nil
}
