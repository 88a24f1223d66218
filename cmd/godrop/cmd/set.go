package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/itohio/godrop/pkg/board"
	"github.com/itohio/godrop/pkg/mux"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <channels>",
	Short: "Set the electrode channel states",
	Long: `Drive the electrode array to the requested state. Channels are given
either as a comma-separated list of channel indices to energize, or as a
0/1 bitstring where position equals channel number. The board always passes
through the all-off idle pattern before the new state is applied.

Examples:
  godrop set 0,4,12
  godrop set 10001000000010`,
	Args: cobra.ExactArgs(1),
	RunE: runSet,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Park every electrode at idle",
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(clearCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	state, err := parseChannelState(args[0])
	if err != nil {
		return err
	}

	s, err := newSession()
	if err != nil {
		return err
	}
	if err := s.Connect(context.Background(), "", 0); err != nil {
		return err
	}
	defer s.Disconnect()

	if err := s.SetChannels(state); err != nil {
		return err
	}

	on := make([]string, 0, len(state))
	for ch, level := range state {
		if level {
			on = append(on, strconv.Itoa(ch))
		}
	}
	if len(on) == 0 {
		fmt.Println("all channels off")
		return nil
	}
	fmt.Printf("channels on: %s\n", strings.Join(on, ", "))
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	s, err := newSession()
	if err != nil {
		return err
	}
	if err := s.Connect(context.Background(), "", 0); err != nil {
		return err
	}
	defer s.Disconnect()

	if err := s.ClearAllChannels(); err != nil {
		return err
	}
	fmt.Println("all channels cleared")
	return nil
}

// parseChannelState accepts either a comma-separated index list ("0,4,12")
// or a 0/1 bitstring ("1010...") and returns the channel state it denotes.
func parseChannelState(arg string) (board.ChannelState, error) {
	if !strings.Contains(arg, ",") && strings.Trim(arg, "01") == "" && len(arg) > 1 {
		state := make(board.ChannelState, len(arg))
		for i, c := range arg {
			state[i] = c == '1'
		}
		return state, nil
	}

	state := make(board.ChannelState, mux.NumChannels)
	for _, field := range strings.Split(arg, ",") {
		ch, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil {
			return nil, fmt.Errorf("bad channel %q: %w", field, err)
		}
		if ch < 0 || ch >= mux.NumChannels {
			return nil, fmt.Errorf("channel %d out of range 0..%d", ch, mux.NumChannels-1)
		}
		state[ch] = true
	}
	return state, nil
}
