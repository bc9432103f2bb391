package relayctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Roenbaeck/hls-relay/internal/fsutil"
)

var logsCmd = &cobra.Command{
	Use:   "logs <stream-key>",
	Short: "Show recent uploader output for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		streamKey := args[0]
		if !fsutil.IsSafeIdentifier(streamKey) {
			return fmt.Errorf("invalid stream key %q", streamKey)
		}
		lines, err := fetchLogs(resolveStatusAddr(), streamKey)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}
