package relayctl

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Roenbaeck/hls-relay/internal/fsutil"
)

var finalizeCmd = &cobra.Command{
	Use:   "finalize <stream-key>",
	Short: "Force-finalize a session, ending its playlist and stopping its uploader",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		streamKey := args[0]
		if !fsutil.IsSafeIdentifier(streamKey) {
			return fmt.Errorf("invalid stream key %q", streamKey)
		}
		if err := postFinalize(resolveStatusAddr(), streamKey); err != nil {
			return err
		}
		fmt.Printf("finalized %s\n", streamKey)
		return nil
	},
}
