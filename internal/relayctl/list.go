package relayctl

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listJSON bool

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output raw JSON")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := fetchStatus(resolveStatusAddr())
		if err != nil {
			return err
		}

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(status)
		}

		fmt.Printf("host: cpu=%.1f%% mem=%.1f%% uptime=%ds\n\n", status.Host.CPUPercent, status.Host.MemoryPercent, status.Host.UptimeSeconds)

		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "STREAM_KEY\tSESSION_ID\tFINALIZED\tSEQ\tPENDING\tGAP\tTARGET\tUPLOADER\tUTIL")
		for _, s := range status.Sessions {
			fmt.Fprintf(w, "%s\t%s\t%t\t%d\t%d\t%t\t%s\t%t\t%.0f%%\n",
				s.StreamKey, s.SessionID, s.Finalized, s.LastWrittenSequence, s.PendingCount,
				s.GapArmed, s.Target, s.UploaderRunning, s.UploadUtilization*100)
		}
		return w.Flush()
	},
}
