// Command relayctl is an operator CLI for a running relayd instance: it
// lists active sessions and can force-finalize a stuck one, talking to the
// status HTTP surface rather than touching the segment directory directly.
package main

import (
	"fmt"
	"os"

	"github.com/Roenbaeck/hls-relay/internal/relayctl"
)

func main() {
	if err := relayctl.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
