// Package relayctl implements the relayctl operator CLI's commands.
package relayctl

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	statusAddr string
)

var rootCmd = &cobra.Command{
	Use:   "relayctl",
	Short: "Operate a running relayd instance",
	Long:  "relayctl queries and administers a running hls-relay daemon over its status HTTP surface.",
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing relayctl command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&statusAddr, "status-addr", "http://127.0.0.1:8082", "relayd status API base URL")
	if err := viper.BindPFlag("status_addr", rootCmd.PersistentFlags().Lookup("status-addr")); err != nil {
		panic(fmt.Sprintf("failed to bind status-addr flag: %v", err))
	}

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(finalizeCmd)
	rootCmd.AddCommand(logsCmd)
}

func initConfig() {
	viper.SetEnvPrefix("RELAYCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func resolveStatusAddr() string {
	return viper.GetString("status_addr")
}
