// Package cmd implements the gatewayd CLI commands.
//
// Grounded on plexsphere-plexd/cmd/plexd/cmd/root.go: a package-level
// rootCmd with persistent flags, subcommands registered via init(), and a
// single exported Execute.
package cmd

import (
	"github.com/spf13/cobra"
)

var (
	configPath   string
	statsPath    string
	auditLogPath string
	metricsAddr  string
)

var rootCmd = &cobra.Command{
	Use:   "gatewayd",
	Short: "gatewayd is the order gateway daemon",
	Long: "gatewayd bridges upstream order submissions to a downstream exchange,\n" +
		"enforcing trading-hours session bracketing and a throttled send rate,\n" +
		"and tracking per-order latency to a stats sink.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "gateway.conf", "path to the gateway config file")
	rootCmd.PersistentFlags().StringVar(&statsPath, "stats", "stats.csv", "path to the latency stats CSV file")
	rootCmd.PersistentFlags().StringVar(&auditLogPath, "audit-log", "", "path to the optional audit log (disabled if empty)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to expose Prometheus metrics on")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
