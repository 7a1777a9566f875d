// Package commands implements the ospfctl CLI commands.
package commands

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// httpClient issues read-only GETs against the daemon's admin API.
	httpClient *apiClient

	// outputFormat controls the output format for all commands (table or json).
	outputFormat string

	// serverAddr is the ospfd admin API address (host:port).
	serverAddr string
)

// rootCmd is the top-level cobra command for ospfctl.
var rootCmd = &cobra.Command{
	Use:   "ospfctl",
	Short: "CLI client for the ospfd daemon",
	Long:  "ospfctl queries the ospfd daemon's read-only admin API for OSPF neighbor, LSDB, area, and routing-table state.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		httpClient = newAPIClient("http://"+serverAddr, &http.Client{Timeout: 10 * time.Second})
		return nil
	},
	// Silence cobra's built-in usage/error printing so we control it.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "addr", "localhost:8080",
		"ospfd admin API address (host:port)")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table",
		"output format: table, json")

	rootCmd.AddCommand(areasCmd())
	rootCmd.AddCommand(neighborsCmd())
	rootCmd.AddCommand(lsdbCmd())
	rootCmd.AddCommand(routesCmd())
	rootCmd.AddCommand(versionCmd())
}

// Execute runs the root command and exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
