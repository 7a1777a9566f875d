package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errAreaRequired = errors.New("--area flag is required")

func lsdbCmd() *cobra.Command {
	var area string

	cmd := &cobra.Command{
		Use:   "lsdb",
		Short: "Show the link-state database for an area",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if area == "" {
				return errAreaRequired
			}

			lsas, err := httpClient.LSDB(context.Background(), area)
			if err != nil {
				return fmt.Errorf("get lsdb: %w", err)
			}

			out, err := formatLSDB(lsas, outputFormat)
			if err != nil {
				return fmt.Errorf("format lsdb: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&area, "area", "", "area id to query (dotted-quad, required)")
	return cmd
}
