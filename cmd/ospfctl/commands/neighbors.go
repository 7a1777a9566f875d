package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func neighborsCmd() *cobra.Command {
	var area string

	cmd := &cobra.Command{
		Use:   "neighbors",
		Short: "List OSPF neighbors",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			rows, err := httpClient.Neighbors(context.Background(), area)
			if err != nil {
				return fmt.Errorf("list neighbors: %w", err)
			}

			out, err := formatNeighbors(rows, outputFormat)
			if err != nil {
				return fmt.Errorf("format neighbors: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&area, "area", "", "filter by area id (dotted-quad)")
	return cmd
}
