package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func areasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "areas",
		Short: "List configured areas",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			areas, err := httpClient.Areas(context.Background())
			if err != nil {
				return fmt.Errorf("list areas: %w", err)
			}

			out, err := formatAreas(areas, outputFormat)
			if err != nil {
				return fmt.Errorf("format areas: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}
}
