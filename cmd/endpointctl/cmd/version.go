package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/endpointd/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the endpointctl version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "endpointctl "+version.String())
			return err
		},
	}
}
