package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
)

func newRegionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "regions",
		Short: "List the regions the local endpoint table knows",
		Long: `Without --product, lists the regions of the table's regions list.
With --product, lists the regions that have a regional endpoint for it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := loadTable(cmd)
			if err != nil {
				return err
			}

			product, _ := cmd.Flags().GetString(FlagProduct)
			regions := table.Regions()
			if product != "" {
				regions = table.RegionsFor(domain.NewProductCode(product))
				if len(regions) == 0 {
					if host, ok := table.GlobalEndpoint(domain.NewProductCode(product)); ok {
						return fmt.Errorf("product %q has a single global endpoint: %s", product, host)
					}
					return fmt.Errorf("no regional endpoint for product %q", product)
				}
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.Join(regions, "\n"))
			return err
		},
	}
	cmd.Flags().String(FlagProduct, "", "Product code, ex: dts")
	return cmd
}
