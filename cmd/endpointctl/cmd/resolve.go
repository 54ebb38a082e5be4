package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/endpointd/internal/domain"
	"github.com/MrSnakeDoc/endpointd/internal/endpoint"
	"github.com/MrSnakeDoc/endpointd/internal/location"
)

const (
	FlagRegion           = "region"
	FlagProduct          = "product"
	FlagServiceCode      = "service-code"
	FlagEndpointType     = "endpoint-type"
	FlagLocationEndpoint = "location-endpoint"
	FlagLocationScheme   = "location-scheme"
	FlagOffline          = "offline"
	FlagTimeout          = "timeout"
	FlagShowSource       = "show-source"
)

func newResolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the endpoint of a product in a region",
		Example: `  endpointctl resolve --region cn-hangzhou --product ecs
  endpointctl resolve --region cn-hangzhou --product ecs --service-code ecs --endpoint-type innerAPI
  endpointctl resolve --region cn-hangzhou --product ram --offline`,
		Args: cobra.NoArgs,
		RunE: runResolve,
	}

	cmd.Flags().String(FlagRegion, "", "Region ID, ex: cn-hangzhou")
	cmd.Flags().String(FlagProduct, "", "Product code, ex: ecs")
	cmd.Flags().String(FlagServiceCode, "", "Product id in the location service, enables remote lookups")
	cmd.Flags().String(FlagEndpointType, "", "openAPI (default) or innerAPI")
	cmd.Flags().String(FlagLocationEndpoint, location.DefaultEndpoint, "Location service host")
	cmd.Flags().String(FlagLocationScheme, "https", "Location service scheme (http or https)")
	cmd.Flags().Bool(FlagOffline, false, "Never call the location service")
	cmd.Flags().Duration(FlagTimeout, 10*time.Second, "Overall resolution timeout")
	cmd.Flags().Bool(FlagShowSource, false, "Print the answering source after the hostname")
	_ = cmd.MarkFlagRequired(FlagRegion)
	_ = cmd.MarkFlagRequired(FlagProduct)

	return cmd
}

func runResolve(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	region, _ := flags.GetString(FlagRegion)
	product, _ := flags.GetString(FlagProduct)
	serviceCode, _ := flags.GetString(FlagServiceCode)
	endpointType, _ := flags.GetString(FlagEndpointType)
	offline, _ := flags.GetBool(FlagOffline)
	timeout, _ := flags.GetDuration(FlagTimeout)
	showSource, _ := flags.GetBool(FlagShowSource)

	table, err := loadTable(cmd)
	if err != nil {
		return err
	}

	log := newLogger(cmd)
	defer func() { _ = log.Sync() }()

	var client location.Client
	if !offline {
		host, _ := flags.GetString(FlagLocationEndpoint)
		scheme, _ := flags.GetString(FlagLocationScheme)
		if scheme != "http" && scheme != "https" {
			return fmt.Errorf("--%s must be http or https, got %q", FlagLocationScheme, scheme)
		}
		client = location.NewHTTPClient(location.HTTPConfig{
			Endpoint: host,
			Scheme:   scheme,
			Timeout:  timeout,
		}, log)
	}

	resolver := endpoint.NewDefaultResolver(client,
		endpoint.WithLocalConfig(table),
		endpoint.WithLogger(log),
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	host, source, err := resolver.ResolveWithSource(ctx,
		domain.NewResolveRequest(region, product, serviceCode, endpointType))
	if err != nil {
		return err
	}

	if showSource {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", host, source)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), host)
	return nil
}
