package cmd

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/endpointd/internal/logger"
	"github.com/MrSnakeDoc/endpointd/internal/sources/localconfig"
)

const (
	FlagConfig   = "config"
	FlagLogLevel = "log-level"
)

// New builds the endpointctl root command.
func New() *cobra.Command {
	root := &cobra.Command{
		Use:   "endpointctl",
		Short: "Resolve cloud service endpoints from the command line",
		Long: `endpointctl resolves the endpoint hostname of a product in a region using
the same chain as endpointd: local endpoint tables first, then the
location service.`,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
	}

	root.PersistentFlags().String(FlagConfig, "", "Endpoint table file (YAML or JSON), defaults to the bundled table")
	root.PersistentFlags().String(FlagLogLevel, "", "Log to stderr at this level (debug, info, warn, error)")

	root.AddCommand(
		newResolveCommand(),
		newRegionsCommand(),
		newVersionCommand(),
	)
	return root
}

// loadTable returns the table named by --config, or the bundled one.
func loadTable(cmd *cobra.Command) (*localconfig.Table, error) {
	path, err := cmd.Flags().GetString(FlagConfig)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return localconfig.Default(), nil
	}
	return localconfig.NewLoader(path).Load()
}

func newLogger(cmd *cobra.Command) logger.Logger {
	level, _ := cmd.Flags().GetString(FlagLogLevel)
	if level == "" {
		return logger.Nop()
	}
	return logger.New(level, true)
}
