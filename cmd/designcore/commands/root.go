package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/qutlas/designcore/pkg/config"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool

	// rootVersion is recorded as the service version on telemetry resources.
	rootVersion = "dev"
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "designcore",
		Short: "DesignCore - Parametric Design Intent Pipeline",
		Long: `DesignCore compiles parametric design intent into canonical geometry IR
and drives it through an external geometry evaluator.

Features:
  - Canonical content-addressed IR with deterministic hashing
  - Workspace compilation from CUE or YAML part definitions
  - Operation sequencing with dependency resolution
  - Asynchronous evaluator boundary with local fallback geometry
  - Run history persisted to a local SQLite store`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newCompileCommand())
	rootCmd.AddCommand(newSequenceCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, buildDate))

	return rootCmd
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("designcore %s (commit: %s, built: %s)\n", version, commit, buildDate)
		},
	}
}
