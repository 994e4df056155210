package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// LambdaRuntimeEnv is set by the Lambda runtime.
const LambdaRuntimeEnv = "AWS_LAMBDA_RUNTIME_API"

var (
	// Global flags
	configPath string
	verbose    bool
)

// Execute runs the root command. With no arguments inside a Lambda runtime
// the lambda command runs.
func Execute(ctx context.Context, args []string, version, commit, buildDate string) error {
	if len(args) == 0 && os.Getenv(LambdaRuntimeEnv) != "" {
		args = []string{"lambda"}
	}

	rootCmd := newRootCommand(version, commit, buildDate)
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sdkbridge",
		Short: "sdkbridge - provider SDK calls for custom resources",
		Long: `sdkbridge handles custom-resource lifecycle events (Create, Update, Delete)
by invoking a single provider SDK action and reporting the result.

Each event names a service, an action and its parameters. sdkbridge:
  - Maps legacy service names to client packages
  - Loads the client module, optionally installing the latest version
  - Assumes a role when requested
  - Sends the command and flattens the response
  - Suppresses errors matching ignoreErrorCodesMatching
  - Acknowledges SUCCESS or FAILED exactly once`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newLambdaCommand(version))
	rootCmd.AddCommand(newInvokeCommand(version))
	rootCmd.AddCommand(newServeCommand(version))
	rootCmd.AddCommand(newPackagesCommand(version))
	rootCmd.AddCommand(newFlattenCommand())
	rootCmd.AddCommand(newHistoryCommand())

	return rootCmd
}
