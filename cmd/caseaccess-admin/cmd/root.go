package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/caseaccessio/api/internal/config"
	"github.com/caseaccessio/api/internal/infra/postgres"
)

var version string

var rootCmd = &cobra.Command{
	Use:   "caseaccess-admin",
	Short: "Case access service administration CLI",
	Long: `caseaccess-admin is the operator CLI for the case access service.

It inspects event streams, rebuilds the access projection from the
streams, generates feed API keys and checks deployment configuration.
Database connection settings come from the same environment variables
as the server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the CLI version from build flags.
func SetVersion(v string) {
	version = v
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the CLI version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "caseaccess-admin %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(projectionCmd)
	rootCmd.AddCommand(apikeyCmd)
	rootCmd.AddCommand(configCheckCmd)
}

// openDatabase loads configuration and connects, for commands that need the
// event or projection store.
func openDatabase() (*config.Config, *postgres.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}
	db, err := postgres.New(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return cfg, db, nil
}
