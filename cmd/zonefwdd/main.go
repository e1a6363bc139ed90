package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haukened/zonefwd/internal/dns/common/log"
	"github.com/haukened/zonefwd/internal/dns/config"
)

const (
	version = "0.1.0-dev"
	appName = "zonefwdd"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Running the root command without a
// subcommand serves DNS, same as "serve".
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           appName,
		Short:         "Authoritative A-record DNS server with a forwarding cache",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Serve DNS over UDP",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	})
	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newCacheCmd())
	return rootCmd
}

// loadConfig loads the environment configuration and configures global logging.
func loadConfig(cmd *cobra.Command) (*config.AppConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Configuration error: %v\n", err)
		return nil, err
	}
	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Logging configuration error: %v\n", err)
		return nil, err
	}
	return cfg, nil
}
