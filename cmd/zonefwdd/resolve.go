package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/haukened/zonefwd/internal/dns/common/clock"
	"github.com/haukened/zonefwd/internal/dns/common/log"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve NAME",
		Short: "Resolve NAME through the configured upstream and print its address",
		Long: "Resolve NAME through the configured upstream and print its IPv4 address.\n" +
			"The persisted cache is consulted first and updated afterwards.",
		Args: cobra.ExactArgs(1),
		RunE: runResolve,
	}
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	clk := clock.RealClock{}
	logger := log.GetLogger()

	cache, err := openCache(cfg, clk, logger)
	if err != nil {
		return err
	}
	forwarder, err := newForwarder(cfg, cache, clk, logger)
	if err != nil {
		return err
	}

	addr, err := forwarder.Resolve(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("cannot resolve %s: %w", args[0], err)
	}
	if err := cache.Persist(); err != nil {
		log.Warn(map[string]any{"error": err.Error()}, "Failed to persist cache")
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), addr)
	return err
}
