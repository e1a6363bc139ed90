package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/haukened/zonefwd/internal/dns/common/log"
	"github.com/haukened/zonefwd/internal/dns/repos/recordcache"
)

func newCacheCmd() *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the persisted record cache",
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Print every entry of the cache snapshot",
		Args:  cobra.NoArgs,
		RunE:  runCacheDump,
	})
	return cacheCmd
}

func runCacheDump(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	entries, err := recordcache.NewBoltPersister(cfg.CacheFile).Load()
	if err != nil {
		// partially readable snapshots are still printed
		log.Warn(map[string]any{
			"cache_file": cfg.CacheFile,
			"error":      err.Error(),
		}, "Cache snapshot has unreadable entries")
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Domain < entries[j].Domain })

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Domain, e.Expiration.UTC().Format(time.RFC3339), e.Value)
	}
	return w.Flush()
}
