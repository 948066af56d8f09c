package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"remod/internal/paths"
)

var (
	cacheLsLimit        int
	cacheLsJSON         bool
	cachePruneAge       time.Duration
	cachePruneKeepFiles bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the transformation cache",
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List cached modules",
	Run:   runCacheLs,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove cache entries",
	Long: `Remove cache index entries and their files.

Examples:
  remod cache prune                     # Remove everything
  remod cache prune --older-than 168h   # Remove entries older than a week`,
	Run: runCachePrune,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Run:   runCacheStats,
}

func init() {
	cacheLsCmd.Flags().IntVar(&cacheLsLimit, "limit", 50, "Maximum entries to list (0 = all)")
	cacheLsCmd.Flags().BoolVar(&cacheLsJSON, "json", false, "JSON output")
	cachePruneCmd.Flags().DurationVar(&cachePruneAge, "older-than", 0,
		"Only prune entries older than this duration")
	cachePruneCmd.Flags().BoolVar(&cachePruneKeepFiles, "keep-files", false,
		"Keep cache files, prune index rows only")

	cacheCmd.AddCommand(cacheLsCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheLs(cmd *cobra.Command, args []string) {
	ledger, _, _, err := getLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if ledger == nil {
		fmt.Fprintln(os.Stderr, "Cache index is disabled (index.enabled=false)")
		os.Exit(1)
	}

	entries, err := ledger.List(cacheLsLimit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing cache: %v\n", err)
		os.Exit(1)
	}

	if cacheLsJSON {
		data, _ := json.MarshalIndent(entries, "", "  ")
		fmt.Println(string(data))
		return
	}

	for _, e := range entries {
		fmt.Printf("%s  %-12s %8d  %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Key[:12], e.SizeBytes, e.Source)
	}
	if len(entries) == 0 {
		fmt.Println("cache is empty")
	}
}

func runCachePrune(cmd *cobra.Command, args []string) {
	ledger, cfg, logger, err := getLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if ledger == nil {
		fmt.Fprintln(os.Stderr, "Cache index is disabled (index.enabled=false)")
		os.Exit(1)
	}

	cutoff := time.Now()
	if cachePruneAge > 0 {
		cutoff = time.Now().Add(-cachePruneAge)
	}

	pruned, err := ledger.PruneOlderThan(cutoff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error pruning cache: %v\n", err)
		os.Exit(1)
	}

	removed := 0
	if !cachePruneKeepFiles {
		root := cfg.CacheRoot()
		for _, e := range pruned {
			if !paths.WithinRoot(root, e.Location) {
				logger.Warn("Refusing to delete file outside cache root", map[string]interface{}{
					"location": e.Location,
				})
				continue
			}
			if err := os.Remove(e.Location); err != nil && !os.IsNotExist(err) {
				logger.Warn("Failed to remove cache file", map[string]interface{}{
					"location": e.Location,
					"error":    err.Error(),
				})
				continue
			}
			removed++
		}
	}

	fmt.Printf("pruned %d entries, removed %d files\n", len(pruned), removed)
}

func runCacheStats(cmd *cobra.Command, args []string) {
	ledger, _, _, err := getLedger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if ledger == nil {
		fmt.Fprintln(os.Stderr, "Cache index is disabled (index.enabled=false)")
		os.Exit(1)
	}

	stats, err := ledger.Stats()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading stats: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("entries: %d\n", stats.Entries)
	fmt.Printf("sources: %d\n", stats.Sources)
	fmt.Printf("bytes:   %d\n", stats.TotalBytes)
}
