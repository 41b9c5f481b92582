package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/logging"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Encoding cache commands",
	Long:  `Commands for managing the in-memory encoding cache of running workers.`,
}

var cacheRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Rebuild the encoding cache and tell running workers to drop theirs",
	Long: `Load every active employee's face data, report how many profiles made it
into the cache, and broadcast an invalidation over Redis so running API
workers rebuild on their next verification.

Examples:
  face-attendance cache refresh
  face-attendance cache refresh --json`,
	RunE: runCacheRefresh,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheRefreshCmd)

	cacheRefreshCmd.Flags().Bool("json", false, "Output as JSON")
}

type cacheRefreshResult struct {
	Success     bool   `json:"success"`
	CacheSize   int    `json:"cache_size"`
	Broadcasted bool   `json:"broadcasted"`
	Message     string `json:"message"`
}

func runCacheRefresh(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()
	log := logging.New(cfg.Log)

	b, err := openBackend(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Close()

	n, err := b.service.RefreshCache(ctx)
	if err != nil {
		return fmt.Errorf("refreshing cache: %w", err)
	}

	result := cacheRefreshResult{Success: true, CacheSize: n}
	if b.broadcaster != nil {
		if err := b.broadcaster.Publish(ctx, "cli_refresh", 0); err != nil {
			result.Message = fmt.Sprintf("cache rebuilt, broadcast failed: %v", err)
		} else {
			result.Broadcasted = true
			result.Message = "cache rebuilt, workers notified"
		}
	} else {
		result.Message = "cache rebuilt, REDIS_URL not set so running workers refresh on expiry"
	}

	if jsonOutput {
		return outputJSON(result)
	}
	fmt.Printf("Encoding cache: %d employees\n", result.CacheSize)
	fmt.Println(result.Message)
	return nil
}
