package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

var (
	statsJSON    bool
	statsMetrics bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "Compact the index storage",
	Long:  `Reclaim space left by deleted and replaced chunks. Search results are unchanged.`,
	Args:  cobra.NoArgs,
	RunE:  runOptimize,
}

var reembedCmd = &cobra.Command{
	Use:   "reembed",
	Short: "Re-embed chunks produced by an inactive model",
	Args:  cobra.NoArgs,
	RunE:  runReembed,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "output statistics as JSON")
	statsCmd.Flags().BoolVar(&statsMetrics, "metrics", false, "also print collected metrics in Prometheus text format")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(reembedCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	stats, err := indexService.GetIndexStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	if statsJSON {
		data, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal stats: %w", err)
		}
		cmd.Println(string(data))
	} else {
		cmd.Println("Index Statistics:")
		cmd.Printf("  Model:        %s\n", stats.ModelVersion)
		cmd.Printf("  Documents:    %d\n", stats.DocumentCount)
		cmd.Printf("  Chunks:       %d\n", stats.ChunkCount)
		cmd.Printf("  Stale chunks: %d\n", stats.StaleChunkCount)
		cmd.Printf("  Bytes used:   %d\n", stats.BytesUsed)
	}

	if statsMetrics {
		return writeMetrics(cmd)
	}
	return nil
}

// writeMetrics prints everything gathered by the process registry.
func writeMetrics(cmd *cobra.Command) error {
	if metricsRegistry == nil {
		return errors.New("metrics not configured")
	}

	families, err := metricsRegistry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	cmd.Println()
	enc := expfmt.NewEncoder(cmd.OutOrStdout(), expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metrics: %w", err)
		}
	}
	return nil
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	if err := indexService.OptimizeIndex(cmd.Context()); err != nil {
		return fmt.Errorf("failed to optimize index: %w", err)
	}
	after, err := indexService.GetIndexStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	cmd.Printf("Optimized: %d documents, %d chunks, %d bytes\n", after.DocumentCount, after.ChunkCount, after.BytesUsed)
	return nil
}

func runReembed(cmd *cobra.Command, _ []string) error {
	if indexService == nil {
		return errors.New("index service not configured")
	}

	n, err := indexService.ReembedStale(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to re-embed: %w", err)
	}

	if n == 0 {
		cmd.Println("No stale chunks.")
		return nil
	}
	cmd.Printf("Re-embedded %d chunks.\n", n)
	return nil
}
