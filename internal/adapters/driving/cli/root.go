// Package cli implements the sercha-rag command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors"
	"github.com/custodia-labs/sercha-rag/internal/telemetry"
)

// annotationNoServices marks commands that run without the index wired up.
const annotationNoServices = "no-services"

var (
	configDir string
	dataDir   string
	verbose   bool

	// Services used by commands. Tests assign them directly.
	indexService  driving.IndexService
	searchService driving.SearchService

	settings        = domain.DefaultSettings()
	metricsRegistry *prometheus.Registry

	// closers release what setupServices opened, in order.
	closers []func() error
)

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "On-device retrieval for grounded generation",
	Long: `sercha-rag chunks and embeds local documents into a SQLite backed
vector store and retrieves the passages most similar to a query.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentPreRunE = setupServices
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.sercha-rag)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (overrides store.data_dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Finalizers run even when a command fails.
	cobra.OnFinalize(func() {
		if err := teardownServices(); err != nil {
			logger.Error("Failed to close store: %v", err)
		}
	})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with a context that cancels
// in-flight indexing and search.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func needsServices(cmd *cobra.Command) bool {
	if !cmd.HasParent() || cmd.Name() == "help" {
		return false
	}
	_, skip := cmd.Annotations[annotationNoServices]
	return !skip
}

// setupServices loads configuration and wires the vector store. Nothing is
// wired when a service has already been assigned.
func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if !needsServices(cmd) || indexService != nil || searchService != nil {
		return nil
	}

	configStore, err := newConfigStore(configDir)
	if err != nil {
		return err
	}
	loaded, err := configStore.Load()
	if err != nil {
		return fmt.Errorf("loading %s: %w", configStore.Path(), err)
	}
	if dataDir != "" {
		loaded.Store.DataDir = dataDir
	}
	settings = loaded

	oracle, err := embedding.New(settings.Embedding)
	if err != nil {
		return err
	}
	closers = append(closers, oracle.Close)

	metricsRegistry = prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(metricsRegistry)

	embedder, err := services.NewEmbeddingClient(oracle,
		services.WithBatchSize(settings.Embedding.BatchSize),
		services.WithCacheSize(settings.Embedding.CacheSize),
		services.WithRateLimit(settings.Embedding.RequestsPerSecond, settings.Embedding.BatchSize),
		services.WithEmbeddingMetrics(metrics),
	)
	if err != nil {
		return errors.Join(err, teardown())
	}

	store, err := sqlite.NewStore(settings.Store.DataDir)
	if err != nil {
		return errors.Join(err, teardown())
	}
	closers = append(closers, store.Close)

	pipeline, err := postprocessors.DefaultPipeline(settings.Chunker)
	if err != nil {
		return errors.Join(err, teardown())
	}

	opts := []services.VectorStoreOption{
		services.WithReembedPolicy(settings.Store.ReembedPolicy),
		services.WithConcurrency(settings.Store.Concurrency),
		services.WithDefaultLimit(settings.Search.DefaultLimit),
		services.WithMetrics(metrics),
	}
	if settings.Search.Index == domain.IndexMemory {
		opts = append(opts, services.WithVectorIndex(memory.NewVectorIndex()))
	}

	vectorStore, err := services.NewVectorStore(store, pipeline, embedder, opts...)
	if err != nil {
		return errors.Join(err, teardown())
	}
	if err := vectorStore.Open(cmd.Context()); err != nil {
		return errors.Join(err, teardown())
	}
	// The vector store closes first so no commit races the database close.
	closers = append([]func() error{vectorStore.Close}, closers...)

	logger.Debug("Store opened at %s with model %s", store.Path(), vectorStore.ModelVersion())

	indexService = vectorStore
	searchService = services.NewRetriever(vectorStore, embedder)
	return nil
}

// teardownServices releases services wired by setupServices.
func teardownServices() error {
	if len(closers) == 0 {
		return nil
	}
	indexService = nil
	searchService = nil
	return teardown()
}

func teardown() error {
	var errs []error
	for _, c := range closers {
		if err := c(); err != nil && !errors.Is(err, domain.ErrStoreClosed) {
			errs = append(errs, err)
		}
	}
	closers = nil
	_ = logger.Sync()
	return errors.Join(errs...)
}
