package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Praptimore/vector-creation/internal/cache"
	"github.com/Praptimore/vector-creation/internal/embed"
	"github.com/Praptimore/vector-creation/internal/storage"
)

var (
	embedOut      string
	provider      string
	embedModel    string
	dimensions    int
	embedWorkers  int
	noVectorCache bool
)

// embedCmd represents the embed command
var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Compute embedding vectors for extracted plate images",
	Long: `Embed reads the mapping file, computes a vector for every record that
does not have one yet and writes the vectors back. Records that already
carry a vector are skipped, so the stage is safe to re-run after adding
pages or after a partial failure.

Providers:
  pixel    offline grayscale-grid embedding, deterministic, no API key
  openai   text embedding of the caption via the OpenAI API
           (requires OPENAI_API_KEY)

Example:
  platescan embed
  platescan embed --provider openai --model text-embedding-3-small`,
	RunE: runEmbed,
}

func init() {
	rootCmd.AddCommand(embedCmd)

	embedCmd.Flags().StringVar(&embedOut, "out", "", "output directory (default: platescan_output)")
	embedCmd.Flags().StringVar(&provider, "provider", "", "embedding provider: pixel or openai")
	embedCmd.Flags().StringVar(&embedModel, "model", "", "embedding model name")
	embedCmd.Flags().IntVar(&dimensions, "dimensions", 0, "vector length")
	embedCmd.Flags().IntVar(&embedWorkers, "workers", 0, "concurrent embed workers")
	embedCmd.Flags().BoolVar(&noVectorCache, "no-cache", false, "disable the vector cache (force recomputation)")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if embedOut != "" {
		cfg.Output.Dir = embedOut
	}
	if provider != "" {
		cfg.Embedding.Provider = provider
	}
	if embedModel != "" {
		cfg.Embedding.Model = embedModel
	}
	if dimensions > 0 {
		cfg.Embedding.Dimensions = dimensions
	}
	if embedWorkers > 0 {
		cfg.Concurrency.EmbedWorkers = embedWorkers
	}
	if noVectorCache {
		cfg.Cache.Enabled = false
	}

	store, err := storage.New(cfg.Output.Dir, cfg.Output.ImagesDir, cfg.Output.MappingFile)
	if err != nil {
		return err
	}

	embedder, err := embed.New(cfg.Embedding)
	if err != nil {
		return err
	}

	var vectorCache cache.Cache
	if cfg.Cache.Enabled {
		vectorCache = cache.NewLayeredCache(cfg.Cache.TTL, cfg.Cache.Dir, cfg.Cache.TTL)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Provider: %s/%s (%d dimensions)\n",
			embedder.Name(), embedder.Model(), embedder.Dimensions())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := embed.NewRunner(cfg, store, embedder, vectorCache).Run(ctx)
	if stats != nil {
		fmt.Fprintf(os.Stderr, "Records: %d  Embedded: %d  Cached: %d  Failed: %d\n",
			stats.Records, stats.Embedded, stats.Cached, stats.Failed)
	}
	if err != nil {
		return fmt.Errorf("embed failed: %w", err)
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d record(s) could not be embedded", stats.Failed)
	}

	fmt.Printf("Embedded %d records (%d from cache)\n", stats.Embedded+stats.Cached, stats.Cached)
	return nil
}
