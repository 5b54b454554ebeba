package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Praptimore/vector-creation/internal/search"
	"github.com/Praptimore/vector-creation/internal/storage"
)

var (
	indexOut  string
	endpoint  string
	indexName string
	batchSize int
	recreate  bool
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Upload embedded records to the vector search index",
	Long: `Index creates the search index if needed and uploads every mapping record
that carries a vector. Records without a vector are skipped; run
'platescan embed' first.

The search API key is read from the SEARCH_KEY environment variable.

Example:
  platescan index --endpoint https://myservice.search.windows.net
  platescan index --endpoint https://myservice.search.windows.net --recreate`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().StringVar(&indexOut, "out", "", "output directory (default: platescan_output)")
	indexCmd.Flags().StringVar(&endpoint, "endpoint", "", "search service endpoint URL")
	indexCmd.Flags().StringVar(&indexName, "index", "", "index name (default: images-index)")
	indexCmd.Flags().IntVar(&batchSize, "batch-size", 0, "documents per upload batch")
	indexCmd.Flags().BoolVar(&recreate, "recreate", false, "drop and recreate the index before uploading")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if indexOut != "" {
		cfg.Output.Dir = indexOut
	}
	if endpoint != "" {
		cfg.Search.Endpoint = endpoint
	}
	if indexName != "" {
		cfg.Search.Index = indexName
	}
	if batchSize > 0 {
		cfg.Search.BatchSize = batchSize
	}

	store, err := storage.New(cfg.Output.Dir, cfg.Output.ImagesDir, cfg.Output.MappingFile)
	if err != nil {
		return err
	}
	mapping, err := store.LoadMapping()
	if err != nil {
		return err
	}

	docs, skipped := search.DocumentsFromMapping(mapping, cfg.Embedding.Dimensions)
	if skipped > 0 {
		fmt.Fprintf(os.Stderr, "Skipping %d record(s) without a usable vector; run 'platescan embed'\n", skipped)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no embedded records to upload in %s", store.MappingPath())
	}

	client, err := search.NewClient(cfg.Search, cfg.HTTP)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.EnsureIndex(ctx, cfg.Embedding.Dimensions, recreate); err != nil {
		return fmt.Errorf("prepare index: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Uploading %d documents to %s\n", len(docs), cfg.Search.Index)
	}

	stats, err := client.Upload(ctx, docs)
	if stats != nil && stats.Failed > 0 {
		fmt.Fprintf(os.Stderr, "%d document(s) rejected by the service\n", stats.Failed)
	}
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	fmt.Printf("Uploaded %d documents in %d batch(es)\n", stats.Uploaded, stats.Batches)
	return nil
}
