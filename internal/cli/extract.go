package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Praptimore/vector-creation/internal/document"
	"github.com/Praptimore/vector-creation/internal/model"
	"github.com/Praptimore/vector-creation/internal/pipeline"
	"github.com/Praptimore/vector-creation/internal/storage"
)

var (
	outputDir  string
	startPage  int
	endPage    int
	policy     string
	allMatches bool
	pattern    string
	columns    int
	chunkSize  int
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <catalog.pdf>",
	Short: "Extract plate images and their catalog identifiers from a PDF",
	Long: `Extract walks the catalog page by page, pulls out every plate image and
associates it with the identifier printed beneath it. Matched images are
written to the output directory and recorded in the mapping file.

The mapping file is checkpointed every chunk of pages, and an existing
mapping is continued rather than overwritten, so an interrupted run can
simply be restarted.

Example:
  platescan extract catalog.pdf
  platescan extract catalog.pdf --start 120 --end 480 --out ./scan
  platescan extract catalog.pdf --policy band --all-matches`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&outputDir, "out", "", "output directory (default: platescan_output)")
	extractCmd.Flags().IntVar(&startPage, "start", 0, "first page to process (0-based)")
	extractCmd.Flags().IntVar(&endPage, "end", -1, "page to stop before (-1: through the last page)")
	extractCmd.Flags().StringVar(&policy, "policy", "", "association policy: column or band")
	extractCmd.Flags().BoolVar(&allMatches, "all-matches", false, "keep every identifier in a caption block, not just the first")
	extractCmd.Flags().StringVar(&pattern, "pattern", "", "identifier regular expression")
	extractCmd.Flags().IntVar(&columns, "columns", 0, "plate columns per page for the column policy")
	extractCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "pages between mapping checkpoints")
}

func runExtract(cmd *cobra.Command, args []string) error {
	pdfPath := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if policy != "" {
		cfg.Match.Policy = policy
	}
	if allMatches {
		cfg.Extract.AllMatches = true
	}
	if pattern != "" {
		cfg.Extract.Pattern = pattern
	}
	if columns > 0 {
		cfg.Cluster.Columns = columns
	}
	if chunkSize > 0 {
		cfg.Output.ChunkSize = chunkSize
	}

	backend, err := document.OpenTabula(pdfPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", pdfPath, err)
	}
	defer func() { _ = backend.Close() }()

	store, err := storage.New(cfg.Output.Dir, cfg.Output.ImagesDir, cfg.Output.MappingFile)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg, backend, store)
	if err != nil {
		return err
	}

	// An interrupt lands between pages: the run stops after the current
	// page and the last checkpoint stays valid.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := p.Run(ctx, startPage, endPage)
	if stats != nil {
		fmt.Fprintf(os.Stderr, "Pages: %d  Matched: %d  Saved: %d  Skipped: %d\n",
			stats.Pages, stats.Matched, stats.Saved, stats.Skipped)
	}
	if err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}

	fmt.Printf("Extracted %d plates into %s\n", stats.Saved, cfg.Output.Dir)
	return nil
}

// loadConfig layers the config file and environment over the defaults.
// API keys come from the environment only.
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse configuration: %w", err)
	}
	if verbose {
		cfg.Output.Verbose = true
	}
	cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	cfg.Search.APIKey = os.Getenv("SEARCH_KEY")
	if cfg.Search.Endpoint == "" {
		cfg.Search.Endpoint = os.Getenv("SEARCH_ENDPOINT")
	}
	return cfg, nil
}
