// Package pipeline drives the page-by-page extraction run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Praptimore/vector-creation/internal/document"
	"github.com/Praptimore/vector-creation/internal/extract"
	"github.com/Praptimore/vector-creation/internal/match"
	"github.com/Praptimore/vector-creation/internal/model"
	"github.com/Praptimore/vector-creation/internal/storage"
)

// Pipeline processes pages sequentially: extract blocks, associate images
// with identifiers, persist matched images and append mapping records. All
// collaborators are passed in; the pipeline owns no global state.
type Pipeline struct {
	backend   document.Backend
	store     *storage.Store
	extractor *extract.LayoutExtractor
	matcher   match.Matcher
	chunkSize int
	verbose   bool
	out       io.Writer
}

// New builds a pipeline from configuration. The backend and store are owned
// by the caller; the pipeline only uses them for the duration of Run.
func New(cfg *model.Config, backend document.Backend, store *storage.Store) (*Pipeline, error) {
	policy := extract.FirstMatch
	if cfg.Extract.AllMatches {
		policy = extract.AllMatches
	}
	extractor, err := extract.NewLayoutExtractor(cfg.Extract.Pattern, policy, cfg.Extract.PlacementTolerance)
	if err != nil {
		return nil, err
	}

	chunk := cfg.Output.ChunkSize
	if chunk <= 0 {
		chunk = 80
	}

	return &Pipeline{
		backend:   backend,
		store:     store,
		extractor: extractor,
		matcher:   match.New(cfg),
		chunkSize: chunk,
		verbose:   cfg.Output.Verbose,
		out:       os.Stderr,
	}, nil
}

// Stats summarizes a run.
type Stats struct {
	Pages    int // pages scanned
	Matched  int // images that found an identifier
	Saved    int // records written (Matched minus per-item failures)
	Skipped  int // confirmed matches dropped by fetch/persist failures
	Unplaced int // image blocks excluded because no placement resolved
	FirstSeq int // first sequence index assigned in this run
	NextSeq  int // next free sequence index after the run
}

// Run processes pages [start, end), checkpointing the mapping after every
// chunk; end < 0 means through the last page. It loads any existing mapping
// first and continues numbering after the highest existing index, so restarts
// never reuse indices.
func (p *Pipeline) Run(ctx context.Context, start, end int) (*Stats, error) {
	mapping, err := p.store.LoadMapping()
	if err != nil {
		return nil, err
	}

	total, err := p.backend.PageCount()
	if err != nil {
		return nil, err
	}
	if start < 0 {
		start = 0
	}
	if end < 0 || end > total {
		end = total
	}

	next := mapping.NextIndex()
	stats := &Stats{FirstSeq: next}

	for chunkStart := start; chunkStart < end; chunkStart += p.chunkSize {
		chunkEnd := chunkStart + p.chunkSize
		if chunkEnd > end {
			chunkEnd = end
		}
		if p.verbose {
			fmt.Fprintf(p.out, "Processing pages %d to %d\n", chunkStart, chunkEnd-1)
		}

		for pageNum := chunkStart; pageNum < chunkEnd; pageNum++ {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			if err := p.processPage(pageNum, mapping, &next, stats); err != nil {
				return stats, err
			}
			stats.Pages++
		}

		if err := p.store.SaveMapping(mapping); err != nil {
			return stats, err
		}
		if p.verbose {
			fmt.Fprintf(p.out, "Saved progress after pages %d-%d (%d records)\n", chunkStart, chunkEnd-1, mapping.Len())
		}
	}

	stats.NextSeq = next
	return stats, nil
}

// processPage runs extraction and association for one page and persists the
// confirmed matches. A fetch or persist failure for a single match is
// reported and skipped; it never aborts the page or the run.
func (p *Pipeline) processPage(pageNum int, mapping *model.Mapping, next *int, stats *Stats) error {
	pc, err := p.backend.Page(pageNum)
	if err != nil {
		return fmt.Errorf("page %d: %w", pageNum, err)
	}

	candidates, entries, unplaced := p.extractor.Layout(pc)
	stats.Unplaced += unplaced
	if unplaced > 0 && p.verbose {
		fmt.Fprintf(p.out, "page %d: %d image block(s) without a resolvable resource\n", pageNum, unplaced)
	}
	if len(candidates) == 0 || len(entries) == 0 {
		return nil
	}

	for _, res := range p.matcher.Match(candidates, entries) {
		stats.Matched++

		data, ext, err := p.backend.Resource(res.Image.Resource)
		if err != nil {
			stats.Skipped++
			fmt.Fprintf(p.out, "page %d: skipping %s/%s: %v\n", pageNum, res.Image.Resource.Name, res.Entry.ID, err)
			continue
		}

		filename := fmt.Sprintf("img_%d.%s", *next, ext)
		if err := p.store.WriteImage(filename, data); err != nil {
			stats.Skipped++
			fmt.Fprintf(p.out, "page %d: skipping %s: %v\n", pageNum, filename, err)
			continue
		}

		// The sequence index is consumed only here, once the image is on
		// disk; unmatched or failed images never claim one.
		mapping.Put(*next, &model.MatchRecord{
			Image:        filename,
			Page:         pageNum,
			UniqueNumber: res.Entry.ID,
			Text:         res.Entry.Text,
		})
		*next++
		stats.Saved++
	}
	return nil
}
