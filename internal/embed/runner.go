package embed

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Praptimore/vector-creation/internal/cache"
	"github.com/Praptimore/vector-creation/internal/model"
	"github.com/Praptimore/vector-creation/internal/storage"
	"github.com/Praptimore/vector-creation/internal/worker"
)

// Runner embeds every mapping record that has no vector yet and writes the
// vectors back into the mapping file. Records that already carry a vector are
// left alone, so the stage is safe to re-run.
type Runner struct {
	store    *storage.Store
	embedder Embedder
	cache    cache.Cache // nil disables caching
	workers  int
	limiter  *worker.Limiter
	verbose  bool
	out      io.Writer
}

// NewRunner builds a runner from configuration.
func NewRunner(cfg *model.Config, store *storage.Store, embedder Embedder, c cache.Cache) *Runner {
	workers := cfg.Concurrency.EmbedWorkers
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		store:    store,
		embedder: embedder,
		cache:    c,
		workers:  workers,
		limiter:  worker.NewLimiter(cfg.Concurrency.RequestsPerSecond, cfg.Concurrency.Burst),
		verbose:  cfg.Output.Verbose,
		out:      os.Stderr,
	}
}

// Stats summarizes an embed run.
type Stats struct {
	Records  int // records inspected
	Embedded int // vectors computed by the provider
	Cached   int // vectors served from the cache
	Failed   int // records left without a vector
}

// embedJob computes one record's vector on the pool.
type embedJob struct {
	index  int
	record *model.MatchRecord
	runner *Runner
}

// embedResult carries the vector back to the collecting goroutine.
type embedResult struct {
	index  int
	vector []float32
	cached bool
	err    error
}

func (r *embedResult) GetError() error { return r.err }

func (j *embedJob) Execute(ctx context.Context) worker.Result {
	r := j.runner
	res := &embedResult{index: j.index}

	img, err := r.store.ReadImage(j.record.Image)
	if err != nil {
		res.err = err
		return res
	}

	key := cache.VectorKey(r.embedder.Name(), r.embedder.Model(), img)
	if r.cache != nil {
		if data, found := r.cache.Get(key); found {
			vec, err := cache.DecodeVector(data)
			if err == nil && len(vec) == r.embedder.Dimensions() {
				res.vector = vec
				res.cached = true
				return res
			}
			// Unreadable or wrong-shaped entry: recompute.
			_ = r.cache.Delete(key)
		}
	}

	if r.embedder.Remote() {
		if err := r.limiter.Wait(ctx, r.embedder.Name()); err != nil {
			res.err = err
			return res
		}
	}

	vec, err := r.embedder.Embed(ctx, j.record.Text, img)
	if err != nil {
		res.err = fmt.Errorf("embed %s: %w", j.record.Image, err)
		return res
	}
	if len(vec) != r.embedder.Dimensions() {
		res.err = fmt.Errorf("embed %s: provider returned %d dimensions, want %d",
			j.record.Image, len(vec), r.embedder.Dimensions())
		return res
	}

	if r.cache != nil {
		if data, err := cache.EncodeVector(vec); err == nil {
			_ = r.cache.Set(key, data, 0)
		}
	}

	res.vector = vec
	return res
}

// Run embeds all records missing a vector and saves the mapping once at the
// end. Individual failures are reported and counted; they never abort the
// run or discard the vectors that did succeed.
func (r *Runner) Run(ctx context.Context) (*Stats, error) {
	mapping, err := r.store.LoadMapping()
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	pool := worker.NewPool(r.workers)
	pool.Start()

	pending := 0
	for _, idx := range mapping.Indices() {
		rec, _ := mapping.Get(idx)
		stats.Records++
		if len(rec.Vector) > 0 {
			continue
		}
		pool.Submit(&embedJob{index: idx, record: rec, runner: r})
		pending++
	}

	if r.verbose {
		fmt.Fprintf(r.out, "Embedding %d of %d records with %s/%s\n",
			pending, stats.Records, r.embedder.Name(), r.embedder.Model())
	}

	for _, result := range pool.Wait() {
		res := result.(*embedResult)
		if res.err != nil {
			stats.Failed++
			fmt.Fprintf(r.out, "record %d: %v\n", res.index, res.err)
			continue
		}
		rec, _ := mapping.Get(res.index)
		rec.Vector = res.vector
		if res.cached {
			stats.Cached++
		} else {
			stats.Embedded++
		}
	}

	// Save before surfacing cancellation: vectors that did complete are
	// kept either way.
	if err := r.store.SaveMapping(mapping); err != nil {
		return stats, err
	}
	return stats, ctx.Err()
}
