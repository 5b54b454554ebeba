// Package match implements the image-to-identifier association engine.
//
// Catalog plates print the identifier caption directly beneath each image in
// the same visual column, so nearest-below-in-column is the primary policy;
// the band policy relaxes the column assumption for documents where column
// clustering is unreliable.
package match

import (
	"sort"

	"github.com/Praptimore/vector-creation/internal/cluster"
	"github.com/Praptimore/vector-creation/internal/model"
)

// Result pairs an image candidate with its best identifier entry. Only
// matched images produce results; images with no eligible entry are dropped.
type Result struct {
	Image model.ImageCandidate
	Entry model.IdentifierEntry
}

// Matcher associates each image candidate with at most one identifier entry.
type Matcher interface {
	Match(images []model.ImageCandidate, entries []model.IdentifierEntry) []Result
}

// ColumnMatcher clusters image x-centers into columns and, per image, picks
// the same-column entry with the smallest positive vertical-center distance.
//
// Images are processed top to bottom and each finds its nearest-below entry
// independently: two images stacked in one column may both claim the same
// entry, which is how obverse/reverse plate pairs share one caption.
type ColumnMatcher struct {
	Columns       int
	Seed          int64
	MaxIterations int
}

// NewColumnMatcher returns a matcher with the given clustering parameters.
func NewColumnMatcher(cfg model.ClusterConfig) *ColumnMatcher {
	return &ColumnMatcher{Columns: cfg.Columns, Seed: cfg.Seed, MaxIterations: cfg.MaxIterations}
}

// Match implements Matcher.
func (m *ColumnMatcher) Match(images []model.ImageCandidate, entries []model.IdentifierEntry) []Result {
	if len(images) == 0 || len(entries) == 0 {
		return nil
	}

	xs := make([]float64, len(images))
	for i, img := range images {
		xs[i] = img.BBox.CenterX()
	}
	cols := cluster.Fit(xs, m.Columns, m.Seed, m.MaxIterations)

	// Label entries once with the model fitted on image centers.
	entryCols := make([]int, len(entries))
	for i, ent := range entries {
		entryCols[i] = cols.Assign(ent.BBox.CenterX())
	}

	sorted := make([]model.ImageCandidate, len(images))
	copy(sorted, images)
	for i := range sorted {
		sorted[i].Column = cols.Assign(sorted[i].BBox.CenterX())
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BBox.CenterY() < sorted[j].BBox.CenterY()
	})

	var results []Result
	for _, img := range sorted {
		imgY := img.BBox.CenterY()
		best := -1
		bestDist := 0.0
		for i, ent := range entries {
			if entryCols[i] != img.Column {
				continue
			}
			entY := ent.BBox.CenterY()
			if entY <= imgY {
				continue // identifier must lie below the image
			}
			if dist := entY - imgY; best < 0 || dist < bestDist {
				best = i
				bestDist = dist
			}
		}
		if best >= 0 {
			results = append(results, Result{Image: img, Entry: entries[best]})
		}
	}
	return results
}

// BandMatcher associates without clustering: an entry is eligible when its
// top edge sits below the image's bottom edge (allowing VerticalTolerance of
// overlap, normally a small negative value) and its horizontal center falls
// within the image's extent widened by HorizontalTolerance on both sides.
// The nearest eligible entry by top-to-bottom gap wins.
type BandMatcher struct {
	HorizontalTolerance float64
	VerticalTolerance   float64
}

// NewBandMatcher returns a matcher with the given tolerances.
func NewBandMatcher(cfg model.MatchConfig) *BandMatcher {
	return &BandMatcher{
		HorizontalTolerance: cfg.HorizontalTolerance,
		VerticalTolerance:   cfg.VerticalTolerance,
	}
}

// Match implements Matcher.
func (m *BandMatcher) Match(images []model.ImageCandidate, entries []model.IdentifierEntry) []Result {
	var results []Result
	for _, img := range images {
		best := -1
		bestDist := 0.0
		for i, ent := range entries {
			if ent.BBox.Y0 <= img.BBox.Y1+m.VerticalTolerance {
				continue
			}
			cx := ent.BBox.CenterX()
			if cx < img.BBox.X0-m.HorizontalTolerance || cx > img.BBox.X1+m.HorizontalTolerance {
				continue
			}
			if dist := ent.BBox.Y0 - img.BBox.Y1; best < 0 || dist < bestDist {
				best = i
				bestDist = dist
			}
		}
		if best >= 0 {
			results = append(results, Result{Image: img, Entry: entries[best]})
		}
	}
	return results
}

// New selects the configured policy.
func New(cfg *model.Config) Matcher {
	if cfg.Match.Policy == "band" {
		return NewBandMatcher(cfg.Match)
	}
	return NewColumnMatcher(cfg.Cluster)
}
