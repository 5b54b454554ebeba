// Package extract turns raw page content into identifier entries and image
// candidates, the two inputs of the association engine.
package extract

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Praptimore/vector-creation/internal/document"
	"github.com/Praptimore/vector-creation/internal/model"
)

// Policy selects how many identifiers are taken from one text block.
type Policy int

const (
	// FirstMatch keeps only the first identifier found in a block. Suitable
	// when a plate caption holds a single identifier.
	FirstMatch Policy = iota
	// AllMatches keeps every non-overlapping identifier in the block, each as
	// its own entry sharing the block's bbox and text.
	AllMatches
)

// LayoutExtractor partitions a page's blocks into image candidates and
// identifier entries.
type LayoutExtractor struct {
	pattern   *regexp.Regexp
	policy    Policy
	tolerance float64
}

// NewLayoutExtractor compiles the identifier pattern. tolerance is the
// per-axis distance, in page points, allowed between an image block's
// top-left corner and an enumerated placement.
func NewLayoutExtractor(pattern string, policy Policy, tolerance float64) (*LayoutExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile identifier pattern %q: %w", pattern, err)
	}
	return &LayoutExtractor{pattern: re, policy: policy, tolerance: tolerance}, nil
}

// Layout extracts image candidates and identifier entries from one page.
// Image blocks with no placement within tolerance cannot be fetched later and
// are excluded; dropped reports how many were excluded so the pipeline can
// log it.
func (e *LayoutExtractor) Layout(pc *document.PageContent) (candidates []model.ImageCandidate, entries []model.IdentifierEntry, dropped int) {
	for _, blk := range pc.Blocks {
		switch blk.Kind {
		case model.BlockText:
			entries = append(entries, e.identifiers(blk)...)
		case model.BlockImage:
			ref, ok := e.resolve(blk, pc.Images)
			if !ok {
				dropped++
				continue
			}
			candidates = append(candidates, model.ImageCandidate{
				Resource: ref,
				BBox:     blk.BBox,
				Column:   -1,
			})
		}
	}
	return candidates, entries, dropped
}

// identifiers applies the pattern to one text block under the configured
// policy.
func (e *LayoutExtractor) identifiers(blk model.Block) []model.IdentifierEntry {
	text := strings.TrimSpace(blk.Text)
	if text == "" {
		return nil
	}

	var matches []string
	if e.policy == AllMatches {
		matches = e.pattern.FindAllString(text, -1)
	} else {
		if m := e.pattern.FindString(text); m != "" {
			matches = []string{m}
		}
	}

	entries := make([]model.IdentifierEntry, 0, len(matches))
	for _, m := range matches {
		entries = append(entries, model.IdentifierEntry{
			ID:   strings.TrimSpace(m),
			Text: text,
			BBox: blk.BBox,
		})
	}
	return entries
}

// resolve matches an image block to an enumerated placement by top-left
// corner within the tolerance on both axes.
func (e *LayoutExtractor) resolve(blk model.Block, placements []document.ImagePlacement) (model.ResourceRef, bool) {
	for _, pl := range placements {
		if math.Abs(pl.BBox.X0-blk.BBox.X0) < e.tolerance && math.Abs(pl.BBox.Y0-blk.BBox.Y0) < e.tolerance {
			return pl.Ref, true
		}
	}
	return model.ResourceRef{}, false
}
