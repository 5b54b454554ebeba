package match

import (
	"testing"

	"github.com/Praptimore/vector-creation/internal/model"
)

// boxAt builds a 20x20 box whose center sits at (x, y).
func boxAt(x, y float64) model.BBox {
	return model.BBox{X0: x - 10, Y0: y - 10, X1: x + 10, Y1: y + 10}
}

func candidate(name string, x, y float64) model.ImageCandidate {
	return model.ImageCandidate{
		Resource: model.ResourceRef{Name: name},
		BBox:     boxAt(x, y),
		Column:   -1,
	}
}

func entry(id string, x, y float64) model.IdentifierEntry {
	return model.IdentifierEntry{ID: id, Text: id, BBox: boxAt(x, y)}
}

func defaultColumnMatcher() *ColumnMatcher {
	return NewColumnMatcher(model.ClusterConfig{Columns: 3, Seed: 42, MaxIterations: 100})
}

func TestColumnMatcher_PicksNearestBelowInColumn(t *testing.T) {
	m := defaultColumnMatcher()

	images := []model.ImageCandidate{
		candidate("Im0", 100, 100),
		candidate("Im1", 300, 100),
		candidate("Im2", 500, 100),
	}
	entries := []model.IdentifierEntry{
		entry("KM# 1", 100, 150),
		entry("KM# 2", 100, 300),
		entry("KM# 3", 300, 110), // other column, closest by distance
		entry("KM# 4", 500, 140),
	}

	results := m.Match(images, entries)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	byImage := make(map[string]string)
	for _, r := range results {
		byImage[r.Image.Resource.Name] = r.Entry.ID
	}
	if byImage["Im0"] != "KM# 1" {
		t.Errorf("Im0: expected nearest-below 'KM# 1', got %q", byImage["Im0"])
	}
	if byImage["Im1"] != "KM# 3" {
		t.Errorf("Im1: expected 'KM# 3', got %q", byImage["Im1"])
	}
	if byImage["Im2"] != "KM# 4" {
		t.Errorf("Im2: expected 'KM# 4', got %q", byImage["Im2"])
	}
}

func TestColumnMatcher_NeverCrossesColumns(t *testing.T) {
	m := defaultColumnMatcher()

	images := []model.ImageCandidate{
		candidate("Im0", 100, 100),
		candidate("Im1", 300, 100),
		candidate("Im2", 500, 100),
	}
	// Only identifier on the page is in the middle column, barely below the
	// images: it must only be claimed by the middle image.
	entries := []model.IdentifierEntry{
		entry("KM# 9", 300, 110),
	}

	results := m.Match(images, entries)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Image.Resource.Name != "Im1" {
		t.Errorf("expected only Im1 to match, got %s", results[0].Image.Resource.Name)
	}
}

func TestColumnMatcher_IgnoresEntriesAbove(t *testing.T) {
	m := defaultColumnMatcher()

	images := []model.ImageCandidate{
		candidate("Im0", 100, 200),
		candidate("Im1", 300, 200),
		candidate("Im2", 500, 200),
	}
	entries := []model.IdentifierEntry{
		entry("KM# 1", 100, 50), // above the image
	}

	if results := m.Match(images, entries); len(results) != 0 {
		t.Fatalf("expected no results for identifier above image, got %d", len(results))
	}
}

func TestColumnMatcher_SharedEntryForStackedImages(t *testing.T) {
	m := defaultColumnMatcher()

	// Obverse and reverse stacked in one column above a single caption: both
	// images claim the caption.
	images := []model.ImageCandidate{
		candidate("obverse", 100, 100),
		candidate("reverse", 100, 180),
		candidate("Im2", 300, 100),
		candidate("Im3", 500, 100),
	}
	entries := []model.IdentifierEntry{
		entry("KM# 7", 100, 240),
		entry("KM# 8", 300, 150),
		entry("KM# 9", 500, 150),
	}

	results := m.Match(images, entries)
	claims := 0
	for _, r := range results {
		if r.Entry.ID == "KM# 7" {
			claims++
		}
	}
	if claims != 2 {
		t.Errorf("expected both stacked images to claim 'KM# 7', got %d claims", claims)
	}
}

func TestColumnMatcher_EmptyInputs(t *testing.T) {
	m := defaultColumnMatcher()
	if results := m.Match(nil, []model.IdentifierEntry{entry("KM# 1", 0, 0)}); results != nil {
		t.Error("expected nil results for no images")
	}
	if results := m.Match([]model.ImageCandidate{candidate("Im0", 0, 0)}, nil); results != nil {
		t.Error("expected nil results for no entries")
	}
}

func defaultBandMatcher() *BandMatcher {
	return NewBandMatcher(model.MatchConfig{HorizontalTolerance: 50, VerticalTolerance: -2})
}

func TestBandMatcher_HorizontalBoundary(t *testing.T) {
	m := defaultBandMatcher()

	img := model.ImageCandidate{
		Resource: model.ResourceRef{Name: "Im0"},
		BBox:     model.BBox{X0: 100, Y0: 100, X1: 200, Y1: 200},
	}

	// Centered at x=245: within 50 of the right edge, eligible.
	inside := model.IdentifierEntry{ID: "KM# 1", BBox: boxAt(245, 230)}
	results := m.Match([]model.ImageCandidate{img}, []model.IdentifierEntry{inside})
	if len(results) != 1 {
		t.Fatalf("expected entry at x=245 to be eligible, got %d results", len(results))
	}

	// Centered at x=260: outside the band.
	outside := model.IdentifierEntry{ID: "KM# 2", BBox: boxAt(260, 230)}
	results = m.Match([]model.ImageCandidate{img}, []model.IdentifierEntry{outside})
	if len(results) != 0 {
		t.Fatalf("expected entry at x=260 to be excluded, got %d results", len(results))
	}
}

func TestBandMatcher_AllowsSlightVerticalOverlap(t *testing.T) {
	m := defaultBandMatcher()

	img := model.ImageCandidate{BBox: model.BBox{X0: 100, Y0: 100, X1: 200, Y1: 200}}
	// Top edge one point above the image bottom: inside the -2 tolerance.
	overlapping := model.IdentifierEntry{ID: "KM# 1", BBox: model.BBox{X0: 120, Y0: 199, X1: 180, Y1: 215}}

	results := m.Match([]model.ImageCandidate{img}, []model.IdentifierEntry{overlapping})
	if len(results) != 1 {
		t.Fatalf("expected slight overlap to stay eligible, got %d results", len(results))
	}
}

func TestBandMatcher_PicksSmallestGap(t *testing.T) {
	m := defaultBandMatcher()

	img := model.ImageCandidate{BBox: model.BBox{X0: 100, Y0: 100, X1: 200, Y1: 200}}
	entries := []model.IdentifierEntry{
		{ID: "far", BBox: model.BBox{X0: 120, Y0: 300, X1: 180, Y1: 315}},
		{ID: "near", BBox: model.BBox{X0: 120, Y0: 210, X1: 180, Y1: 225}},
	}

	results := m.Match([]model.ImageCandidate{img}, entries)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Entry.ID != "near" {
		t.Errorf("expected 'near', got %q", results[0].Entry.ID)
	}
}

func TestNew_SelectsPolicy(t *testing.T) {
	cfg := model.DefaultConfig()
	if _, ok := New(cfg).(*ColumnMatcher); !ok {
		t.Error("default policy should be the column matcher")
	}
	cfg.Match.Policy = "band"
	if _, ok := New(cfg).(*BandMatcher); !ok {
		t.Error("policy 'band' should select the band matcher")
	}
}
