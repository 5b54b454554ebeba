package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/Praptimore/vector-creation/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), "images", "km_image_text.json")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestStore_LoadMissingMappingIsEmpty(t *testing.T) {
	s := newTestStore(t)

	m, err := s.LoadMapping()
	if err != nil {
		t.Fatalf("LoadMapping failed: %v", err)
	}
	if m.Len() != 0 {
		t.Errorf("expected empty mapping, got %d records", m.Len())
	}
	if m.NextIndex() != 0 {
		t.Errorf("expected next index 0, got %d", m.NextIndex())
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	m := model.NewMapping()
	m.Put(0, &model.MatchRecord{Image: "img_0.png", Page: 3, UniqueNumber: "KM# 488", Text: "KM# 488 crown"})
	m.Put(4, &model.MatchRecord{Image: "img_4.jpg", Page: 7, UniqueNumber: "KM# 12", Text: "KM# 12"})

	if err := s.SaveMapping(m); err != nil {
		t.Fatalf("SaveMapping failed: %v", err)
	}

	loaded, err := s.LoadMapping()
	if err != nil {
		t.Fatalf("LoadMapping failed: %v", err)
	}
	if loaded.Len() != 2 {
		t.Fatalf("expected 2 records, got %d", loaded.Len())
	}
	if loaded.NextIndex() != 5 {
		t.Errorf("expected next index 5 after max index 4, got %d", loaded.NextIndex())
	}
	rec, ok := loaded.Get(0)
	if !ok {
		t.Fatal("record 0 missing after round trip")
	}
	if rec.UniqueNumber != "KM# 488" || rec.Page != 3 {
		t.Errorf("record 0 corrupted: %+v", rec)
	}
}

func TestStore_MappingWireFormat(t *testing.T) {
	s := newTestStore(t)

	m := model.NewMapping()
	m.Put(12, &model.MatchRecord{Image: "img_12.png", Page: 0, UniqueNumber: "KM# 1", Text: "KM# 1 cent"})
	if err := s.SaveMapping(m); err != nil {
		t.Fatalf("SaveMapping failed: %v", err)
	}

	raw, err := os.ReadFile(s.MappingPath())
	if err != nil {
		t.Fatalf("read mapping file: %v", err)
	}

	// Keys are decimal strings; values use the fixed field names.
	var decoded map[string]map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("mapping file is not a JSON object: %v", err)
	}
	entry, ok := decoded["12"]
	if !ok {
		t.Fatalf("expected key \"12\", got keys %v", decoded)
	}
	for _, field := range []string{"image", "page", "unique_number", "text"} {
		if _, ok := entry[field]; !ok {
			t.Errorf("mapping entry missing %q field", field)
		}
	}
	if _, ok := entry["vector"]; ok {
		t.Error("vector field should be omitted when unset")
	}
}

func TestStore_SaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "images", "mapping.json")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := s.SaveMapping(model.NewMapping()); err != nil {
		t.Fatalf("SaveMapping failed: %v", err)
	}
	if _, err := os.Stat(s.MappingPath() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary checkpoint file left behind")
	}
}

func TestStore_WriteAndReadImage(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "images", "mapping.json")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	payload := []byte{0x89, 'P', 'N', 'G'}
	if err := s.WriteImage("img_0.png", payload); err != nil {
		t.Fatalf("WriteImage failed: %v", err)
	}

	got, err := s.ReadImage("img_0.png")
	if err != nil {
		t.Fatalf("ReadImage failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Error("image bytes changed on round trip")
	}

	if _, err := os.Stat(filepath.Join(dir, "images", "img_0.png")); err != nil {
		t.Errorf("image not under images subdirectory: %v", err)
	}
}
