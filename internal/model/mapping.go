package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// MatchRecord is one confirmed image-to-identifier association. Records are
// created once by the extract stage and never mutated afterwards; the embed
// stage only fills in Vector.
type MatchRecord struct {
	Image        string    `json:"image"`            // filename under the images directory
	Page         int       `json:"page"`             // zero-based page number
	UniqueNumber string    `json:"unique_number"`    // catalog identifier
	Text         string    `json:"text"`             // full context text of the source block
	Vector       []float32 `json:"vector,omitempty"` // embedding, added by the embed stage
}

// Mapping is the run's durable output: match records keyed by a run-unique
// sequence index. It serializes as a JSON object whose keys are the decimal
// string form of the index, so it can be loaded and extended across restarts.
type Mapping struct {
	records map[int]*MatchRecord
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{records: make(map[int]*MatchRecord)}
}

// Len returns the number of records.
func (m *Mapping) Len() int {
	return len(m.records)
}

// Get returns the record at the given index.
func (m *Mapping) Get(index int) (*MatchRecord, bool) {
	rec, ok := m.records[index]
	return rec, ok
}

// Put stores a record at an explicit index, overwriting any existing one.
func (m *Mapping) Put(index int, rec *MatchRecord) {
	m.records[index] = rec
}

// Append stores a record at NextIndex and returns the index it was given.
func (m *Mapping) Append(rec *MatchRecord) int {
	idx := m.NextIndex()
	m.records[idx] = rec
	return idx
}

// NextIndex returns one greater than the maximum existing index, or zero for
// an empty mapping. Indices 0..max are never reused on resumption.
func (m *Mapping) NextIndex() int {
	next := 0
	for idx := range m.records {
		if idx >= next {
			next = idx + 1
		}
	}
	return next
}

// Indices returns all indices in ascending order.
func (m *Mapping) Indices() []int {
	indices := make([]int, 0, len(m.records))
	for idx := range m.records {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	return indices
}

// MarshalJSON renders the mapping as a string-keyed JSON object.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	out := make(map[string]*MatchRecord, len(m.records))
	for idx, rec := range m.records {
		out[strconv.Itoa(idx)] = rec
	}
	return json.Marshal(out)
}

// UnmarshalJSON parses a string-keyed JSON object produced by MarshalJSON.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	var raw map[string]*MatchRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.records = make(map[int]*MatchRecord, len(raw))
	for key, rec := range raw {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return fmt.Errorf("mapping key %q is not a sequence index: %w", key, err)
		}
		m.records[idx] = rec
	}
	return nil
}
