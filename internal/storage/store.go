// Package storage persists extracted images and the mapping file.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Praptimore/vector-creation/internal/model"
)

// Store owns the output directory layout: an images subdirectory plus the
// mapping JSON file.
type Store struct {
	imagesDir   string
	mappingPath string
}

// New creates the output directories if needed and returns a store.
func New(outputDir, imagesSubdir, mappingFile string) (*Store, error) {
	imagesDir := filepath.Join(outputDir, imagesSubdir)
	if err := os.MkdirAll(imagesDir, 0755); err != nil {
		return nil, fmt.Errorf("create images directory: %w", err)
	}
	return &Store{
		imagesDir:   imagesDir,
		mappingPath: filepath.Join(outputDir, mappingFile),
	}, nil
}

// WriteImage writes raw image bytes under the images directory.
func (s *Store) WriteImage(name string, data []byte) error {
	if err := os.WriteFile(filepath.Join(s.imagesDir, name), data, 0644); err != nil {
		return fmt.Errorf("write image %s: %w", name, err)
	}
	return nil
}

// ReadImage reads a previously written image back.
func (s *Store) ReadImage(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.imagesDir, name))
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", name, err)
	}
	return data, nil
}

// MappingPath returns the mapping file location.
func (s *Store) MappingPath() string {
	return s.mappingPath
}

// LoadMapping reads the mapping file. A missing file yields an empty mapping,
// so a fresh run and a resumed run take the same code path.
func (s *Store) LoadMapping() (*model.Mapping, error) {
	data, err := os.ReadFile(s.mappingPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return model.NewMapping(), nil
		}
		return nil, fmt.Errorf("read mapping %s: %w", s.mappingPath, err)
	}
	m := model.NewMapping()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", s.mappingPath, err)
	}
	return m, nil
}

// SaveMapping writes the mapping as indented JSON. The write goes to a
// temporary file first and is renamed into place, so an interrupted
// checkpoint never corrupts the previous one.
func (s *Store) SaveMapping(m *model.Mapping) error {
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}

	tmp := s.mappingPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write mapping checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.mappingPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("commit mapping checkpoint: %w", err)
	}
	return nil
}
