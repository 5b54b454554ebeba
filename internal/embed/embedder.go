// Package embed computes vectors for extracted plate images.
package embed

import (
	"context"
	"fmt"
	"strings"

	"github.com/Praptimore/vector-creation/internal/model"
)

// Embedder defines the interface for embedding providers
type Embedder interface {
	// Name returns the provider name
	Name() string

	// Model identifies the concrete model; it is part of the cache key
	Model() string

	// Dimensions returns the vector length every Embed call produces
	Dimensions() int

	// Embed computes the vector for one record. Providers use the caption
	// text, the image bytes, or both.
	Embed(ctx context.Context, text string, image []byte) ([]float32, error)

	// Remote reports whether Embed calls leave the process. Local providers
	// skip rate limiting.
	Remote() bool
}

// New creates an embedder based on configuration
func New(cfg model.EmbeddingConfig) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIEmbedder(cfg)

	case "pixel", "":
		return NewPixelEmbedder(cfg.Dimensions)

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, pixel)", cfg.Provider)
	}
}
