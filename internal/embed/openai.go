package embed

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/Praptimore/vector-creation/internal/model"
)

// OpenAIEmbedder computes vectors with OpenAI's embeddings API. The input is
// the record's caption text; catalog captions carry the identifier plus the
// descriptive line, which is what similarity search runs against.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	timeout    time.Duration
}

// NewOpenAIEmbedder creates a new OpenAI embedder
func NewOpenAIEmbedder(cfg model.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	embedModel := cfg.Model
	if embedModel == "" {
		embedModel = string(openai.SmallEmbedding3)
	}

	dims := cfg.Dimensions
	if dims <= 0 {
		dims = 512
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      embedModel,
		dimensions: dims,
		timeout:    timeout,
	}, nil
}

// Name returns the provider name
func (e *OpenAIEmbedder) Name() string { return "openai" }

// Model returns the embedding model identifier
func (e *OpenAIEmbedder) Model() string { return e.model }

// Dimensions returns the configured vector length
func (e *OpenAIEmbedder) Dimensions() int { return e.dimensions }

// Remote reports that Embed performs API calls
func (e *OpenAIEmbedder) Remote() bool { return true }

// Embed requests a text embedding for the record's caption.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string, _ []byte) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("empty caption text")
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctxWithTimeout, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding from OpenAI")
	}

	vec := resp.Data[0].Embedding
	if len(vec) != e.dimensions {
		return nil, fmt.Errorf("OpenAI returned %d dimensions, want %d", len(vec), e.dimensions)
	}
	return vec, nil
}
