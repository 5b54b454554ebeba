// Package search uploads embedded records to an Azure AI Search index.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Praptimore/vector-creation/internal/model"
	"github.com/Praptimore/vector-creation/internal/util"
)

const (
	vectorProfile   = "default-vector-profile"
	vectorAlgorithm = "default-vector-config"
)

// Client talks to the Azure AI Search REST API. Only the operations the
// index stage needs are implemented: index lifecycle and document upload.
type Client struct {
	endpoint   string
	apiKey     string
	index      string
	apiVersion string
	batchSize  int
	http       *http.Client
}

// NewClient builds a client from configuration.
func NewClient(cfg model.SearchConfig, httpCfg model.HTTPConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("search endpoint is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("search API key is required")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("search index name is required")
	}

	apiVersion := cfg.APIVersion
	if apiVersion == "" {
		apiVersion = "2023-11-01"
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	timeout := httpCfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		index:      cfg.Index,
		apiVersion: apiVersion,
		batchSize:  batchSize,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: util.NewProxyFunc(httpCfg.HTTPProxy, httpCfg.HTTPSProxy),
			},
		},
	}, nil
}

// Document is one searchable record: the mapping index as key, the caption
// text, and the embedding vector.
type Document struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Vector      []float32 `json:"vector"`
}

// DocumentsFromMapping converts mapping records into upload documents.
// Records without a vector, or with a vector of the wrong length, are
// skipped; the count of skipped records is returned alongside.
func DocumentsFromMapping(m *model.Mapping, dimensions int) ([]Document, int) {
	var docs []Document
	skipped := 0
	for _, idx := range m.Indices() {
		rec, _ := m.Get(idx)
		if len(rec.Vector) != dimensions {
			skipped++
			continue
		}
		docs = append(docs, Document{
			ID:          strconv.Itoa(idx),
			Description: rec.Text,
			Vector:      rec.Vector,
		})
	}
	return docs, skipped
}

// DeleteIndex removes the index. A missing index is not an error.
func (c *Client) DeleteIndex(ctx context.Context) error {
	status, body, err := c.do(ctx, http.MethodDelete, c.indexURL(), nil)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return nil
	}
	if status >= 300 {
		return fmt.Errorf("delete index %s: status %d: %s", c.index, status, body)
	}
	return nil
}

// CreateIndex creates or updates the index with an HNSW vector profile over
// a vector field of the given length.
func (c *Client) CreateIndex(ctx context.Context, dimensions int) error {
	definition := map[string]any{
		"name": c.index,
		"fields": []map[string]any{
			{
				"name":       "id",
				"type":       "Edm.String",
				"key":        true,
				"filterable": true,
			},
			{
				"name":       "description",
				"type":       "Edm.String",
				"searchable": true,
			},
			{
				"name":                "vector",
				"type":                "Collection(Edm.Single)",
				"searchable":          true,
				"dimensions":          dimensions,
				"vectorSearchProfile": vectorProfile,
			},
		},
		"vectorSearch": map[string]any{
			"algorithms": []map[string]any{
				{"name": vectorAlgorithm, "kind": "hnsw"},
			},
			"profiles": []map[string]any{
				{"name": vectorProfile, "algorithm": vectorAlgorithm},
			},
		},
	}

	status, body, err := c.do(ctx, http.MethodPut, c.indexURL(), definition)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("create index %s: status %d: %s", c.index, status, body)
	}
	return nil
}

// EnsureIndex prepares the index for upload. With recreate set, any existing
// index is dropped first so stale documents cannot linger.
func (c *Client) EnsureIndex(ctx context.Context, dimensions int, recreate bool) error {
	if recreate {
		if err := c.DeleteIndex(ctx); err != nil {
			return err
		}
	}
	return c.CreateIndex(ctx, dimensions)
}

// UploadStats summarizes an upload run.
type UploadStats struct {
	Uploaded int
	Failed   int
	Batches  int
}

// uploadAction is a document plus the indexing action Azure expects.
type uploadAction struct {
	Action string `json:"@search.action"`
	Document
}

// batchResponse is the per-document status list Azure returns.
type batchResponse struct {
	Value []struct {
		Key          string `json:"key"`
		Status       bool   `json:"status"`
		ErrorMessage string `json:"errorMessage"`
	} `json:"value"`
}

// Upload pushes documents in batches. A batch that is rejected outright
// aborts the run; per-document failures within an accepted batch are counted
// and the run continues.
func (c *Client) Upload(ctx context.Context, docs []Document) (*UploadStats, error) {
	stats := &UploadStats{}
	url := fmt.Sprintf("%s/indexes/%s/docs/index?api-version=%s", c.endpoint, c.index, c.apiVersion)

	for start := 0; start < len(docs); start += c.batchSize {
		end := start + c.batchSize
		if end > len(docs) {
			end = len(docs)
		}

		actions := make([]uploadAction, 0, end-start)
		for _, doc := range docs[start:end] {
			actions = append(actions, uploadAction{Action: "upload", Document: doc})
		}

		status, body, err := c.do(ctx, http.MethodPost, url, map[string]any{"value": actions})
		if err != nil {
			return stats, err
		}
		if status != http.StatusOK && status != http.StatusMultiStatus {
			return stats, fmt.Errorf("upload batch: status %d: %s", status, body)
		}

		var resp batchResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return stats, fmt.Errorf("parse upload response: %w", err)
		}
		for _, item := range resp.Value {
			if item.Status {
				stats.Uploaded++
			} else {
				stats.Failed++
			}
		}
		stats.Batches++
	}
	return stats, nil
}

func (c *Client) indexURL() string {
	return fmt.Sprintf("%s/indexes/%s?api-version=%s", c.endpoint, c.index, c.apiVersion)
}

// do sends one request with the service headers and returns the status code
// and body.
func (c *Client) do(ctx context.Context, method, url string, payload any) (int, []byte, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}
