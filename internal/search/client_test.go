package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Praptimore/vector-creation/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler, mutate func(*model.SearchConfig)) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := model.SearchConfig{
		Endpoint:   srv.URL,
		APIKey:     "test-key",
		Index:      "images-index",
		APIVersion: "2023-11-01",
		BatchSize:  500,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewClient(cfg, model.HTTPConfig{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c, srv
}

func TestNewClient_RequiresConnectionSettings(t *testing.T) {
	if _, err := NewClient(model.SearchConfig{APIKey: "k", Index: "i"}, model.HTTPConfig{}); err == nil {
		t.Error("expected error without endpoint")
	}
	if _, err := NewClient(model.SearchConfig{Endpoint: "https://s.search.windows.net", Index: "i"}, model.HTTPConfig{}); err == nil {
		t.Error("expected error without API key")
	}
	if _, err := NewClient(model.SearchConfig{Endpoint: "https://s.search.windows.net", APIKey: "k"}, model.HTTPConfig{}); err == nil {
		t.Error("expected error without index name")
	}
}

func TestCreateIndex_SendsHNSWDefinition(t *testing.T) {
	var got map[string]any
	var path, apiKey, query string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		query = r.URL.RawQuery
		apiKey = r.Header.Get("api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusCreated)
	}), nil)

	if err := client.CreateIndex(context.Background(), 512); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	if path != "/indexes/images-index" {
		t.Errorf("unexpected path %q", path)
	}
	if query != "api-version=2023-11-01" {
		t.Errorf("unexpected query %q", query)
	}
	if apiKey != "test-key" {
		t.Errorf("expected api-key header, got %q", apiKey)
	}

	fields, ok := got["fields"].([]any)
	if !ok || len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %v", got["fields"])
	}
	vectorField := fields[2].(map[string]any)
	if vectorField["type"] != "Collection(Edm.Single)" {
		t.Errorf("unexpected vector type %v", vectorField["type"])
	}
	if vectorField["dimensions"] != float64(512) {
		t.Errorf("expected 512 dimensions, got %v", vectorField["dimensions"])
	}
	if vectorField["vectorSearchProfile"] != vectorProfile {
		t.Errorf("vector field not bound to profile: %v", vectorField["vectorSearchProfile"])
	}

	vs := got["vectorSearch"].(map[string]any)
	algo := vs["algorithms"].([]any)[0].(map[string]any)
	if algo["kind"] != "hnsw" {
		t.Errorf("expected hnsw algorithm, got %v", algo["kind"])
	}
}

func TestDeleteIndex_IgnoresMissingIndex(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), nil)

	if err := client.DeleteIndex(context.Background()); err != nil {
		t.Errorf("DeleteIndex must tolerate a missing index: %v", err)
	}
}

func TestUpload_BatchesAndActions(t *testing.T) {
	var batches [][]map[string]any

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/indexes/images-index/docs/index" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var payload struct {
			Value []map[string]any `json:"value"`
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		batches = append(batches, payload.Value)

		resp := batchResponse{}
		for _, doc := range payload.Value {
			resp.Value = append(resp.Value, struct {
				Key          string `json:"key"`
				Status       bool   `json:"status"`
				ErrorMessage string `json:"errorMessage"`
			}{Key: doc["id"].(string), Status: true})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}), func(cfg *model.SearchConfig) {
		cfg.BatchSize = 2
	})

	docs := make([]Document, 5)
	for i := range docs {
		docs[i] = Document{ID: fmt.Sprintf("%d", i), Description: "KM# 1", Vector: []float32{1}}
	}

	stats, err := client.Upload(context.Background(), docs)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if stats.Uploaded != 5 || stats.Batches != 3 {
		t.Errorf("expected 5 uploaded in 3 batches, got %+v", stats)
	}
	if len(batches) != 3 || len(batches[0]) != 2 || len(batches[2]) != 1 {
		t.Fatalf("expected batches of 2,2,1, got %d batches", len(batches))
	}
	if batches[0][0]["@search.action"] != "upload" {
		t.Errorf("expected upload action, got %v", batches[0][0]["@search.action"])
	}
}

func TestUpload_CountsPerDocumentFailures(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMultiStatus)
		_, _ = w.Write([]byte(`{"value":[{"key":"0","status":true},{"key":"1","status":false,"errorMessage":"too large"}]}`))
	}), nil)

	stats, err := client.Upload(context.Background(), []Document{
		{ID: "0", Vector: []float32{1}},
		{ID: "1", Vector: []float32{1}},
	})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if stats.Uploaded != 1 || stats.Failed != 1 {
		t.Errorf("expected 1 uploaded and 1 failed, got %+v", stats)
	}
}

func TestDocumentsFromMapping_SkipsUnembedded(t *testing.T) {
	m := model.NewMapping()
	m.Put(0, &model.MatchRecord{Image: "img_0.png", Text: "KM# 1", Vector: []float32{1, 2}})
	// No vector at index 1, wrong vector length at index 2.
	m.Put(1, &model.MatchRecord{Image: "img_1.png", Text: "KM# 2"})
	m.Put(2, &model.MatchRecord{Image: "img_2.png", Text: "KM# 3", Vector: []float32{1}})

	docs, skipped := DocumentsFromMapping(m, 2)
	if len(docs) != 1 || skipped != 2 {
		t.Fatalf("expected 1 document and 2 skipped, got %d and %d", len(docs), skipped)
	}
	if docs[0].ID != "0" || docs[0].Description != "KM# 1" {
		t.Errorf("unexpected document %+v", docs[0])
	}
}
