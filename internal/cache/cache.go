// Package cache stores computed embedding vectors so re-running the embed
// stage does not recompute, or re-bill, unchanged images.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache defines the interface for vector caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// VectorKey derives a cache key from the provider identity and the image
// bytes. A change to the provider, the model or the image content produces
// a different key, so a stale vector is never served.
func VectorKey(provider, model string, image []byte) string {
	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write(image)
	return "platescan:v1:" + hex.EncodeToString(h.Sum(nil))
}

// EncodeVector serializes a vector for storage.
func EncodeVector(vec []float32) ([]byte, error) {
	return json.Marshal(vec)
}

// DecodeVector restores a vector written by EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, err
	}
	return vec, nil
}
