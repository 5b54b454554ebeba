package embed

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"

	// Plate images come out of the extractor as JPEG or PNG.
	_ "image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
)

// PixelEmbedder computes a vector from the image pixels alone: the image is
// resampled onto a fixed grayscale grid and the normalized intensities become
// the vector. It needs no API key and is fully deterministic, which makes it
// the default for offline runs and for tests.
type PixelEmbedder struct {
	gridW      int
	gridH      int
	dimensions int
}

// NewPixelEmbedder creates a pixel embedder. The dimension count must fit a
// 2:1 portrait grid (w by 2w cells), matching the typical aspect of a coin
// plate with its caption area; 512 gives a 16x32 grid.
func NewPixelEmbedder(dimensions int) (*PixelEmbedder, error) {
	if dimensions <= 0 {
		dimensions = 512
	}
	w := int(math.Sqrt(float64(dimensions / 2)))
	if w < 1 || 2*w*w != dimensions {
		return nil, fmt.Errorf("pixel embedder needs 2*w*w dimensions (128, 512, 2048, ...), got %d", dimensions)
	}
	return &PixelEmbedder{gridW: w, gridH: 2 * w, dimensions: dimensions}, nil
}

// Name returns the provider name
func (e *PixelEmbedder) Name() string { return "pixel" }

// Model identifies the grid geometry
func (e *PixelEmbedder) Model() string { return fmt.Sprintf("grid-%dx%d", e.gridW, e.gridH) }

// Dimensions returns the vector length
func (e *PixelEmbedder) Dimensions() int { return e.dimensions }

// Remote reports that Embed is a local computation
func (e *PixelEmbedder) Remote() bool { return false }

// Embed decodes the image, resamples it onto the grid and returns the
// L2-normalized grayscale intensities.
func (e *PixelEmbedder) Embed(_ context.Context, _ string, img []byte) ([]float32, error) {
	decoded, _, err := image.Decode(bytes.NewReader(img))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	grid := image.NewGray(image.Rect(0, 0, e.gridW, e.gridH))
	draw.CatmullRom.Scale(grid, grid.Bounds(), decoded, decoded.Bounds(), draw.Src, nil)

	vec := make([]float32, e.dimensions)
	var norm float64
	for i, pix := range grid.Pix {
		v := float64(pix) / 255
		vec[i] = float32(v)
		norm += v * v
	}

	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}
