package model

// Coordinates throughout the pipeline are top-origin page points: x grows
// right, y grows down, so "below" on the printed page means a larger y.
// The document backend is responsible for normalizing into this space.

// BBox is an axis-aligned bounding box in page coordinates.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// CenterX returns the horizontal center of the box.
func (b BBox) CenterX() float64 {
	return (b.X0 + b.X1) / 2
}

// CenterY returns the vertical center of the box.
func (b BBox) CenterY() float64 {
	return (b.Y0 + b.Y1) / 2
}

// Width returns the horizontal extent of the box.
func (b BBox) Width() float64 {
	return b.X1 - b.X0
}

// Height returns the vertical extent of the box.
func (b BBox) Height() float64 {
	return b.Y1 - b.Y0
}

// BlockKind discriminates page content blocks.
type BlockKind int

const (
	BlockText BlockKind = iota
	BlockImage
)

func (k BlockKind) String() string {
	switch k {
	case BlockText:
		return "text"
	case BlockImage:
		return "image"
	default:
		return "unknown"
	}
}

// Block is a positioned content region on a page. Text blocks carry the
// concatenated span text; image blocks carry only their placement box and are
// resolved against the page's enumerated image resources later.
type Block struct {
	Kind BlockKind
	BBox BBox
	Text string // text blocks only
}

// ResourceRef identifies an embedded image resource within the document.
type ResourceRef struct {
	Page int    // zero-based page index
	Name string // document-internal resource name (e.g. XObject name)
}

// IdentifierEntry is a catalog identifier found in a text block.
type IdentifierEntry struct {
	ID   string // normalized identifier, e.g. "KM# 488"
	Text string // full source block text, kept as downstream context
	BBox BBox
}

// ImageCandidate is an image block whose underlying resource was resolved.
// Column is assigned by the clusterer; -1 means unassigned.
type ImageCandidate struct {
	Resource ResourceRef
	BBox     BBox
	Column   int
}
