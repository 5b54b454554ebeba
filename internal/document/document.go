// Package document defines the contract with the PDF backend. The pipeline
// never touches the PDF library directly; it consumes pages and image
// resources through the Backend interface so the extraction logic stays
// independent of any particular reader.
package document

import "github.com/Praptimore/vector-creation/internal/model"

// ImagePlacement is one enumerated occurrence of an embedded image resource
// on a page, with its placement rectangle in top-origin page coordinates.
type ImagePlacement struct {
	Ref  model.ResourceRef
	BBox model.BBox
}

// PageContent is everything the extractor needs from one page.
type PageContent struct {
	Number int     // zero-based page index
	Width  float64 // page width in points
	Height float64 // page height in points

	// Blocks are the page's content blocks in reading order. Text blocks
	// carry concatenated span text; image blocks carry placement boxes.
	Blocks []model.Block

	// Images enumerates the embedded image resources placed on the page.
	Images []ImagePlacement
}

// Backend reads pages and image resources from a document.
type Backend interface {
	// PageCount returns the number of pages.
	PageCount() (int, error)

	// Page returns the content of the page at the given zero-based index.
	Page(index int) (*PageContent, error)

	// Resource returns the raw bytes of an embedded image together with a
	// format tag suitable as a file extension ("png", "jpg").
	Resource(ref model.ResourceRef) ([]byte, string, error)

	// Close releases the underlying document handle.
	Close() error
}
