package document

import (
	"fmt"
	"strings"

	"github.com/tsawler/tabula/contentstream"
	"github.com/tsawler/tabula/core"
	"github.com/tsawler/tabula/graphicsstate"
	"github.com/tsawler/tabula/layout"
	tmodel "github.com/tsawler/tabula/model"
	"github.com/tsawler/tabula/pages"
	"github.com/tsawler/tabula/reader"

	"github.com/Praptimore/vector-creation/internal/model"
)

// TabulaBackend implements Backend on top of the tabula PDF reader.
//
// Tabula reports positions in PDF user space (origin bottom-left, y up); the
// backend flips everything into the pipeline's top-origin space at this
// boundary so the association logic can reason about "below" as larger y.
type TabulaBackend struct {
	r         *reader.Reader
	detector  *layout.BlockDetector
	pageCount int

	// Decoded image XObjects of one page, keyed by resource name. Resources
	// are fetched while their page is being processed, so only the most
	// recent page is retained; earlier pages' pixel data would otherwise
	// accumulate across a large catalog.
	imgPage  int // -1 when nothing is cached
	imgCache map[string]reader.PageImage
}

// OpenTabula opens the PDF at path. The caller owns the returned backend and
// must Close it after the run completes or fails.
func OpenTabula(path string) (*TabulaBackend, error) {
	r, err := reader.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document %s: %w", path, err)
	}
	count, err := r.PageCount()
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("read page count: %w", err)
	}
	return &TabulaBackend{
		r:         r,
		detector:  layout.NewBlockDetector(),
		pageCount: count,
		imgPage:   -1,
	}, nil
}

// PageCount returns the number of pages in the document.
func (b *TabulaBackend) PageCount() (int, error) {
	return b.pageCount, nil
}

// Page extracts one page: text fragments grouped into blocks, plus the image
// placements found by walking the content stream.
func (b *TabulaBackend) Page(index int) (*PageContent, error) {
	page, err := b.r.GetPage(index)
	if err != nil {
		return nil, fmt.Errorf("page %d: %w", index, err)
	}

	width, err := page.Width()
	if err != nil {
		return nil, fmt.Errorf("page %d width: %w", index, err)
	}
	height, err := page.Height()
	if err != nil {
		return nil, fmt.Errorf("page %d height: %w", index, err)
	}

	pc := &PageContent{Number: index, Width: width, Height: height}

	fragments, err := b.r.ExtractTextFragments(page)
	if err != nil {
		return nil, fmt.Errorf("page %d text: %w", index, err)
	}
	if result := b.detector.Detect(fragments, width, height); result != nil {
		for _, blk := range result.Blocks {
			text := joinFragments(blk)
			if text == "" {
				continue
			}
			pc.Blocks = append(pc.Blocks, model.Block{
				Kind: model.BlockText,
				BBox: flipLayoutBBox(blk.BBox, height),
				Text: text,
			})
		}
	}

	names, err := b.pageImages(index, page)
	if err != nil {
		return nil, err
	}
	placements, err := b.imagePlacements(page, index, height, names)
	if err != nil {
		return nil, fmt.Errorf("page %d images: %w", index, err)
	}
	for _, pl := range placements {
		pc.Images = append(pc.Images, pl)
		pc.Blocks = append(pc.Blocks, model.Block{Kind: model.BlockImage, BBox: pl.BBox})
	}

	return pc, nil
}

// Resource returns the raw bytes of an embedded image. JPEG streams pass
// through unchanged; everything else is re-encoded as PNG from the decoded
// pixel data.
func (b *TabulaBackend) Resource(ref model.ResourceRef) ([]byte, string, error) {
	byName := b.imgCache
	if byName == nil || b.imgPage != ref.Page {
		page, err := b.r.GetPage(ref.Page)
		if err != nil {
			return nil, "", fmt.Errorf("page %d: %w", ref.Page, err)
		}
		if byName, err = b.pageImages(ref.Page, page); err != nil {
			return nil, "", err
		}
	}
	img, ok := byName[ref.Name]
	if !ok {
		return nil, "", fmt.Errorf("page %d has no image resource %q", ref.Page, ref.Name)
	}
	if img.Filter == "DCTDecode" {
		return img.Data, "jpg", nil
	}
	data, err := img.ToPNG()
	if err != nil {
		return nil, "", fmt.Errorf("encode image %q: %w", ref.Name, err)
	}
	return data, "png", nil
}

// Close releases the document handle.
func (b *TabulaBackend) Close() error {
	return b.r.Close()
}

func (b *TabulaBackend) pageImages(index int, page *pages.Page) (map[string]reader.PageImage, error) {
	if b.imgCache != nil && b.imgPage == index {
		return b.imgCache, nil
	}
	imgs, err := b.r.ExtractPageImages(page)
	if err != nil {
		return nil, fmt.Errorf("page %d image resources: %w", index, err)
	}
	byName := make(map[string]reader.PageImage, len(imgs))
	for _, img := range imgs {
		byName[img.Name] = img
	}
	b.storeImages(index, byName)
	return byName, nil
}

// storeImages replaces the cached page. Pixel data of any previous page is
// released here.
func (b *TabulaBackend) storeImages(index int, byName map[string]reader.PageImage) {
	b.imgPage = index
	b.imgCache = byName
}

// imagePlacements walks the page's content stream tracking the CTM and emits
// one placement per Do of a known image XObject. An image occupies the unit
// square transformed by the CTM in effect at the Do operator.
func (b *TabulaBackend) imagePlacements(page *pages.Page, index int, pageHeight float64, names map[string]reader.PageImage) ([]ImagePlacement, error) {
	contents, err := page.Contents()
	if err != nil {
		return nil, err
	}

	var data []byte
	for _, obj := range contents {
		stream, ok := obj.(*core.Stream)
		if !ok {
			continue
		}
		decoded, err := stream.Decode()
		if err != nil {
			return nil, fmt.Errorf("decode content stream: %w", err)
		}
		data = append(data, decoded...)
		data = append(data, '\n')
	}
	if len(data) == 0 {
		return nil, nil
	}

	ops, err := contentstream.NewParser(data).Parse()
	if err != nil {
		return nil, fmt.Errorf("parse content stream: %w", err)
	}

	gs := graphicsstate.NewGraphicsState()
	var placements []ImagePlacement
	for _, op := range ops {
		switch op.Operator {
		case "q":
			gs.Save()
		case "Q":
			// Unbalanced Q is tolerated; a broken stream should not hide
			// image placements found so far.
			_ = gs.Restore()
		case "cm":
			if len(op.Operands) == 6 {
				gs.Transform(matrixFromOperands(op.Operands))
			}
		case "Do":
			if len(op.Operands) != 1 {
				continue
			}
			name, ok := op.Operands[0].(core.Name)
			if !ok {
				continue
			}
			if _, isImage := names[string(name)]; !isImage {
				continue
			}
			placements = append(placements, ImagePlacement{
				Ref:  model.ResourceRef{Page: index, Name: string(name)},
				BBox: placementBBox(gs.CTM, pageHeight),
			})
		}
	}
	return placements, nil
}

// placementBBox maps the unit square through the CTM and flips the result
// into top-origin coordinates.
func placementBBox(ctm tmodel.Matrix, pageHeight float64) model.BBox {
	corners := []tmodel.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}
	first := ctm.Transform(corners[0])
	minX, maxX := first.X, first.X
	minY, maxY := first.Y, first.Y
	for _, c := range corners[1:] {
		p := ctm.Transform(c)
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	return model.BBox{X0: minX, Y0: pageHeight - maxY, X1: maxX, Y1: pageHeight - minY}
}

// flipLayoutBBox converts a tabula layout box (bottom-origin x/y/w/h) into a
// top-origin corner box.
func flipLayoutBBox(b tmodel.BBox, pageHeight float64) model.BBox {
	return model.BBox{
		X0: b.X,
		Y0: pageHeight - (b.Y + b.Height),
		X1: b.X + b.Width,
		Y1: pageHeight - b.Y,
	}
}

// joinFragments concatenates a block's span texts in document order with
// single spaces, trimmed.
func joinFragments(blk layout.Block) string {
	parts := make([]string, 0, len(blk.Fragments))
	for _, frag := range blk.Fragments {
		if t := strings.TrimSpace(frag.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func matrixFromOperands(operands []core.Object) tmodel.Matrix {
	var vals [6]float64
	for i := 0; i < 6 && i < len(operands); i++ {
		switch v := operands[i].(type) {
		case core.Int:
			vals[i] = float64(v)
		case core.Real:
			vals[i] = float64(v)
		}
	}
	return tmodel.Matrix(vals)
}
