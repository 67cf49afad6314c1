package extract

import "context"

// Document identifies an uploaded PDF. Name is what gets persisted with each
// association; Path is where the renderer reads it from.
type Document struct {
	Name string
	Path string
}

// PageImage is a rasterized page. Release frees whatever backs it (a temp file
// for the pdftoppm renderer); it may be nil.
type PageImage struct {
	Page    int
	Path    string
	Release func()
}

// Close releases the image. Safe to call on a zero PageImage.
func (i PageImage) Close() {
	if i.Release != nil {
		i.Release()
	}
}

// PageRenderer rasterizes one 1-based page of a document at the given scale.
type PageRenderer interface {
	RenderPage(ctx context.Context, doc Document, page int, scale float64) (PageImage, error)
}

// Recognizer turns a page image into raw text.
type Recognizer interface {
	Recognize(ctx context.Context, img PageImage, lang string) (string, error)
}
