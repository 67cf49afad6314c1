package ocr

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/joseph-ayodele/pallet-tracker/internal/extract"
)

// RenderPage rasterizes a single page to PNG. The returned image owns a temp
// directory that is removed by Close.
func (e *Engine) RenderPage(ctx context.Context, doc extract.Document, page int, scale float64) (extract.PageImage, error) {
	if page < 1 {
		return extract.PageImage{}, fmt.Errorf("page %d out of range", page)
	}
	if scale <= 0 {
		scale = DefaultScale
	}
	dpi := int(math.Round(float64(e.cfg.BaseDPI) * scale))

	tmpDir, err := os.MkdirTemp(e.cfg.WorkDir, "pt-page-*")
	if err != nil {
		return extract.PageImage{}, fmt.Errorf("create work dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("failed to remove page work dir", "path", tmpDir, "error", err)
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	n := strconv.Itoa(page)
	// pdftoppm -f N -l N -r DPI -png -singlefile <in.pdf> <tmp/page>  ->  <tmp/page>.png
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-f", n, "-l", n, "-r", strconv.Itoa(dpi), "-png", "-singlefile", doc.Path, prefix)
	if err != nil {
		cleanup()
		return extract.PageImage{}, fmt.Errorf("pdftoppm page %d: %w: %s", page, err, truncate(string(errb), 512))
	}

	out := prefix + ".png"
	if _, statErr := os.Stat(out); statErr != nil {
		cleanup()
		return extract.PageImage{}, fmt.Errorf("pdftoppm produced no image for page %d: %w", page, statErr)
	}

	e.logger.Debug("page rendered", "document", doc.Name, "page", page, "dpi", dpi)
	return extract.PageImage{Page: page, Path: out, Release: cleanup}, nil
}

// PageCount returns the number of pages in the PDF at path.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}
