package ocr

import (
	"context"
	"fmt"
	"strconv"

	"github.com/joseph-ayodele/pallet-tracker/internal/extract"
)

// Recognize runs tesseract on a rendered page and returns normalized text.
// An empty lang falls back to the configured language.
func (e *Engine) Recognize(ctx context.Context, img extract.PageImage, lang string) (string, error) {
	if img.Path == "" {
		return "", fmt.Errorf("page %d has no image", img.Page)
	}
	if lang == "" {
		lang = e.cfg.TesseractLang
	}

	// tesseract <file> stdout -l <lang>
	args := []string{img.Path, "stdout", "-l", lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}

	txt := Normalize(reBoxNoise.ReplaceAllString(string(out), ""))
	e.logger.Debug("page recognized", "page", img.Page, "lang", lang, "chars", len(txt))
	return txt, nil
}
