package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/pallet-tracker/internal/common"
	"github.com/joseph-ayodele/pallet-tracker/internal/extract"
	"github.com/joseph-ayodele/pallet-tracker/internal/ocr"
)

// runocr renders and recognizes pages of a PDF without touching the store,
// printing the recognized text and the pallet IDs found on each page.
func main() {
	page := flag.Int("page", 0, "page to process (0 = all pages)")
	showText := flag.Bool("text", false, "print the recognized text")
	flag.Parse()

	cfg := common.LoadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: common.ParseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "runocr [-page N] [-text] <file.pdf>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	pages, err := ocr.PageCount(path)
	if err != nil {
		logger.Error("failed to read pdf", "path", path, "error", err)
		os.Exit(1)
	}
	first, last := 1, pages
	if *page > 0 {
		if *page > pages {
			logger.Error("page out of range", "page", *page, "pages", pages)
			os.Exit(2)
		}
		first, last = *page, *page
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	engine := ocr.NewEngine(ocr.Config{
		Pdftoppm:      cfg.OCR.Pdftoppm,
		Tesseract:     cfg.OCR.Tesseract,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		BaseDPI:       cfg.OCR.BaseDPI,
		PSM:           cfg.OCR.PSM,
		OEM:           cfg.OCR.OEM,
		WorkDir:       cfg.OCR.ArtifactCacheDir,
	}, logger)
	doc := extract.Document{Name: path, Path: path}

	failed := false
	for p := first; p <= last; p++ {
		start := time.Now()
		img, err := engine.RenderPage(ctx, doc, p, cfg.OCR.Scale)
		if err != nil {
			logger.Error("render failed", "page", p, "error", err)
			failed = true
			continue
		}
		text, err := engine.Recognize(ctx, img, "")
		img.Close()
		if err != nil {
			logger.Error("recognition failed", "page", p, "error", err)
			failed = true
			continue
		}

		ids := extract.ExtractIdentifiers(text)
		logger.Info("page OK", "page", p, "chars", len(text), "ids", len(ids), "duration_ms", time.Since(start).Milliseconds())
		fmt.Printf("--- page %d ---\n", p)
		if *showText {
			fmt.Println(text)
		}
		for _, id := range ids {
			fmt.Println(id)
		}
	}
	if failed {
		os.Exit(1)
	}
}
