package ocr

import (
	"log/slog"
	"os"

	"github.com/joseph-ayodele/pallet-tracker/internal/extract"
)

// DefaultScale is the page magnification used for rasterization.
const DefaultScale = 2.0

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	TessdataDir   string

	// BaseDPI is the resolution of a page at scale 1. PDF user space is 72 units per inch.
	BaseDPI int

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	// WorkDir holds rendered pages while they are recognized; empty -> os.TempDir().
	WorkDir string
}

// Engine rasterizes PDF pages with pdftoppm and recognizes them with tesseract.
type Engine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

var (
	_ extract.PageRenderer = (*Engine)(nil)
	_ extract.Recognizer   = (*Engine)(nil)
)

// NewEngine fills in defaults for any unset binary, language, DPI or work dir.
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.BaseDPI <= 0 {
		cfg.BaseDPI = 72
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &Engine{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
}

// WithRunner swaps the command runner; tests use it to stub pdftoppm and tesseract.
func (e *Engine) WithRunner(r Runner) *Engine {
	e.runner = r
	return e
}

// Language returns the configured default recognition language.
func (e *Engine) Language() string { return e.cfg.TesseractLang }
