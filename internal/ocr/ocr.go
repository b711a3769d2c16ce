package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/recipe-extractor/constants"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit

	TessdataDir         string
	HeicConverter       string
	EnableTSVConfidence bool

	PSM int // e.g., 6 is good for uniform block of text
	OEM int // 1 = LSTM; leave 0 to use default

	// ArtifactCacheDir keeps converted HEIC images keyed by content hash. Empty disables caching.
	ArtifactCacheDir string
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceType constants.Format // constants.PDF | constants.IMAGE
	Method     string           // "pdf-text" | "pdf-ocr" | "image-ocr"
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// Extractor runs the tesseract/poppler command line tools.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
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
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// WithRunner swaps the command runner, mainly for tests.
func (e *Extractor) WithRunner(r Runner) *Extractor {
	e.runner = r
	return e
}

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("ocr.extract.start", "path", path, "ext", ext)
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err := e.extractPDF(ctx, path, e.cfg.TesseractLang, 0)
		res.Duration = time.Since(start)
		return res, err
	case constants.IMAGE:
		data, err := os.ReadFile(path)
		if err != nil {
			return ExtractionResult{SourceType: constants.IMAGE}, err
		}
		return e.ExtractImage(ctx, data, e.cfg.TesseractLang, nil)
	default:
		e.logger.Error("ocr.extract.unsupported", "extension", ext)
		return ExtractionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}
}

// ExtractImage OCRs an in-memory image. HEIC input is converted to PNG first.
// progress, when set, receives values from 0 to 100.
func (e *Extractor) ExtractImage(ctx context.Context, data []byte, lang string, progress func(int)) (ExtractionResult, error) {
	start := time.Now()
	report := func(p int) {
		if progress != nil {
			progress(p)
		}
	}
	if lang == "" {
		lang = e.cfg.TesseractLang
	}
	report(0)

	path, cleanup, err := writeTemp(data, "rt-img-*"+imageExt(data))
	if err != nil {
		return ExtractionResult{SourceType: constants.IMAGE}, err
	}
	defer cleanup()
	report(10)

	var warns []string
	if isHEIC(data) {
		sum := sha256.Sum256(data)
		out, w, c, err := convertHEICtoPNG(ctx, e.runner, e.logger, e.cfg.HeicConverter, path, e.cfg.ArtifactCacheDir, hex.EncodeToString(sum[:]))
		warns = append(warns, w...)
		if c != nil {
			defer c()
		}
		if err != nil {
			e.logger.Error("ocr.heic.failed", "error", err)
			return ExtractionResult{SourceType: constants.IMAGE, Warnings: warns}, err
		}
		path = out
	}
	report(30)

	res, err := e.extractImage(ctx, path, lang)
	res.Warnings = append(res.Warnings, warns...)
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	report(100)
	e.logger.Debug("ocr.image.ok",
		"chars", len(res.Text),
		"confidence", res.Confidence,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// ExtractPDF reads an in-memory PDF: the pdftotext layer first, then page OCR when the
// layer holds fewer than minChars non-space characters.
func (e *Extractor) ExtractPDF(ctx context.Context, data []byte, lang string, minChars int) (ExtractionResult, error) {
	start := time.Now()
	if lang == "" {
		lang = e.cfg.TesseractLang
	}
	path, cleanup, err := writeTemp(data, "rt-pdf-*.pdf")
	if err != nil {
		return ExtractionResult{SourceType: constants.PDF}, err
	}
	defer cleanup()
	res, err := e.extractPDF(ctx, path, lang, minChars)
	res.Duration = time.Since(start)
	return res, err
}

func (e *Extractor) extractPDF(ctx context.Context, path, lang string, minChars int) (ExtractionResult, error) {
	if minChars <= 0 {
		minChars = constants.MinLengthPipeline
	}
	var warns []string
	txt, pages, w, err := e.pdfToText(ctx, path)
	warns = append(warns, w...)
	if err == nil && nonSpaceLen(txt) >= minChars {
		return ExtractionResult{
			Text:       Normalize(txt),
			Pages:      pages,
			SourceType: constants.PDF,
			Method:     "pdf-text",
			Language:   lang,
			Warnings:   warns,
			Confidence: 1,
		}, nil
	}
	if err != nil {
		warns = append(warns, "pdftotext: "+err.Error())
	}
	e.logger.Debug("ocr.pdf.fallback", "path", path, "text_chars", nonSpaceLen(txt))

	ocrTxt, pages, w, err := e.pdfToOCR(ctx, path, lang)
	warns = append(warns, w...)
	if err != nil {
		return ExtractionResult{SourceType: constants.PDF, Warnings: warns}, err
	}
	ocrTxt = Normalize(ocrTxt)
	return ExtractionResult{
		Text:       ocrTxt,
		Pages:      pages,
		SourceType: constants.PDF,
		Method:     "pdf-ocr",
		Language:   lang,
		Warnings:   warns,
		Confidence: heuristicConfidence(ocrTxt),
	}, nil
}

func writeTemp(data []byte, pattern string) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, err
	}
	name := f.Name()
	cleanup := func() { _ = os.Remove(name) }
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return name, cleanup, nil
}
