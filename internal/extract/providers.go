package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/recipe-extractor/constants"
	"github.com/joseph-ayodele/recipe-extractor/internal/document"
	"github.com/joseph-ayodele/recipe-extractor/internal/ocr"
)

var ErrNoOCREngine = errors.New("no OCR engine configured")

// Providers are the collaborators behind the default capability table.
// ScannedPDF and Image may be nil when no OCR engine is available.
type Providers struct {
	PDF        PDFTextExtractor
	ScannedPDF PDFTextExtractor
	Docx       DocxTextExtractor
	Image      ImageTextExtractor
}

// DefaultRegistry builds the pdf, word-document, image, plain-text table.
func DefaultRegistry(p Providers) *Registry {
	if p.PDF == nil {
		p.PDF = PDFTextLayer{}
	}
	if p.Docx == nil {
		p.Docx = DocxReader{}
	}
	r := NewRegistry(
		Capability{
			Name:             constants.PDF,
			MatchContentType: ContentTypes(constants.PDFContentTypes...),
			MatchExtension:   Extensions(constants.PDFExtensions...),
			Extract:          pdfChain(p.PDF, p.ScannedPDF),
		},
		Capability{
			Name:             constants.WORD,
			MatchContentType: ContentTypes(constants.WordContentTypes...),
			MatchExtension:   Extensions(constants.WordExtensions...),
			Extract: func(ctx context.Context, data []byte, _ Options) (Output, error) {
				return p.Docx.ExtractDocxText(ctx, data)
			},
		},
	)
	r.Register(Capability{
		Name:             constants.IMAGE,
		MatchContentType: ContentTypes("image/*"),
		MatchExtension:   Extensions(constants.ImageExtensions...),
		Extract: func(ctx context.Context, data []byte, opts Options) (Output, error) {
			if p.Image == nil {
				return Output{}, ErrNoOCREngine
			}
			return p.Image.ExtractImageText(ctx, data, opts.Language, opts.Progress)
		},
	})
	r.Register(Capability{
		Name:             constants.PLAINTEXT,
		MatchContentType: ContentTypes(constants.TextContentTypes...),
		MatchExtension:   Extensions(constants.TextExtensions...),
		Extract: func(_ context.Context, data []byte, _ Options) (Output, error) {
			return Output{Text: document.DecodePlainText(data), Pages: 1, Method: "plain-text"}, nil
		},
	})
	return r
}

// pdfChain reads the text layer and falls back to OCR when it is shorter than the minimum.
func pdfChain(text, scanned PDFTextExtractor) Strategy {
	return func(ctx context.Context, data []byte, opts Options) (Output, error) {
		out, err := text.ExtractPDFText(ctx, data)
		if scanned == nil {
			return out, err
		}
		if err == nil && trimmedLen(out.Text) >= opts.MinLength {
			return out, nil
		}
		ocrOut, ocrErr := scanned.ExtractPDFText(ctx, data)
		if ocrErr != nil {
			if err != nil {
				return Output{}, fmt.Errorf("text layer: %v; ocr: %w", err, ocrErr)
			}
			// keep the short text layer; the dispatcher reports it as empty
			out.Warnings = append(out.Warnings, "pdf ocr fallback: "+ocrErr.Error())
			return out, nil
		}
		if err != nil {
			ocrOut.Warnings = append(ocrOut.Warnings, "pdf text layer: "+err.Error())
		}
		return ocrOut, nil
	}
}

func trimmedLen(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// PDFTextLayer reads embedded PDF text with pdfcpu.
type PDFTextLayer struct{}

func (PDFTextLayer) ExtractPDFText(_ context.Context, data []byte) (Output, error) {
	text, pages, err := document.ReadPDFText(data)
	if err != nil {
		return Output{}, err
	}
	return Output{Text: text, Pages: pages, Method: "pdf-text"}, nil
}

// DocxReader reads word/document.xml paragraphs.
type DocxReader struct{}

func (DocxReader) ExtractDocxText(_ context.Context, data []byte) (Output, error) {
	text, err := document.ReadDocxText(data)
	if err != nil {
		return Output{}, err
	}
	return Output{Text: text, Pages: 1, Method: "docx"}, nil
}

// OCRAdapter exposes the tesseract extractor as image and scanned-PDF providers.
type OCRAdapter struct {
	e        *ocr.Extractor
	lang     string
	minChars int
	logger   *slog.Logger
}

func NewOCRAdapter(e *ocr.Extractor, lang string, minChars int, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{e: e, lang: lang, minChars: minChars, logger: logger}
}

func (a *OCRAdapter) ExtractImageText(ctx context.Context, data []byte, lang string, progress ProgressFunc) (Output, error) {
	if lang == "" {
		lang = a.lang
	}
	r, err := a.e.ExtractImage(ctx, data, lang, progress)
	a.logResult(ctx, "extract.ocr.image", r, err)
	return fromOCR(r), err
}

func (a *OCRAdapter) ExtractPDFText(ctx context.Context, data []byte) (Output, error) {
	r, err := a.e.ExtractPDF(ctx, data, a.lang, a.minChars)
	a.logResult(ctx, "extract.ocr.pdf", r, err)
	return fromOCR(r), err
}

func (a *OCRAdapter) logResult(ctx context.Context, event string, r ocr.ExtractionResult, err error) {
	if err != nil {
		a.logger.WarnContext(ctx, event+".failed",
			"warnings", len(r.Warnings),
			"elapsed_ms", r.Duration.Milliseconds(),
			"error", err,
		)
		return
	}
	a.logger.InfoContext(ctx, event+".ok",
		"method", r.Method,
		"pages", r.Pages,
		"chars", len(r.Text),
		"confidence", r.Confidence,
		"elapsed_ms", r.Duration.Milliseconds(),
	)
}

func fromOCR(r ocr.ExtractionResult) Output {
	return Output{
		Text:       r.Text,
		Pages:      r.Pages,
		Method:     r.Method,
		Confidence: r.Confidence,
		Warnings:   r.Warnings,
	}
}
