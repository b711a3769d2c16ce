package extract

import (
	"context"
)

// ProgressFunc receives OCR progress from 0 to 100.
type ProgressFunc func(percent int)

// Output is what a text-extraction provider hands back to the dispatcher.
type Output struct {
	Text       string
	Pages      int
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr" | "docx" | "plain-text"
	Confidence float32
	Warnings   []string
}

type PDFTextExtractor interface {
	ExtractPDFText(ctx context.Context, data []byte) (Output, error)
}

type DocxTextExtractor interface {
	ExtractDocxText(ctx context.Context, data []byte) (Output, error)
}

type ImageTextExtractor interface {
	ExtractImageText(ctx context.Context, data []byte, lang string, progress ProgressFunc) (Output, error)
}

// Options tune a single Extract call.
type Options struct {
	// MinLength is the minimum trimmed rune count; see constants.MinLengthPipeline
	// and constants.MinLengthExtractOnly.
	MinLength int
	Language  string
	Progress  ProgressFunc
}
