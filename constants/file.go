package constants

import (
	"mime"
	"strings"
)

// Format names the extraction capability a document is routed to.
type Format string

const (
	PDF       Format = "pdf"
	WORD      Format = "word-document"
	IMAGE     Format = "image"
	PLAINTEXT Format = "plain-text"
)

// Minimum trimmed text length accepted from the extractor.
const (
	MinLengthPipeline    = 50
	MinLengthExtractOnly = 10
)

// OCRConfidenceThreshold is the blended OCR confidence under which a record is flagged for review.
const OCRConfidenceThreshold = 0.6

var (
	PDFExtensions   = []string{"pdf"}
	WordExtensions  = []string{"docx", "doc"}
	ImageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp", "tif", "tiff", "heic", "heif"}
	TextExtensions  = []string{"txt", "text", "md"}
)

var (
	PDFContentTypes  = []string{"application/pdf"}
	WordContentTypes = []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/msword",
	}
	TextContentTypes = []string{"text/plain", "text/markdown"}
)

// AllowedExtensions holds every extension a directory ingest will pick up.
var AllowedExtensions = func() map[string]struct{} {
	m := map[string]struct{}{}
	for _, group := range [][]string{PDFExtensions, WordExtensions, ImageExtensions, TextExtensions} {
		for _, e := range group {
			m[e] = struct{}{}
		}
	}
	return m
}()

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// NormalizeContentType lowercases and drops parameters such as charset.
func NormalizeContentType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// MapExtToFormat returns the format for an extension, or "" if unknown.
func MapExtToFormat(ext string) Format {
	ext = NormalizeExt(ext)
	switch {
	case contains(PDFExtensions, ext):
		return PDF
	case contains(WordExtensions, ext):
		return WORD
	case contains(ImageExtensions, ext):
		return IMAGE
	case contains(TextExtensions, ext):
		return PLAINTEXT
	}
	return ""
}

func IsHEICExt(ext string) bool {
	switch NormalizeExt(ext) {
	case "heic", "heif", "heics", "heifs":
		return true
	}
	return false
}

// ContentTypeForExt guesses a content type for directory ingestion.
func ContentTypeForExt(ext string) string {
	ext = NormalizeExt(ext)
	switch MapExtToFormat(ext) {
	case PDF:
		return "application/pdf"
	case WORD:
		if ext == "doc" {
			return "application/msword"
		}
		return WordContentTypes[0]
	case IMAGE:
		switch ext {
		case "jpg", "jpeg":
			return "image/jpeg"
		case "tif", "tiff":
			return "image/tiff"
		default:
			return "image/" + ext
		}
	case PLAINTEXT:
		if ext == "md" {
			return "text/markdown"
		}
		return "text/plain"
	}
	return "application/octet-stream"
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
