package extract

import (
	"fmt"

	"github.com/joseph-ayodele/recipe-extractor/internal/common"
)

// UnsupportedFormatError means no capability matched the document.
type UnsupportedFormatError struct {
	ContentType string
	Filename    string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: content-type %q, filename %q", e.ContentType, e.Filename)
}

func (e *UnsupportedFormatError) Unwrap() error { return common.ErrUnsupportedFormat }

// ExtractionFailedError wraps a provider failure.
type ExtractionFailedError struct {
	Capability string
	Filename   string
	Err        error
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("%s extraction failed for %q: %v", e.Capability, e.Filename, e.Err)
}

func (e *ExtractionFailedError) Unwrap() []error {
	return []error{common.ErrExtractionFailed, e.Err}
}

// EmptyExtractionError means the trimmed text was shorter than the minimum.
type EmptyExtractionError struct {
	Filename string
	Length   int
	Min      int
}

func (e *EmptyExtractionError) Error() string {
	return fmt.Sprintf("extracted text too short for %q: %d < %d characters", e.Filename, e.Length, e.Min)
}

func (e *EmptyExtractionError) Unwrap() error { return common.ErrEmptyExtraction }
