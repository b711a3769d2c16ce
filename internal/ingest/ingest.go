package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/recipe-extractor/constants"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
)

// FileResult is the per-file outcome of a directory load.
type FileResult struct {
	Path         string
	Document     entity.RecipeDocument
	Deduplicated bool
	DuplicateOf  string
	Err          string
}

// DirStats summarizes a directory load.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Options control LoadDirectory. Contributor is stamped on every document.
type Options struct {
	Contributor string
	// Extensions overrides constants.AllowedExtensions (lowercase, no dot).
	Extensions  []string
	MaxFileSize int64
}

// DefaultMaxFileSize caps a single document read.
const DefaultMaxFileSize = 50 << 20

// ReadFile loads one file into a RecipeDocument with a guessed content type and its SHA-256.
func ReadFile(path, contributor string) (entity.RecipeDocument, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return entity.RecipeDocument{}, fmt.Errorf("abs path: %w", err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return entity.RecipeDocument{}, fmt.Errorf("read: %w", err)
	}
	sum := sha256.Sum256(data)
	return entity.RecipeDocument{
		Content:     data,
		ContentType: constants.ContentTypeForExt(filepath.Ext(abs)),
		Filename:    filepath.Base(abs),
		Contributor: contributor,
		SourcePath:  abs,
		SHA256:      hex.EncodeToString(sum[:]),
	}, nil
}

// Documents returns the loaded documents, skipping failures and duplicates.
func Documents(results []FileResult) []entity.RecipeDocument {
	out := make([]entity.RecipeDocument, 0, len(results))
	for _, r := range results {
		if r.Err == "" && !r.Deduplicated {
			out = append(out, r.Document)
		}
	}
	return out
}
