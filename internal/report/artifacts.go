package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
)

// Artifact file names written by WriteArtifacts.
const (
	FileExtractionLog = "extraction_log.json"
	FileNeedsReview   = "recipes_needing_review.json"
	FileRecipes       = "recipes.json"
	FileSummary       = "extraction_summary.md"
)

// Artifacts is what one batch run leaves on disk.
type Artifacts struct {
	Summary entity.BatchSummary
	Log     []entity.ProcessingLogEntry
	Review  []entity.ReviewItem
	Recipes []entity.StoredRecipe
}

// WriteArtifacts writes the JSON and Markdown artifacts into dir and returns their paths.
func WriteArtifacts(dir string, a Artifacts) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	jsonFiles := []struct {
		name string
		v    any
	}{
		{FileExtractionLog, nonNil(a.Log)},
		{FileNeedsReview, nonNil(a.Review)},
		{FileRecipes, nonNil(a.Recipes)},
	}

	paths := make([]string, 0, len(jsonFiles)+1)
	for _, f := range jsonFiles {
		p := filepath.Join(dir, f.name)
		if err := writeJSON(p, f.v); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}

	p := filepath.Join(dir, FileSummary)
	if err := os.WriteFile(p, []byte(Markdown(a.Summary, a.Log, a.Review)), 0o644); err != nil {
		return paths, fmt.Errorf("write %s: %w", FileSummary, err)
	}
	return append(paths, p), nil
}

func writeJSON(path string, v any) error {
	bs, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(bs, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
