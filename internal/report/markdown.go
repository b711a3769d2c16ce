package report

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/joseph-ayodele/recipe-extractor/constants"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
)

// detailLimit is how many processed documents are listed individually.
const detailLimit = 10

// Markdown renders the human-readable run report.
func Markdown(s entity.BatchSummary, entries []entity.ProcessingLogEntry, review []entity.ReviewItem) string {
	var b strings.Builder

	b.WriteString("# Recipe Extraction Summary\n\n")
	fmt.Fprintf(&b, "**Run:** %s\n", s.RunID)
	if !s.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "**Generated:** %s\n", s.FinishedAt.UTC().Format(time.RFC3339))
	}
	if s.Cancelled {
		b.WriteString("\n> Run was cancelled before every document was processed.\n")
	}

	b.WriteString("\n## Statistics\n\n")
	fmt.Fprintf(&b, "- **Total Recipes Processed:** %d\n", s.Total)
	fmt.Fprintf(&b, "- **Successful:** %d\n", s.Succeeded)
	fmt.Fprintf(&b, "- **Errors:** %d\n", s.Failed)
	fmt.Fprintf(&b, "- **Needs Review:** %d\n", s.NeedsReview)
	if s.Skipped > 0 {
		fmt.Fprintf(&b, "- **Skipped:** %d\n", s.Skipped)
	}

	b.WriteString("\n## Breakdown by Contributor\n\n")
	if len(s.ByContributor) == 0 {
		b.WriteString("None\n")
	}
	names := make([]string, 0, len(s.ByContributor))
	for name := range s.ByContributor {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&b, "- **%s Recipes:** %d\n", name, s.ByContributor[name])
	}

	fmt.Fprintf(&b, "\n## Recipes Needing Review (%d)\n\n", len(review))
	if len(review) == 0 {
		b.WriteString("None\n")
	}
	for _, r := range review {
		fmt.Fprintf(&b, "- **%s** (%s): %s\n", r.Title, r.Filename, r.Reason)
	}

	fmt.Fprintf(&b, "\n## Errors (%d)\n\n", len(s.Errors))
	if len(s.Errors) == 0 {
		b.WriteString("None\n")
	}
	for _, e := range s.Errors {
		if e.Stage != "" {
			fmt.Fprintf(&b, "- **%s** [%s]: %s\n", e.Filename, e.Stage, e.Error)
			continue
		}
		fmt.Fprintf(&b, "- **%s**: %s\n", e.Filename, e.Error)
	}

	b.WriteString("\n## Processing Details\n\n")
	var processed []entity.ProcessingLogEntry
	for _, e := range entries {
		if e.Status == string(constants.LogStatusSuccess) {
			processed = append(processed, e)
		}
	}
	if len(processed) == 0 {
		b.WriteString("None\n")
	}
	for _, e := range processed[:min(len(processed), detailLimit)] {
		fmt.Fprintf(&b, "- **%s** (%s): %d chars, confidence: %d%%\n",
			e.RecipeTitle, e.Filename, e.ExtractedLength, int(math.Round(e.ConfidenceScore*100)))
	}
	if len(processed) > detailLimit {
		fmt.Fprintf(&b, "\n... and %d more\n", len(processed)-detailLimit)
	}
	return b.String()
}
