package report

import (
	"github.com/joseph-ayodele/recipe-extractor/constants"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
)

// Summarize aggregates log entries and the review list. Timestamps and the cancelled
// flag are left to the caller.
func Summarize(runID string, entries []entity.ProcessingLogEntry, review []entity.ReviewItem) entity.BatchSummary {
	s := entity.BatchSummary{
		RunID:         runID,
		Total:         len(entries),
		NeedsReview:   len(review),
		ByContributor: map[string]int{},
		FlaggedTitles: make([]string, 0, len(review)),
		Errors:        []entity.ErrorItem{},
	}
	for _, e := range entries {
		if e.Status == string(constants.LogStatusSuccess) {
			s.Succeeded++
			s.ByContributor[contributorLabel(e.Contributor)]++
			continue
		}
		s.Failed++
		s.Errors = append(s.Errors, entity.ErrorItem{Filename: e.Filename, Stage: e.Stage, Error: e.Error})
	}
	for _, r := range review {
		s.FlaggedTitles = append(s.FlaggedTitles, r.Title)
	}
	return s
}

func contributorLabel(c string) string {
	if c == "" {
		return "Unknown"
	}
	return c
}
