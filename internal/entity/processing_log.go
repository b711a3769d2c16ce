package entity

import "time"

// ProcessingLogEntry records the outcome of one document in a run.
type ProcessingLogEntry struct {
	Filename        string    `json:"filename"`
	Contributor     string    `json:"contributor"`
	Status          string    `json:"status"`
	FileSize        int       `json:"file_size"`
	ExtractedLength int       `json:"extracted_length"`
	RecipeTitle     string    `json:"recipe_title,omitempty"`
	ConfidenceScore float64   `json:"confidence_score"`
	NeedsReview     bool      `json:"needs_review"`
	ReviewReason    string    `json:"review_reason,omitempty"`
	Stage           string    `json:"stage,omitempty"`
	Error           string    `json:"error,omitempty"`
	Warnings        []string  `json:"warnings,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// ReviewItem is one entry of the needs-review list.
type ReviewItem struct {
	Filename string `json:"filename"`
	Title    string `json:"title"`
	Reason   string `json:"reason"`
}

// ErrorItem is one failed document in a summary.
type ErrorItem struct {
	Filename string `json:"filename"`
	Stage    string `json:"stage,omitempty"`
	Error    string `json:"error"`
}

// BatchSummary aggregates a run's log.
type BatchSummary struct {
	RunID         string         `json:"run_id"`
	StartedAt     time.Time      `json:"started_at"`
	FinishedAt    time.Time      `json:"finished_at"`
	Total         int            `json:"total"`
	Succeeded     int            `json:"succeeded"`
	Failed        int            `json:"failed"`
	NeedsReview   int            `json:"needs_review"`
	Skipped       int            `json:"skipped"`
	Cancelled     bool           `json:"cancelled"`
	ByContributor map[string]int `json:"by_contributor"`
	FlaggedTitles []string       `json:"flagged_titles"`
	Errors        []ErrorItem    `json:"errors"`
}
