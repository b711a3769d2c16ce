package entity

import (
	"slices"
	"time"
)

// ValidationIssue is a single embedded-quantity finding. Step is 1-based.
type ValidationIssue struct {
	Step  int    `json:"step"`
	Text  string `json:"text"`
	Issue string `json:"issue"`
}

// CandidateRecipe is the structured record produced by the pipeline.
type CandidateRecipe struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Cuisine            string   `json:"cuisine"`
	MealType           string   `json:"meal_type"`
	Difficulty         string   `json:"difficulty"`
	PrepTime           int      `json:"prep_time"`
	CookTime           int      `json:"cook_time"`
	Servings           string   `json:"servings"`
	CaloriesPerServing int      `json:"calories_per_serving"`
	Ingredients        []string `json:"ingredients"`
	Instructions       []string `json:"instructions"`
	Tags               []string `json:"tags"`
	SourceAttribution  string   `json:"source_attribution"`
	Contributor        string   `json:"contributor"`

	ConfidenceScore  float64           `json:"confidence_score"`
	NeedsReview      bool              `json:"needs_review"`
	ReviewNotes      string            `json:"review_notes"`
	ValidationIssues []ValidationIssue `json:"validation_issues"`
}

// Clone returns a deep copy so stages can work copy-on-write.
func (r CandidateRecipe) Clone() CandidateRecipe {
	out := r
	out.Ingredients = slices.Clone(r.Ingredients)
	out.Instructions = slices.Clone(r.Instructions)
	out.Tags = slices.Clone(r.Tags)
	out.ValidationIssues = slices.Clone(r.ValidationIssues)
	return out
}

// AddReviewNote flags the record and appends a note, separated by "; ".
func (r *CandidateRecipe) AddReviewNote(note string) {
	r.NeedsReview = true
	if note == "" {
		return
	}
	if r.ReviewNotes == "" {
		r.ReviewNotes = note
		return
	}
	r.ReviewNotes += "; " + note
}

// StoredRecipe is a CandidateRecipe plus the fields assigned by storage.
type StoredRecipe struct {
	ID            int64     `json:"id"`
	DateAdded     time.Time `json:"date_added"`
	ContributorID int64     `json:"contributor_id"`
	CandidateRecipe
}
