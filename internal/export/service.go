package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
)

// Sheet names of the batch workbook.
const (
	SheetRecipes     = "Recipes"
	SheetLog         = "Processing Log"
	SheetNeedsReview = "Needs Review"
)

// Lister is the storage behavior the recipe export needs.
type Lister interface {
	List(ctx context.Context) ([]entity.StoredRecipe, error)
}

// Service produces XLSX bytes for batch runs and stored recipes.
type Service struct {
	store  Lister
	logger *slog.Logger
}

// NewService builds an export service. store may be nil when only BatchXLSX is used.
func NewService(store Lister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// BatchXLSX returns a workbook with the run's recipes, its processing log and the
// needs-review list.
func (s *Service) BatchXLSX(recipes []entity.CandidateRecipe, entries []entity.ProcessingLogEntry, review []entity.ReviewItem) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := writeRecipes(f, recipes); err != nil {
		return nil, err
	}
	if err := writeLog(f, entries); err != nil {
		return nil, err
	}
	if err := writeReview(f, review); err != nil {
		return nil, err
	}
	// NewFile starts with Sheet1.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("xlsx delete default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(SheetRecipes); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"recipes", len(recipes),
		"log_entries", len(entries),
		"review", len(review),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// StoredXLSX exports every recipe in the store to a single Recipes sheet.
func (s *Service) StoredXLSX(ctx context.Context) ([]byte, error) {
	if s.store == nil {
		return nil, fmt.Errorf("export: no store configured")
	}
	recs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	recipes := make([]entity.CandidateRecipe, 0, len(recs))
	for _, r := range recs {
		recipes = append(recipes, r.CandidateRecipe)
	}
	return s.BatchXLSX(recipes, nil, nil)
}

var recipeHeaders = []string{
	"Title", "Cuisine", "Meal Type", "Difficulty", "Prep (min)", "Cook (min)", "Servings",
	"Calories", "Ingredients", "Instructions", "Tags", "Contributor", "Confidence", "Needs Review",
	"Review Notes",
}

func writeRecipes(f *excelize.File, recipes []entity.CandidateRecipe) error {
	rows := make([][]any, 0, len(recipes))
	for _, r := range recipes {
		rows = append(rows, []any{
			r.Title, r.Cuisine, r.MealType, r.Difficulty, r.PrepTime, r.CookTime, r.Servings,
			r.CaloriesPerServing, strings.Join(r.Ingredients, "\n"), numbered(r.Instructions),
			strings.Join(r.Tags, ", "), r.Contributor, r.ConfidenceScore, yesNo(r.NeedsReview),
			truncate(r.ReviewNotes, 300),
		})
	}
	if err := writeSheet(f, SheetRecipes, recipeHeaders, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetRecipes, "A", "A", 32)
	_ = f.SetColWidth(SheetRecipes, "I", "J", 60)
	_ = f.SetColWidth(SheetRecipes, "O", "O", 48)
	return nil
}

var logHeaders = []string{
	"Filename", "Contributor", "Status", "File Size", "Extracted Length", "Recipe Title",
	"Confidence", "Needs Review", "Stage", "Error", "Timestamp",
}

func writeLog(f *excelize.File, entries []entity.ProcessingLogEntry) error {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		ts := ""
		if !e.Timestamp.IsZero() {
			ts = e.Timestamp.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []any{
			e.Filename, e.Contributor, e.Status, e.FileSize, e.ExtractedLength, e.RecipeTitle,
			e.ConfidenceScore, yesNo(e.NeedsReview), e.Stage, truncate(e.Error, 300), ts,
		})
	}
	if err := writeSheet(f, SheetLog, logHeaders, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetLog, "A", "A", 28)
	_ = f.SetColWidth(SheetLog, "J", "J", 48)
	return nil
}

func writeReview(f *excelize.File, review []entity.ReviewItem) error {
	rows := make([][]any, 0, len(review))
	for _, r := range review {
		rows = append(rows, []any{r.Filename, r.Title, r.Reason})
	}
	if err := writeSheet(f, SheetNeedsReview, []string{"Filename", "Title", "Reason"}, rows); err != nil {
		return err
	}
	_ = f.SetColWidth(SheetNeedsReview, "A", "B", 28)
	_ = f.SetColWidth(SheetNeedsReview, "C", "C", 60)
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("xlsx new sheet %q: %w", sheet, err)
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("xlsx header %s: %w", cell, err)
		}
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", r+2, err)
		}
	}
	return nil
}

func numbered(steps []string) string {
	var b strings.Builder
	for i, s := range steps {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, s)
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
