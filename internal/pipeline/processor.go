package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/recipe-extractor/constants"
	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
	"github.com/joseph-ayodele/recipe-extractor/internal/extract"
	"github.com/joseph-ayodele/recipe-extractor/internal/llm"
	"github.com/joseph-ayodele/recipe-extractor/internal/normalize"
	"github.com/joseph-ayodele/recipe-extractor/internal/quantity"
)

// TextExtractor turns a document into raw text (extract.Dispatcher).
type TextExtractor interface {
	Extract(ctx context.Context, doc entity.RecipeDocument, opts extract.Options) (entity.ExtractedText, error)
}

// Structurer turns raw text into a candidate recipe (llm.Engine).
type Structurer interface {
	Structure(ctx context.Context, text string, sc llm.StructureContext) (entity.CandidateRecipe, error)
}

// Filler backfills missing fields and never fails (estimate.Estimator).
type Filler interface {
	Fill(ctx context.Context, r entity.CandidateRecipe) entity.CandidateRecipe
}

// Config holds thresholds and per-stage timeouts. Zero timeouts mean no extra bound.
type Config struct {
	MinTextLength    int
	MinConfidence    float32 // default 0.60
	MinOCRConfidence float32 // default 0.60
	Language         string

	ExtractTimeout   time.Duration
	StructureTimeout time.Duration
	EstimateTimeout  time.Duration
}

// Result of one successful document.
type Result struct {
	Recipe    entity.CandidateRecipe
	Extracted entity.ExtractedText
	Elapsed   time.Duration
}

// Processor runs extract, structure, estimate, validate and normalize for one document.
type Processor struct {
	logger     *slog.Logger
	cfg        Config
	extractor  TextExtractor
	structurer Structurer
	filler     Filler
}

func NewProcessor(logger *slog.Logger, cfg Config, ex TextExtractor, st Structurer, fill Filler) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = constants.MinLengthPipeline
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.60
	}
	if cfg.MinOCRConfidence <= 0 {
		cfg.MinOCRConfidence = constants.OCRConfidenceThreshold
	}
	return &Processor{logger: logger, cfg: cfg, extractor: ex, structurer: st, filler: fill}
}

// ProcessDocument runs the full chain. Failures come back as *common.AppError with the
// failing stage; estimation and validation never fail a document.
func (p *Processor) ProcessDocument(ctx context.Context, doc entity.RecipeDocument) (Result, error) {
	start := time.Now()
	if common.RequestIDFromContext(ctx) == "" {
		ctx = common.WithRequestID(ctx, uuid.New().String())
	}
	rid := common.RequestIDFromContext(ctx)
	log := p.logger.With("req_id", rid, "filename", doc.Filename)
	if runID := common.RunIDFromContext(ctx); runID != "" {
		log = log.With("run_id", runID)
	}

	log.Info("pipeline.document.start", "bytes", len(doc.Content), "content_type", doc.ContentType)

	// 1) extract
	text, err := withTimeout(ctx, p.cfg.ExtractTimeout, func(c context.Context) (entity.ExtractedText, error) {
		return p.extractor.Extract(c, doc, extract.Options{MinLength: p.cfg.MinTextLength, Language: p.cfg.Language})
	})
	if err != nil {
		return Result{}, p.fail(ctx, log, string(constants.StageExtract), err, start)
	}
	log.Info("pipeline.extract.ok",
		"method", text.Method,
		"length", text.Length,
		"confidence", text.Confidence,
	)

	// 2) structure
	sc := llm.StructureContext{
		Contributor:      doc.Contributor,
		OriginalFilename: doc.Filename,
		SourceType:       text.Format,
	}
	recipe, err := withTimeout(ctx, p.cfg.StructureTimeout, func(c context.Context) (entity.CandidateRecipe, error) {
		return p.structurer.Structure(c, text.Text, sc)
	})
	if err != nil {
		return Result{}, p.fail(ctx, log, string(constants.StageStructure), err, start)
	}

	// 3) estimate
	if p.filler != nil {
		recipe, _ = withTimeout(ctx, p.cfg.EstimateTimeout, func(c context.Context) (entity.CandidateRecipe, error) {
			return p.filler.Fill(c, recipe), nil
		})
	}

	// 4) validate, 5) normalize
	recipe = quantity.Apply(recipe)
	recipe = normalize.Normalize(recipe)
	recipe = p.applyReviewRules(recipe, text, doc.Filename)

	log.Info("pipeline.document.ok",
		"title", recipe.Title,
		"confidence", recipe.ConfidenceScore,
		"needs_review", recipe.NeedsReview,
		"issues", len(recipe.ValidationIssues),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Result{Recipe: recipe, Extracted: text, Elapsed: time.Since(start)}, nil
}

// ExtractOnly runs the extract stage alone with its own minimum length.
func (p *Processor) ExtractOnly(ctx context.Context, doc entity.RecipeDocument, minLength int) (entity.ExtractedText, error) {
	if minLength <= 0 {
		minLength = constants.MinLengthExtractOnly
	}
	text, err := withTimeout(ctx, p.cfg.ExtractTimeout, func(c context.Context) (entity.ExtractedText, error) {
		return p.extractor.Extract(c, doc, extract.Options{MinLength: minLength, Language: p.cfg.Language})
	})
	if err != nil {
		return entity.ExtractedText{}, common.NewStageError(string(constants.StageExtract), err)
	}
	return text, nil
}

func (p *Processor) applyReviewRules(r entity.CandidateRecipe, text entity.ExtractedText, filename string) entity.CandidateRecipe {
	if text.Confidence > 0 && text.Confidence < p.cfg.MinOCRConfidence {
		r.AddReviewNote(fmt.Sprintf("Low OCR confidence (%.0f%%)", float64(text.Confidence)*100))
	}
	if r.ConfidenceScore < float64(p.cfg.MinConfidence) {
		r.AddReviewNote(fmt.Sprintf("Low extraction confidence (%.0f%%)", r.ConfidenceScore*100))
	}
	if looksLikeFilename(r.Title, filename) {
		r.AddReviewNote("Title looks like a file name")
	}
	return r
}

var reCameraStem = regexp.MustCompile(`(?i)^(?:img|dsc|dscn|pxl|scan|photo|image)[ _-]?\d+$|^[\d _-]+$`)

// looksLikeFilename reports titles the model copied from an opaque file name:
// the full name with its extension, any title ending in a supported extension,
// or camera and scanner stems. A title that equals a descriptive stem is fine.
func looksLikeFilename(title, filename string) bool {
	title = strings.TrimSpace(title)
	if title == "" {
		return false
	}
	if filename != "" && strings.EqualFold(title, filepath.Base(filename)) {
		return true
	}
	if ext := filepath.Ext(title); ext != "" && constants.MapExtToFormat(ext) != "" {
		return true
	}
	return reCameraStem.MatchString(title)
}

func (p *Processor) fail(ctx context.Context, log *slog.Logger, stage string, err error, start time.Time) error {
	appErr := common.NewStageError(stage, err)
	lvl := slog.LevelError
	if errors.Is(err, common.ErrEmptyExtraction) || errors.Is(err, common.ErrUnsupportedFormat) {
		lvl = slog.LevelWarn
	}
	log.Log(ctx, lvl, "pipeline.document.failed",
		"stage", stage,
		"code", appErr.Code,
		"error", err,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return appErr
}

func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	c, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(c)
}
