package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
)

const (
	DefaultMaxTokens   = 4000
	DefaultTemperature = 0.0
)

// Engine turns raw document text into a CandidateRecipe with one completion call.
type Engine struct {
	completer   Completer
	maxTokens   int
	temperature float32
	logger      *slog.Logger
}

type EngineOption func(*Engine)

func WithMaxTokens(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxTokens = n
		}
	}
}

func WithTemperature(t float32) EngineOption {
	return func(e *Engine) { e.temperature = t }
}

func NewEngine(c Completer, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		completer:   c,
		maxTokens:   DefaultMaxTokens,
		temperature: DefaultTemperature,
		logger:      logger,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Structure builds the prompt, calls the completer once and recovers a CandidateRecipe.
// The contributor always comes from sc.
func (e *Engine) Structure(ctx context.Context, text string, sc StructureContext) (entity.CandidateRecipe, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	prompt := BuildStructuringPrompt(text, sc)
	e.logger.Info("llm.structure.start",
		"req_id", rid,
		"filename", sc.OriginalFilename,
		"text_len", len(text),
		"prompt_len", len(prompt),
		"max_tokens", e.maxTokens,
	)

	raw, err := e.completer.Complete(ctx, prompt, e.maxTokens, e.temperature)
	if err != nil {
		e.logger.Error("llm.structure.completion_failed",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.CandidateRecipe{}, &CompletionError{Err: err}
	}

	res := ParseResponse(raw)
	if !res.OK() {
		e.logger.Error("llm.structure.parse_failed",
			"req_id", rid, "error", res.Err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.CandidateRecipe{}, &StructuringParseError{Raw: raw, Err: res.Err}
	}
	if res.Recovered {
		e.logger.Warn("llm.structure.recovered_object", "req_id", rid)
	}

	recipe, err := e.decode(res.Parsed)
	if err != nil {
		e.logger.Error("llm.structure.invalid_output",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return entity.CandidateRecipe{}, err
	}
	recipe.Contributor = sc.Contributor

	e.logger.Info("llm.structure.ok",
		"req_id", rid,
		"title", recipe.Title,
		"ingredients", len(recipe.Ingredients),
		"instructions", len(recipe.Instructions),
		"confidence", recipe.ConfidenceScore,
		"needs_review", recipe.NeedsReview,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return recipe, nil
}

func (e *Engine) decode(parsed map[string]any) (entity.CandidateRecipe, error) {
	clean, _ := SanitizeRecipeMap(parsed, e.logger)
	if missing := MissingRequired(clean); len(missing) > 0 {
		return entity.CandidateRecipe{}, &InvalidStructuredOutputError{Missing: missing}
	}

	doc, err := json.Marshal(clean)
	if err != nil {
		return entity.CandidateRecipe{}, &InvalidStructuredOutputError{Reason: fmt.Sprintf("encode: %v", err)}
	}
	if err := ValidateRecipeJSON(doc); err != nil {
		return entity.CandidateRecipe{}, &InvalidStructuredOutputError{Reason: err.Error()}
	}

	var recipe entity.CandidateRecipe
	if err := json.Unmarshal(doc, &recipe); err != nil {
		return entity.CandidateRecipe{}, &InvalidStructuredOutputError{Reason: fmt.Sprintf("decode: %v", err)}
	}
	if recipe.Tags == nil {
		recipe.Tags = []string{}
	}
	if notes, _ := clean["extraction_notes"].(string); strings.TrimSpace(notes) != "" {
		if recipe.ReviewNotes == "" {
			recipe.ReviewNotes = notes
		} else {
			recipe.ReviewNotes += "; " + notes
		}
	}
	return recipe, nil
}
