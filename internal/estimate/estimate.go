package estimate

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
	"github.com/joseph-ayodele/recipe-extractor/internal/llm"
)

const (
	DefaultMaxTokens = 1000
	DefaultTimeout   = 30 * time.Second

	DefaultServings = "4-6"
	DefaultCalories = 450
)

// Field names in the order they are requested.
const (
	FieldPrepTime    = "prep_time"
	FieldCookTime    = "cook_time"
	FieldServings    = "servings"
	FieldCalories    = "calories_per_serving"
	FieldDescription = "description"
)

// Config for the collaborator-backed estimate.
type Config struct {
	Timeout     time.Duration
	MaxTokens   int
	Temperature float32
}

// Estimator backfills missing timing, servings, calories and description.
// A nil completer means heuristic only.
type Estimator struct {
	completer llm.Completer
	cfg       Config
	logger    *slog.Logger
}

func NewEstimator(c llm.Completer, cfg Config, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	return &Estimator{completer: c, cfg: cfg, logger: logger}
}

// MissingFields lists the estimable fields that are zero or empty.
func MissingFields(r entity.CandidateRecipe) []string {
	var out []string
	if r.PrepTime <= 0 {
		out = append(out, FieldPrepTime)
	}
	if r.CookTime <= 0 {
		out = append(out, FieldCookTime)
	}
	if strings.TrimSpace(r.Servings) == "" {
		out = append(out, FieldServings)
	}
	if r.CaloriesPerServing <= 0 {
		out = append(out, FieldCalories)
	}
	if strings.TrimSpace(r.Description) == "" {
		out = append(out, FieldDescription)
	}
	return out
}

// Fill runs the collaborator (when configured) and then the heuristic for whatever is
// still missing. Failures are logged and never returned.
func (e *Estimator) Fill(ctx context.Context, r entity.CandidateRecipe) entity.CandidateRecipe {
	out := r.Clone()
	missing := MissingFields(out)
	if len(missing) == 0 {
		return out
	}
	if e.completer != nil {
		out = e.collaborate(ctx, out, missing)
	}
	return Heuristic(out)
}

func (e *Estimator) collaborate(ctx context.Context, r entity.CandidateRecipe, missing []string) entity.CandidateRecipe {
	start := time.Now()
	rid := common.RequestIDFromContext(ctx)

	cctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	raw, err := e.completer.Complete(cctx, BuildPrompt(r, missing), e.cfg.MaxTokens, e.cfg.Temperature)
	if err != nil {
		e.logger.Warn("estimate.collaborator.failed",
			"req_id", rid, "title", r.Title, "missing", missing, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return r
	}
	res := llm.ParseResponse(raw)
	if !res.OK() {
		e.logger.Warn("estimate.collaborator.parse_failed",
			"req_id", rid, "title", r.Title, "error", res.Err, "raw_bytes", len(raw),
		)
		return r
	}

	merged, filled := merge(r, res.Parsed, missing)
	e.logger.Info("estimate.collaborator.ok",
		"req_id", rid,
		"title", r.Title,
		"requested", missing,
		"filled", filled,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return merged
}

// merge copies only requested fields, coercing numbers and dropping anything unusable.
func merge(r entity.CandidateRecipe, est map[string]any, requested []string) (entity.CandidateRecipe, []string) {
	filled := make([]string, 0, len(requested))
	for _, f := range requested {
		v, ok := est[f]
		if !ok || v == nil {
			continue
		}
		switch f {
		case FieldPrepTime:
			if n, ok := llm.CoerceMinutes(v); ok && n > 0 {
				r.PrepTime = n
				filled = append(filled, f)
			}
		case FieldCookTime:
			if n, ok := llm.CoerceMinutes(v); ok && n > 0 {
				r.CookTime = n
				filled = append(filled, f)
			}
		case FieldCalories:
			if n, ok := llm.CoerceInt(v); ok && n > 0 {
				r.CaloriesPerServing = n
				filled = append(filled, f)
			}
		case FieldServings:
			if s := servingsString(v); s != "" {
				r.Servings = s
				filled = append(filled, f)
			}
		case FieldDescription:
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				r.Description = strings.TrimSpace(s)
				filled = append(filled, f)
			}
		}
	}
	return r, filled
}

func servingsString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t <= 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}
