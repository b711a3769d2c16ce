package extract

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/recipe-extractor/constants"
	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
)

// Dispatcher routes a document to one capability and checks the result length.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

func NewDispatcher(registry *Registry, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{registry: registry, logger: logger}
}

// Extract runs exactly one strategy. It never retries.
func (d *Dispatcher) Extract(ctx context.Context, doc entity.RecipeDocument, opts Options) (entity.ExtractedText, error) {
	start := time.Now()
	if opts.Language == "" {
		opts.Language = "eng"
	}

	capability, err := d.registry.Select(doc.ContentType, doc.Filename)
	if err != nil {
		d.logger.Warn("extract.dispatch.unsupported",
			"req_id", common.RequestIDFromContext(ctx),
			"filename", doc.Filename,
			"content_type", doc.ContentType,
		)
		return entity.ExtractedText{}, err
	}
	d.logger.Debug("extract.dispatch.selected",
		"req_id", common.RequestIDFromContext(ctx),
		"filename", doc.Filename,
		"capability", capability.Name,
	)

	out, err := capability.Extract(ctx, doc.Content, opts)
	if err != nil {
		var ee *EmptyExtractionError
		if errors.As(err, &ee) {
			return entity.ExtractedText{}, err
		}
		d.logger.Error("extract.dispatch.failed",
			"req_id", common.RequestIDFromContext(ctx),
			"filename", doc.Filename,
			"capability", capability.Name,
			"error", err,
		)
		return entity.ExtractedText{}, &ExtractionFailedError{
			Capability: string(capability.Name),
			Filename:   doc.Filename,
			Err:        err,
		}
	}

	text := strings.TrimSpace(out.Text)
	length := trimmedLen(text)
	if length < opts.MinLength {
		d.logger.Warn("extract.dispatch.empty",
			"req_id", common.RequestIDFromContext(ctx),
			"filename", doc.Filename,
			"length", length,
			"min", opts.MinLength,
		)
		return entity.ExtractedText{}, &EmptyExtractionError{Filename: doc.Filename, Length: length, Min: opts.MinLength}
	}

	d.logger.Info("extract.dispatch.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"filename", doc.Filename,
		"capability", capability.Name,
		"method", out.Method,
		"length", length,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entity.ExtractedText{
		Text:       text,
		Filename:   doc.Filename,
		Length:     length,
		Format:     string(capability.Name),
		Method:     out.Method,
		Pages:      out.Pages,
		Confidence: out.Confidence,
		Warnings:   out.Warnings,
	}, nil
}

// Formats lists the capability names known to the dispatcher.
func (d *Dispatcher) Formats() []constants.Format {
	return d.registry.Names()
}
