// Package app wires configuration into the pipeline, its collaborators and the store.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	"github.com/joseph-ayodele/recipe-extractor/internal/estimate"
	"github.com/joseph-ayodele/recipe-extractor/internal/export"
	"github.com/joseph-ayodele/recipe-extractor/internal/extract"
	"github.com/joseph-ayodele/recipe-extractor/internal/llm"
	"github.com/joseph-ayodele/recipe-extractor/internal/llm/anthropic"
	"github.com/joseph-ayodele/recipe-extractor/internal/llm/openai"
	"github.com/joseph-ayodele/recipe-extractor/internal/ocr"
	"github.com/joseph-ayodele/recipe-extractor/internal/pipeline"
	"github.com/joseph-ayodele/recipe-extractor/internal/repository"
)

// App holds the wired components of one process.
type App struct {
	Config    *common.Config
	Logger    *slog.Logger
	Completer llm.Completer
	Processor *pipeline.Processor
	Store     repository.Store
	Exporter  *export.Service
}

// Options override parts of the wiring.
type Options struct {
	// Completer replaces the configured provider.
	Completer llm.Completer
	// SkipStore leaves App.Store nil regardless of the store backend.
	SkipStore bool
}

// NewLogger returns a JSON slog logger at the named level (debug, info, warn, error).
func NewLogger(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l}))
}

// NewCompleter builds the configured completion provider.
func NewCompleter(cfg common.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	switch cfg.Provider {
	case "openai", "":
		return openai.NewClient(openai.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Timeout:  cfg.Timeout,
			JSONMode: true,
		}, logger), nil
	case "anthropic":
		return anthropic.NewClient(anthropic.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}, logger), nil
	}
	return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown LLM provider %q", cfg.Provider), common.ErrInvalidInput)
}

// NewDispatcher builds the extraction registry with the command line OCR engine behind
// the image and scanned-PDF capabilities.
func NewDispatcher(cfg *common.Config, logger *slog.Logger) *extract.Dispatcher {
	engine := ocr.NewExtractor(ocr.Config{
		Pdftoppm:            cfg.OCR.Pdftoppm,
		Tesseract:           cfg.OCR.Tesseract,
		TesseractLang:       cfg.OCR.Language,
		TessdataDir:         cfg.OCR.TessdataDir,
		HeicConverter:       cfg.OCR.HeicConverter,
		EnableTSVConfidence: cfg.OCR.TSVConfidence,
		ArtifactCacheDir:    cfg.OCR.ArtifactCacheDir,
	}, logger)
	adapter := extract.NewOCRAdapter(engine, cfg.OCR.Language, cfg.Pipeline.MinTextLength, logger)
	registry := extract.DefaultRegistry(extract.Providers{
		ScannedPDF: adapter,
		Image:      adapter,
	})
	return extract.NewDispatcher(registry, logger)
}

// Build wires every component from cfg. The caller closes the returned App.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	completer := opts.Completer
	if completer == nil {
		c, err := NewCompleter(cfg.LLM, logger)
		if err != nil {
			return nil, err
		}
		completer = c
	}

	engine := llm.NewEngine(completer, logger,
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithTemperature(cfg.LLM.Temperature),
	)

	var estimator *estimate.Estimator
	if cfg.LLM.HeuristicOnly {
		estimator = estimate.NewEstimator(nil, estimate.Config{}, logger)
	} else {
		estimator = estimate.NewEstimator(completer, estimate.Config{
			Timeout:     cfg.LLM.EstimateTimeout,
			MaxTokens:   cfg.LLM.EstimateTokens,
			Temperature: cfg.LLM.Temperature,
		}, logger)
	}

	proc := pipeline.NewProcessor(logger, pipeline.Config{
		MinTextLength:    cfg.Pipeline.MinTextLength,
		MinConfidence:    cfg.Pipeline.MinConfidence,
		MinOCRConfidence: cfg.Pipeline.MinOCRConfidence,
		Language:         cfg.OCR.Language,
		ExtractTimeout:   cfg.Pipeline.ExtractTimeout,
		StructureTimeout: cfg.LLM.Timeout,
	}, NewDispatcher(cfg, logger), engine, estimator)

	a := &App{Config: cfg, Logger: logger, Completer: completer, Processor: proc}
	if !opts.SkipStore {
		store, err := repository.Open(ctx, StoreConfig(cfg.Store), logger)
		if err != nil {
			return nil, err
		}
		a.Store = store
	}
	a.Exporter = export.NewService(a.Store, logger)

	logger.Info("app.ready",
		"llm_provider", cfg.LLM.Provider,
		"store", cfg.Store.Backend,
		"heuristic_only", cfg.LLM.HeuristicOnly,
	)
	return a, nil
}

// StoreConfig maps the configuration section onto repository.Config.
func StoreConfig(c common.StoreConfig) repository.Config {
	return repository.Config{
		Backend:          c.Backend,
		Path:             c.Path,
		DSN:              c.DSN,
		MaxConns:         c.MaxConns,
		MinConns:         c.MinConns,
		MaxConnLifetime:  c.MaxConnLifetime,
		MaxConnIdleTime:  c.MaxConnIdleTime,
		DialTimeout:      c.DialTimeout,
		StatementTimeout: c.StatementTimeout,
	}
}

// Close releases the store.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}
