package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joseph-ayodele/recipe-extractor/internal/app"
	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	"github.com/joseph-ayodele/recipe-extractor/internal/ingest"
)

// recipe-llm runs the full pipeline on one file several times to check how stable the
// structured output is across completions.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: recipe-llm <file> [times]")
		os.Exit(2)
	}
	path := os.Args[1]
	times := 5
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}

	cfg, err := common.LoadConfigFile(os.Getenv("RECIPES_CONFIG"))
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(2)
	}
	if cfg.LLM.APIKey == "" {
		logger.Error("an API key for the configured LLM provider is required", "provider", cfg.LLM.Provider)
		os.Exit(2)
	}

	doc, err := ingest.ReadFile(path, os.Getenv("RECIPE_CONTRIBUTOR"))
	if err != nil {
		logger.Error("read file", "path", path, "error", err)
		os.Exit(1)
	}

	a, err := app.Build(context.Background(), cfg, logger, app.Options{SkipStore: true})
	if err != nil {
		logger.Error("setup", "error", err)
		os.Exit(1)
	}

	titles := map[string]int{}
	failures := 0
	for i := 1; i <= times; i++ {
		runCtx, cancelRun := context.WithTimeout(context.Background(), 2*time.Minute)
		start := time.Now()
		logger.Info("pipeline.run.start", "iter", i, "filename", doc.Filename)

		res, err := a.Processor.ProcessDocument(runCtx, doc)
		cancelRun()

		if err != nil {
			failures++
			logger.Error("pipeline.run.error", "iter", i, "code", common.CodeOf(err), "err", err)
		} else {
			titles[res.Recipe.Title]++
			logger.Info("pipeline.run.ok",
				"iter", i,
				"title", res.Recipe.Title,
				"ingredients", len(res.Recipe.Ingredients),
				"instructions", len(res.Recipe.Instructions),
				"confidence", res.Recipe.ConfidenceScore,
				"needs_review", res.Recipe.NeedsReview,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
		}

		time.Sleep(750 * time.Millisecond)
	}

	logger.Info("done", "filename", doc.Filename, "times", times, "failures", failures, "distinct_titles", len(titles))
}
