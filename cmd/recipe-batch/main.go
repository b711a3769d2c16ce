package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joseph-ayodele/recipe-extractor/internal/app"
	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
	"github.com/joseph-ayodele/recipe-extractor/internal/ingest"
	"github.com/joseph-ayodele/recipe-extractor/internal/pipeline"
	"github.com/joseph-ayodele/recipe-extractor/internal/report"
)

const fileWorkbook = "recipes.xlsx"

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir           = flag.String("dir", "", "directory of recipe documents (required)")
		contributor   = flag.String("contributor", "", "contributor name stamped on every document")
		out           = flag.String("out", "extraction_output", "artifact directory")
		store         = flag.String("store", "", "store backend: json | sqlite | postgres | none")
		chunkSize     = flag.Int("chunk-size", 0, "documents per chunk")
		chunkPause    = flag.Duration("chunk-pause", 0, "pause between chunks")
		docPause      = flag.Duration("doc-pause", 0, "pause between documents")
		workers       = flag.Int("workers", 0, "documents processed concurrently within a chunk")
		heuristicOnly = flag.Bool("heuristic-only", false, "fill missing fields without the completion provider")
		configPath    = flag.String("config", os.Getenv("RECIPES_CONFIG"), "YAML configuration file")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(2)
	}

	cfg, err := common.LoadConfigFile(*configPath)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(2)
	}
	// Explicit flags win over file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "store":
			cfg.Store.Backend = *store
		case "chunk-size":
			cfg.Batch.ChunkSize = *chunkSize
		case "chunk-pause":
			cfg.Batch.ChunkPause = *chunkPause
		case "doc-pause":
			cfg.Batch.DocumentPause = *docPause
		case "workers":
			cfg.Batch.Workers = *workers
		case "heuristic-only":
			cfg.LLM.HeuristicOnly = *heuristicOnly
		}
	})

	logger := app.NewLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("batch.config.invalid", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, logger, *dir, *contributor, *out))
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger, dir, contributor, out string) int {
	a, err := app.Build(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Error("batch.setup.failed", "error", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("batch.store.close_failed", "error", err)
		}
	}()

	files, stats, err := ingest.LoadDirectory(ctx, dir, ingest.Options{Contributor: contributor}, logger)
	if err != nil {
		logger.Error("batch.ingest.failed", "dir", dir, "error", err)
		return 1
	}
	for _, f := range files {
		if f.Err != "" {
			logger.Warn("batch.ingest.skipped", "path", f.Path, "error", f.Err)
		} else if f.Deduplicated {
			logger.Info("batch.ingest.duplicate", "path", f.Path, "duplicate_of", f.DuplicateOf)
		}
	}
	docs := ingest.Documents(files)
	logger.Info("batch.ingest.ok", "dir", dir, "documents", len(docs), "matched", stats.Matched)

	var opts []pipeline.BatchOption
	if a.Store != nil {
		opts = append(opts, pipeline.WithSink(a.Store))
	}
	batch := pipeline.NewBatch(a.Processor, pipeline.BatchConfig{
		ChunkSize:     cfg.Batch.ChunkSize,
		ChunkPause:    cfg.Batch.ChunkPause,
		DocumentPause: cfg.Batch.DocumentPause,
		Workers:       cfg.Batch.Workers,
	}, logger, opts...)
	res := batch.Run(ctx, docs)

	// Artifacts are written even after an interrupt, so use a fresh context.
	wctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	recipes, err := storedRecipes(wctx, a, res)
	if err != nil {
		logger.Error("batch.store.list_failed", "error", err)
		recipes = res.Stored
	}

	paths, err := report.WriteArtifacts(out, report.Artifacts{
		Summary: res.Summary,
		Log:     res.Log,
		Review:  res.Review,
		Recipes: recipes,
	})
	if err != nil {
		logger.Error("batch.artifacts.failed", "dir", out, "error", err)
		return 1
	}
	xlsx, err := a.Exporter.BatchXLSX(res.Recipes, res.Log, res.Review)
	if err == nil {
		p := filepath.Join(out, fileWorkbook)
		if err = os.WriteFile(p, xlsx, 0o644); err == nil {
			paths = append(paths, p)
		}
	}
	if err != nil {
		logger.Error("batch.xlsx.failed", "error", err)
	}

	printSummary(res.Summary, paths)
	if res.Summary.Cancelled || errors.Is(ctx.Err(), context.Canceled) {
		return 130
	}
	return 0
}

// storedRecipes returns the store content, or this run's recipes numbered from 1 when
// there is no store.
func storedRecipes(ctx context.Context, a *app.App, res pipeline.BatchResult) ([]entity.StoredRecipe, error) {
	if a.Store != nil {
		return a.Store.List(ctx)
	}
	now := time.Now().UTC()
	out := make([]entity.StoredRecipe, 0, len(res.Recipes))
	for i, r := range res.Recipes {
		out = append(out, entity.StoredRecipe{ID: int64(i + 1), DateAdded: now, CandidateRecipe: r})
	}
	return out, nil
}

func printSummary(s entity.BatchSummary, paths []string) {
	fmt.Printf("\nRun %s\n", s.RunID)
	fmt.Printf("  processed:    %d\n", s.Total)
	fmt.Printf("  succeeded:    %d\n", s.Succeeded)
	fmt.Printf("  failed:       %d\n", s.Failed)
	fmt.Printf("  needs review: %d\n", s.NeedsReview)
	if s.Cancelled {
		fmt.Printf("  cancelled, %d document(s) skipped\n", s.Skipped)
	}
	for _, p := range paths {
		fmt.Printf("  wrote %s\n", p)
	}
}
