package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joseph-ayodele/recipe-extractor/constants"
	"github.com/joseph-ayodele/recipe-extractor/internal/app"
	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	"github.com/joseph-ayodele/recipe-extractor/internal/ingest"
)

func main() {
	var (
		minLength  = flag.Int("min-length", constants.MinLengthExtractOnly, "minimum trimmed text length")
		asJSON     = flag.Bool("json", false, "print the result as JSON")
		configPath = flag.String("config", os.Getenv("RECIPES_CONFIG"), "YAML configuration file")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "extract-text [--min-length N] [--json] <file>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	cfg, err := common.LoadConfigFile(*configPath)
	if err != nil {
		logger.Error("extract_text.config.load_failed", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Pipeline.ExtractTimeout+10*time.Second)
	defer cancel()

	doc, err := ingest.ReadFile(path, "")
	if err != nil {
		logger.Error("extract_text.read_failed", "path", path, "error", err)
		os.Exit(1)
	}

	// Extraction needs no completion provider or store.
	a, err := app.Build(ctx, cfg, logger, app.Options{SkipStore: true})
	if err != nil {
		logger.Error("extract_text.setup_failed", "error", err)
		os.Exit(1)
	}

	start := time.Now()
	text, err := a.Processor.ExtractOnly(ctx, doc, *minLength)
	if err != nil {
		logger.Error("extract_text.failed",
			"path", path,
			"code", common.CodeOf(err),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		os.Exit(1)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(text); err != nil {
			logger.Error("extract_text.encode_failed", "error", err)
			os.Exit(1)
		}
		return
	}
	fmt.Printf("file:       %s\n", text.Filename)
	fmt.Printf("format:     %s\n", text.Format)
	fmt.Printf("method:     %s\n", text.Method)
	fmt.Printf("pages:      %d\n", text.Pages)
	fmt.Printf("length:     %d\n", text.Length)
	if text.Confidence > 0 {
		fmt.Printf("confidence: %.0f%%\n", float64(text.Confidence)*100)
	}
	for _, w := range text.Warnings {
		fmt.Printf("warning:    %s\n", w)
	}
	fmt.Printf("\n%s\n", text.Text)
}
