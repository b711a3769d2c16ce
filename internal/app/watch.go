package app

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/recipe-extractor/internal/async"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
	"github.com/joseph-ayodele/recipe-extractor/internal/ingest"
)

// WatchOptions configure a folder watch.
type WatchOptions struct {
	Dir         string
	Contributor string
	Debounce    time.Duration
	Workers     int
	JobTimeout  time.Duration
	InitialScan bool
	// OnResult is called after each document, with the stored record when a store is set.
	OnResult func(path string, stored *entity.StoredRecipe, err error)
}

// Watch processes every recipe file that appears under opts.Dir until ctx ends.
// Successful recipes are saved to the store when one is configured.
func (a *App) Watch(ctx context.Context, opts WatchOptions) error {
	events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
		Roots:       []string{opts.Dir},
		InitialScan: opts.InitialScan,
		Debounce:    opts.Debounce,
	}, a.Logger)
	if err != nil {
		return err
	}

	q := async.NewWorkerQueue(ctx, a.Logger,
		async.WithWorkers(opts.Workers),
		async.WithQueueSize(128),
		async.WithJobTimeout(opts.JobTimeout),
	)
	defer q.Shutdown(context.Background())

	a.Logger.Info("watch.started", "dir", opts.Dir, "workers", q.Workers())
	for {
		select {
		case <-ctx.Done():
			a.Logger.Info("watch.stopped", "dir", opts.Dir)
			return nil
		case err, ok := <-errs:
			if ok {
				a.Logger.Warn("watch.error", "error", err)
			} else {
				errs = nil
			}
		case path, ok := <-events:
			if !ok {
				return nil
			}
			job := async.Job{
				Name: filepath.Base(path),
				Run:  func(jctx context.Context) { a.processPath(jctx, path, opts) },
			}
			if err := q.Enqueue(ctx, job); err != nil {
				if errors.Is(err, async.ErrQueueClosed) || ctx.Err() != nil {
					return nil
				}
				a.Logger.Warn("watch.enqueue_failed", "path", path, "error", err)
			}
		}
	}
}

func (a *App) processPath(ctx context.Context, path string, opts WatchOptions) {
	report := func(stored *entity.StoredRecipe, err error) {
		if opts.OnResult != nil {
			opts.OnResult(path, stored, err)
		}
	}
	log := a.Logger.With("path", path)

	doc, err := ingest.ReadFile(path, opts.Contributor)
	if err != nil {
		log.Warn("watch.read_failed", "error", err)
		report(nil, err)
		return
	}
	res, err := a.Processor.ProcessDocument(ctx, doc)
	if err != nil {
		log.Warn("watch.document.failed", "error", err)
		report(nil, err)
		return
	}
	if a.Store == nil {
		log.Info("watch.document.ok", "title", res.Recipe.Title, "needs_review", res.Recipe.NeedsReview)
		report(nil, nil)
		return
	}
	stored, err := a.Store.Save(ctx, res.Recipe, doc.Contributor)
	if err != nil {
		log.Error("watch.save_failed", "error", err)
		report(nil, err)
		return
	}
	log.Info("watch.document.saved",
		"id", stored.ID,
		"title", stored.Title,
		"needs_review", stored.NeedsReview,
		slog.Int64("elapsed_ms", res.Elapsed.Milliseconds()),
	)
	report(&stored, nil)
}
