package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/recipe-extractor/constants"
	"github.com/joseph-ayodele/recipe-extractor/internal/async"
	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
	"github.com/joseph-ayodele/recipe-extractor/internal/report"
)

const (
	DefaultChunkSize     = 10
	DefaultChunkPause    = 2 * time.Second
	DefaultDocumentPause = 500 * time.Millisecond
)

// DocumentProcessor is the single-document entry point the batch drives.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, doc entity.RecipeDocument) (Result, error)
}

// Sink receives each successful recipe as it completes (repository.Store).
type Sink interface {
	Save(ctx context.Context, r entity.CandidateRecipe, contributor string) (entity.StoredRecipe, error)
}

// BatchConfig controls chunking and pacing. Negative pauses disable pausing.
type BatchConfig struct {
	ChunkSize     int
	ChunkPause    time.Duration
	DocumentPause time.Duration
	Workers       int
}

// BatchResult holds everything a run produced, in input order.
type BatchResult struct {
	Recipes []entity.CandidateRecipe
	Stored  []entity.StoredRecipe
	Log     []entity.ProcessingLogEntry
	Review  []entity.ReviewItem
	Summary entity.BatchSummary
}

type Batch struct {
	proc   DocumentProcessor
	cfg    BatchConfig
	logger *slog.Logger
	sink   Sink
	now    func() time.Time
}

type BatchOption func(*Batch)

// WithSink saves every successful recipe while the run progresses.
func WithSink(s Sink) BatchOption {
	return func(b *Batch) { b.sink = s }
}

func WithClock(now func() time.Time) BatchOption {
	return func(b *Batch) {
		if now != nil {
			b.now = now
		}
	}
}

func NewBatch(proc DocumentProcessor, cfg BatchConfig, logger *slog.Logger, opts ...BatchOption) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkPause == 0 {
		cfg.ChunkPause = DefaultChunkPause
	}
	if cfg.DocumentPause == 0 {
		cfg.DocumentPause = DefaultDocumentPause
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	b := &Batch{proc: proc, cfg: cfg, logger: logger, now: time.Now}
	for _, o := range opts {
		o(b)
	}
	return b
}

type slot struct {
	entry  entity.ProcessingLogEntry
	recipe *entity.CandidateRecipe
	stored *entity.StoredRecipe
}

// Run processes docs chunk by chunk. Cancellation stops the run between documents;
// documents not reached are counted as skipped.
func (b *Batch) Run(ctx context.Context, docs []entity.RecipeDocument) BatchResult {
	runID := common.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.New().String()
		ctx = common.WithRunID(ctx, runID)
	}
	started := b.now().UTC()
	log := b.logger.With("run_id", runID)
	log.Info("batch.start",
		"documents", len(docs),
		"chunk_size", b.cfg.ChunkSize,
		"workers", b.cfg.Workers,
	)

	var queue *async.WorkerQueue
	if b.cfg.Workers > 1 {
		queue = async.NewWorkerQueue(ctx, b.logger,
			async.WithWorkers(b.cfg.Workers),
			async.WithQueueSize(b.cfg.ChunkSize),
		)
		defer queue.Shutdown(context.Background())
	}

	slots := make([]*slot, len(docs))
	cancelled := false
	chunks := chunkIndexes(len(docs), b.cfg.ChunkSize)

	for ci, chunk := range chunks {
		if ci > 0 {
			log.Info("batch.chunk.pause", "chunk", ci+1, "of", len(chunks), "pause_ms", b.cfg.ChunkPause.Milliseconds())
			if !pause(ctx, b.cfg.ChunkPause) {
				cancelled = true
				break
			}
		}
		log.Info("batch.chunk.start", "chunk", ci+1, "of", len(chunks), "size", len(chunk))

		if queue != nil {
			cancelled = b.runParallel(ctx, queue, docs, chunk, slots)
		} else {
			cancelled = b.runSequential(ctx, docs, chunk, slots)
		}
		if cancelled {
			break
		}
	}
	if ctx.Err() != nil {
		cancelled = true
	}

	res := b.collect(slots)
	res.Summary = report.Summarize(runID, res.Log, res.Review)
	res.Summary.StartedAt = started
	res.Summary.FinishedAt = b.now().UTC()
	res.Summary.Cancelled = cancelled
	res.Summary.Skipped = len(docs) - len(res.Log)

	log.Info("batch.done",
		"total", res.Summary.Total,
		"succeeded", res.Summary.Succeeded,
		"failed", res.Summary.Failed,
		"needs_review", res.Summary.NeedsReview,
		"skipped", res.Summary.Skipped,
		"cancelled", cancelled,
		"elapsed_ms", res.Summary.FinishedAt.Sub(started).Milliseconds(),
	)
	return res
}

func (b *Batch) runSequential(ctx context.Context, docs []entity.RecipeDocument, chunk []int, slots []*slot) bool {
	for j, idx := range chunk {
		if ctx.Err() != nil {
			return true
		}
		if j > 0 && !pause(ctx, b.cfg.DocumentPause) {
			return true
		}
		slots[idx] = b.processOne(ctx, docs[idx])
	}
	return ctx.Err() != nil
}

func (b *Batch) runParallel(ctx context.Context, q *async.WorkerQueue, docs []entity.RecipeDocument, chunk []int, slots []*slot) bool {
	var wg sync.WaitGroup
	cancelled := false
	for _, idx := range chunk {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		wg.Add(1)
		err := q.Enqueue(ctx, async.Job{
			Index: idx,
			Name:  docs[idx].Filename,
			Run: func(jctx context.Context) {
				defer wg.Done()
				slots[idx] = b.processOne(jctx, docs[idx])
			},
		})
		if err != nil {
			wg.Done()
			cancelled = true
			break
		}
	}
	wg.Wait()
	return cancelled || ctx.Err() != nil
}

// processOne returns nil when the run was cancelled under the document.
func (b *Batch) processOne(ctx context.Context, doc entity.RecipeDocument) *slot {
	res, err := b.proc.ProcessDocument(ctx, doc)
	entry := entity.ProcessingLogEntry{
		Filename:    doc.Filename,
		Contributor: doc.Contributor,
		FileSize:    len(doc.Content),
		Timestamp:   b.now().UTC(),
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		entry.Status = string(constants.LogStatusError)
		entry.Stage = common.StageOf(err)
		entry.Error = err.Error()
		return &slot{entry: entry}
	}

	r := res.Recipe
	entry.Status = string(constants.LogStatusSuccess)
	entry.ExtractedLength = res.Extracted.Length
	entry.RecipeTitle = r.Title
	entry.ConfidenceScore = r.ConfidenceScore
	entry.NeedsReview = r.NeedsReview
	entry.ReviewReason = r.ReviewNotes
	entry.Warnings = append(entry.Warnings, res.Extracted.Warnings...)

	s := &slot{entry: entry, recipe: &r}
	if b.sink != nil {
		stored, err := b.sink.Save(ctx, r, doc.Contributor)
		if err != nil {
			b.logger.Warn("batch.sink.failed",
				"run_id", common.RunIDFromContext(ctx),
				"filename", doc.Filename,
				"error", err,
			)
			s.entry.Warnings = append(s.entry.Warnings, "store: "+err.Error())
		} else {
			s.stored = &stored
		}
	}
	return s
}

func (b *Batch) collect(slots []*slot) BatchResult {
	res := BatchResult{
		Recipes: []entity.CandidateRecipe{},
		Stored:  []entity.StoredRecipe{},
		Log:     []entity.ProcessingLogEntry{},
		Review:  []entity.ReviewItem{},
	}
	for _, s := range slots {
		if s == nil {
			continue
		}
		res.Log = append(res.Log, s.entry)
		if s.recipe == nil {
			continue
		}
		res.Recipes = append(res.Recipes, *s.recipe)
		if s.stored != nil {
			res.Stored = append(res.Stored, *s.stored)
		}
		if s.recipe.NeedsReview {
			reason := s.recipe.ReviewNotes
			if reason == "" {
				reason = "Flagged during extraction"
			}
			res.Review = append(res.Review, entity.ReviewItem{
				Filename: s.entry.Filename,
				Title:    s.recipe.Title,
				Reason:   reason,
			})
		}
	}
	return res
}

func chunkIndexes(n, size int) [][]int {
	var out [][]int
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		idx := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			idx = append(idx, i)
		}
		out = append(out, idx)
	}
	return out
}

// pause waits for d or until ctx is done. It reports whether the run may continue.
func pause(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
