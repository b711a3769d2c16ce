package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
	"github.com/joseph-ayodele/recipe-extractor/internal/extract"
)

type fakeProcessor struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, doc entity.RecipeDocument) (Result, error)
}

func (f *fakeProcessor) ProcessDocument(ctx context.Context, doc entity.RecipeDocument) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, doc.Filename)
	f.mu.Unlock()
	return f.fn(ctx, doc)
}

func okResult(doc entity.RecipeDocument) Result {
	return Result{
		Recipe: entity.CandidateRecipe{
			Title:           strings.TrimSuffix(doc.Filename, ".txt") + " pie",
			Contributor:     doc.Contributor,
			ConfidenceScore: 0.9,
			Ingredients:     []string{"1 cup flour"},
			Instructions:    []string{"Mix 1 cup flour."},
		},
		Extracted: entity.ExtractedText{Length: 120},
	}
}

func docs(n int) []entity.RecipeDocument {
	out := make([]entity.RecipeDocument, n)
	for i := range out {
		out[i] = entity.RecipeDocument{Filename: fmt.Sprintf("doc%02d.txt", i), Contributor: "Fergi", Content: []byte("x")}
	}
	return out
}

var noPause = BatchConfig{ChunkPause: -1, DocumentPause: -1}

func TestBatchRunContinuesAfterFailure(t *testing.T) {
	var calls atomic.Int32
	p := newTestProcessor(t, responder(&calls, map[string]string{"PASTA": pastaComplete, "STEW": stewNoQuantity}), nil, fakeImage{text: "8 chars!"})
	in := []entity.RecipeDocument{
		textDoc("pasta.txt", "PASTA"),
		{Filename: "IMG_0002.jpg", ContentType: "image/jpeg", Contributor: "Janet", Content: []byte{0xff}},
		textDoc("stew.txt", "STEW"),
	}

	res := NewBatch(p, noPause, nil).Run(context.Background(), in)

	assert.EqualValues(t, 2, calls.Load())
	require.Len(t, res.Log, 3)
	assert.Equal(t, "success", res.Log[0].Status)
	assert.Equal(t, "error", res.Log[1].Status)
	assert.Equal(t, "extract", res.Log[1].Stage)
	assert.Contains(t, res.Log[1].Error, common.CodeEmptyExtraction)
	assert.Equal(t, "success", res.Log[2].Status)
	assert.True(t, res.Log[2].NeedsReview)

	require.Len(t, res.Recipes, 2)
	assert.Equal(t, "Pasta Pomodoro", res.Recipes[0].Title)
	assert.Equal(t, "Beef Stew", res.Recipes[1].Title)
	require.Len(t, res.Review, 1)
	assert.Equal(t, entity.ReviewItem{Filename: "stew.txt", Title: "Beef Stew", Reason: "Instructions missing embedded quantities in 1 step(s)"}, res.Review[0])

	s := res.Summary
	assert.NotEmpty(t, s.RunID)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Succeeded)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.NeedsReview)
	assert.False(t, s.Cancelled)
	assert.Zero(t, s.Skipped)
	assert.Equal(t, map[string]int{"Janet": 2}, s.ByContributor)
	assert.Equal(t, []string{"Beef Stew"}, s.FlaggedTitles)
}

func TestBatchRunChunksAndPauses(t *testing.T) {
	fp := &fakeProcessor{fn: func(_ context.Context, doc entity.RecipeDocument) (Result, error) { return okResult(doc), nil }}
	cfg := BatchConfig{ChunkSize: 2, ChunkPause: 30 * time.Millisecond, DocumentPause: 5 * time.Millisecond}

	start := time.Now()
	res := NewBatch(fp, cfg, nil).Run(context.Background(), docs(5))
	elapsed := time.Since(start)

	// chunks {0,1} {2,3} {4}: two chunk pauses and two document pauses
	assert.GreaterOrEqual(t, elapsed, 2*30*time.Millisecond+2*5*time.Millisecond)
	assert.Equal(t, []string{"doc00.txt", "doc01.txt", "doc02.txt", "doc03.txt", "doc04.txt"}, fp.calls)
	assert.Len(t, res.Recipes, 5)
	assert.Equal(t, 5, res.Summary.Succeeded)
}

func TestBatchRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fp := &fakeProcessor{fn: func(_ context.Context, doc entity.RecipeDocument) (Result, error) {
		if doc.Filename == "doc01.txt" {
			cancel()
		}
		return okResult(doc), nil
	}}
	res := NewBatch(fp, noPause, nil).Run(ctx, docs(5))

	assert.Equal(t, []string{"doc00.txt", "doc01.txt"}, fp.calls)
	assert.True(t, res.Summary.Cancelled)
	assert.Equal(t, 2, res.Summary.Total)
	assert.Equal(t, 3, res.Summary.Skipped)
	assert.Len(t, res.Recipes, 2)
}

func TestBatchRunCancelledDuringDocumentIsSkipped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fp := &fakeProcessor{fn: func(ctx context.Context, doc entity.RecipeDocument) (Result, error) {
		if doc.Filename == "doc01.txt" {
			cancel()
			return Result{}, common.NewStageError("structure", ctx.Err())
		}
		return okResult(doc), nil
	}}
	res := NewBatch(fp, noPause, nil).Run(ctx, docs(3))

	require.Len(t, res.Log, 1)
	assert.Equal(t, "doc00.txt", res.Log[0].Filename)
	assert.True(t, res.Summary.Cancelled)
	assert.Equal(t, 2, res.Summary.Skipped)
}

func TestBatchRunWorkersKeepInputOrder(t *testing.T) {
	fp := &fakeProcessor{fn: func(_ context.Context, doc entity.RecipeDocument) (Result, error) {
		// later documents finish first
		var n int
		_, _ = fmt.Sscanf(doc.Filename, "doc%02d.txt", &n)
		time.Sleep(time.Duration(10-n) * time.Millisecond)
		if n == 3 {
			return Result{}, common.NewStageError("extract", extract.ErrNoOCREngine)
		}
		return okResult(doc), nil
	}}
	cfg := noPause
	cfg.Workers = 4
	cfg.ChunkSize = 4
	res := NewBatch(fp, cfg, nil).Run(context.Background(), docs(10))

	require.Len(t, res.Log, 10)
	for i, e := range res.Log {
		assert.Equal(t, fmt.Sprintf("doc%02d.txt", i), e.Filename)
	}
	assert.Equal(t, "error", res.Log[3].Status)
	assert.Len(t, res.Recipes, 9)
	assert.Equal(t, "doc04 pie", res.Recipes[3].Title)
}

type fakeSink struct {
	mu    sync.Mutex
	saved []string
	fail  map[string]bool
}

func (s *fakeSink) Save(_ context.Context, r entity.CandidateRecipe, contributor string) (entity.StoredRecipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[r.Title] {
		return entity.StoredRecipe{}, errors.New("disk full")
	}
	s.saved = append(s.saved, r.Title)
	return entity.StoredRecipe{ID: int64(len(s.saved)), CandidateRecipe: r}, nil
}

func TestBatchRunWithSink(t *testing.T) {
	fp := &fakeProcessor{fn: func(_ context.Context, doc entity.RecipeDocument) (Result, error) { return okResult(doc), nil }}
	sink := &fakeSink{fail: map[string]bool{"doc01 pie": true}}

	res := NewBatch(fp, noPause, nil, WithSink(sink)).Run(context.Background(), docs(3))

	assert.Equal(t, []string{"doc00 pie", "doc02 pie"}, sink.saved)
	require.Len(t, res.Stored, 2)
	assert.Equal(t, int64(2), res.Stored[1].ID)
	assert.Equal(t, "success", res.Log[1].Status)
	assert.Equal(t, []string{"store: disk full"}, res.Log[1].Warnings)
	assert.Equal(t, 3, res.Summary.Succeeded)
}

func TestChunkIndexes(t *testing.T) {
	assert.Equal(t, [][]int{{0, 1, 2}, {3, 4}}, chunkIndexes(5, 3))
	assert.Nil(t, chunkIndexes(0, 10))
}
