package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
	"github.com/joseph-ayodele/recipe-extractor/internal/pipeline"
)

type fakeProcessor struct {
	mu        sync.Mutex
	lastDoc   entity.RecipeDocument
	lastReqID string
	lastMin   int
	err       error
}

func (f *fakeProcessor) ProcessDocument(ctx context.Context, doc entity.RecipeDocument) (pipeline.Result, error) {
	f.mu.Lock()
	f.lastDoc, f.lastReqID = doc, common.RequestIDFromContext(ctx)
	f.mu.Unlock()
	if f.err != nil {
		return pipeline.Result{}, f.err
	}
	return pipeline.Result{
		Recipe: entity.CandidateRecipe{
			Title:        "Beef Stew",
			Ingredients:  []string{"2 lbs beef"},
			Instructions: []string{"Brown 2 lbs beef."},
			Contributor:  doc.Contributor,
		},
		Extracted: entity.ExtractedText{Length: 420, Method: "plain-text"},
		Elapsed:   12 * time.Millisecond,
	}, nil
}

func (f *fakeProcessor) ExtractOnly(_ context.Context, doc entity.RecipeDocument, minLength int) (entity.ExtractedText, error) {
	f.mu.Lock()
	f.lastDoc, f.lastMin = doc, minLength
	f.mu.Unlock()
	if f.err != nil {
		return entity.ExtractedText{}, f.err
	}
	return entity.ExtractedText{Text: string(doc.Content), Length: len(doc.Content), Format: "plain-text", Method: "plain-text"}, nil
}

type fakeStore struct {
	saved []entity.StoredRecipe
}

func (s *fakeStore) Save(_ context.Context, r entity.CandidateRecipe, contributor string) (entity.StoredRecipe, error) {
	rec := entity.StoredRecipe{ID: int64(len(s.saved) + 1), DateAdded: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), CandidateRecipe: r}
	rec.Contributor = contributor
	s.saved = append(s.saved, rec)
	return rec, nil
}

func (s *fakeStore) Get(_ context.Context, id int64) (entity.StoredRecipe, error) {
	for _, r := range s.saved {
		if r.ID == id {
			return r, nil
		}
	}
	return entity.StoredRecipe{}, fmt.Errorf("recipe %d: %w", id, common.ErrNotFound)
}

type fakeExporter struct{}

func (fakeExporter) StoredXLSX(context.Context) ([]byte, error) { return []byte("PK-xlsx"), nil }

func startServer(t *testing.T, svc ExtractorServer) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s, _ := NewGRPCServer(svc, nil)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func request(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	st, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return st
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func TestExtract(t *testing.T) {
	proc := &fakeProcessor{}
	store := &fakeStore{}
	client := NewExtractorClient(startServer(t, NewExtractorService(proc, store, nil, nil)))

	ctx := metadata.AppendToOutgoingContext(context.Background(), RequestIDHeader, "req-42")
	out, err := client.Extract(ctx, request(t, map[string]any{
		"filename":    "stew.txt",
		"content":     b64("Beef stew text"),
		"contributor": "Janet",
		"save":        true,
	}))
	require.NoError(t, err)

	recipe := out.GetFields()["recipe"].GetStructValue()
	require.NotNil(t, recipe)
	assert.Equal(t, "Beef Stew", recipe.GetFields()["title"].GetStringValue())
	assert.Equal(t, float64(420), out.GetFields()["extracted_length"].GetNumberValue())
	assert.Equal(t, float64(1), out.GetFields()["stored_id"].GetNumberValue())

	assert.Equal(t, "text/plain", proc.lastDoc.ContentType)
	assert.Equal(t, "Beef stew text", string(proc.lastDoc.Content))
	assert.Equal(t, "req-42", proc.lastReqID)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "Janet", store.saved[0].Contributor)

	got, err := client.GetRecipe(context.Background(), request(t, map[string]any{"id": 1}))
	require.NoError(t, err)
	assert.Equal(t, "Janet", got.GetFields()["recipe"].GetStructValue().GetFields()["contributor"].GetStringValue())

	_, err = client.GetRecipe(context.Background(), request(t, map[string]any{"id": 7}))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestExtract_Errors(t *testing.T) {
	proc := &fakeProcessor{}
	client := NewExtractorClient(startServer(t, NewExtractorService(proc, nil, nil, nil)))
	ctx := context.Background()

	_, err := client.Extract(ctx, request(t, map[string]any{"content": b64("x")}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Extract(ctx, request(t, map[string]any{"filename": "a.txt", "content": "%%%"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Extract(ctx, request(t, map[string]any{"filename": "a.txt", "content": b64("x"), "save": true}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	proc.err = common.NewStageError("extract", fmt.Errorf("only 8 chars: %w", common.ErrEmptyExtraction))
	_, err = client.Extract(ctx, request(t, map[string]any{"filename": "a.jpg", "content": b64("x")}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	proc.err = common.NewStageError("structure", common.ErrStructuringParse)
	_, err = client.Extract(ctx, request(t, map[string]any{"filename": "a.jpg", "content": b64("x")}))
	assert.Equal(t, codes.DataLoss, status.Code(err))

	_, err = client.ExportRecipes(ctx, request(t, map[string]any{}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestExtractText(t *testing.T) {
	proc := &fakeProcessor{}
	client := NewExtractorClient(startServer(t, NewExtractorService(proc, nil, nil, nil)))

	out, err := client.ExtractText(context.Background(), request(t, map[string]any{
		"filename": "notes.md",
		"content":  b64("short text"),
	}))
	require.NoError(t, err)
	assert.Equal(t, "short text", out.GetFields()["text"].GetStringValue())
	assert.Equal(t, 10, proc.lastMin)
	assert.Equal(t, "text/markdown", proc.lastDoc.ContentType)

	_, err = client.ExtractText(context.Background(), request(t, map[string]any{
		"filename":   "notes.md",
		"content":    b64("short text"),
		"min_length": 3,
	}))
	require.NoError(t, err)
	assert.Equal(t, 3, proc.lastMin)
}

func TestExportRecipes(t *testing.T) {
	client := NewExtractorClient(startServer(t, NewExtractorService(&fakeProcessor{}, &fakeStore{}, fakeExporter{}, nil)))
	out, err := client.ExportRecipes(context.Background(), request(t, map[string]any{}))
	require.NoError(t, err)
	bs, err := base64.StdEncoding.DecodeString(out.GetFields()["xlsx"].GetStringValue())
	require.NoError(t, err)
	assert.Equal(t, "PK-xlsx", string(bs))
}

func TestHealth(t *testing.T) {
	conn := startServer(t, NewExtractorService(&fakeProcessor{}, nil, nil, nil))
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
