package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/recipe-extractor/constants"
	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
	"github.com/joseph-ayodele/recipe-extractor/internal/pipeline"
)

// Processor is the pipeline behavior the service depends on (pipeline.Processor).
type Processor interface {
	ProcessDocument(ctx context.Context, doc entity.RecipeDocument) (pipeline.Result, error)
	ExtractOnly(ctx context.Context, doc entity.RecipeDocument, minLength int) (entity.ExtractedText, error)
}

// Store is the subset of repository.Store the service uses.
type Store interface {
	Save(ctx context.Context, r entity.CandidateRecipe, contributor string) (entity.StoredRecipe, error)
	Get(ctx context.Context, id int64) (entity.StoredRecipe, error)
}

// Exporter renders stored recipes as a workbook (export.Service).
type Exporter interface {
	StoredXLSX(ctx context.Context) ([]byte, error)
}

// ExtractorService implements ExtractorServer on top of the pipeline.
type ExtractorService struct {
	proc     Processor
	store    Store
	exporter Exporter
	logger   *slog.Logger
}

// NewExtractorService builds the service. store and exporter may be nil; the methods
// that need them then answer FailedPrecondition.
func NewExtractorService(proc Processor, store Store, exporter Exporter, logger *slog.Logger) *ExtractorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractorService{proc: proc, store: store, exporter: exporter, logger: logger}
}

// Extract runs the full pipeline on one document.
//
// Request: filename, content (base64), content_type (optional, guessed from the
// filename), contributor (optional), save (bool).
// Response: recipe, extracted_length, method, ocr_confidence, elapsed_ms and, when
// saved, stored_id.
func (s *ExtractorService) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	doc, err := documentFromRequest(req)
	if err != nil {
		return nil, err
	}
	save := boolField(req, "save")
	if save && s.store == nil {
		return nil, common.ToStatus(common.NewAppError(common.CodeConfig, "no store configured", common.ErrInvalidInput))
	}

	res, err := s.proc.ProcessDocument(ctx, doc)
	if err != nil {
		s.logger.Warn("server.extract.failed",
			"req_id", common.RequestIDFromContext(ctx),
			"filename", doc.Filename,
			"stage", common.StageOf(err),
			"error", err,
		)
		return nil, common.ToStatus(err)
	}

	recipe, err := toValue(res.Recipe)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	out := map[string]any{
		"recipe":           recipe,
		"extracted_length": res.Extracted.Length,
		"method":           res.Extracted.Method,
		"ocr_confidence":   float64(res.Extracted.Confidence),
		"elapsed_ms":       res.Elapsed.Milliseconds(),
	}
	if save {
		stored, err := s.store.Save(ctx, res.Recipe, doc.Contributor)
		if err != nil {
			s.logger.Error("server.extract.save_failed", "filename", doc.Filename, "error", err)
			return nil, common.ToStatus(err)
		}
		out["stored_id"] = stored.ID
		out["date_added"] = stored.DateAdded.Format(time.RFC3339)
	}
	return newStruct(out)
}

// ExtractText runs the extract stage only.
//
// Request: filename, content (base64), content_type, min_length (default 10).
// Response: text, length, format, method, pages, ocr_confidence, warnings.
func (s *ExtractorService) ExtractText(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	doc, err := documentFromRequest(req)
	if err != nil {
		return nil, err
	}
	minLength := int(numberField(req, "min_length"))
	if minLength <= 0 {
		minLength = constants.MinLengthExtractOnly
	}

	text, err := s.proc.ExtractOnly(ctx, doc, minLength)
	if err != nil {
		s.logger.Warn("server.extract_text.failed", "filename", doc.Filename, "error", err)
		return nil, common.ToStatus(err)
	}
	warnings := make([]any, 0, len(text.Warnings))
	for _, w := range text.Warnings {
		warnings = append(warnings, w)
	}
	return newStruct(map[string]any{
		"text":           text.Text,
		"length":         text.Length,
		"format":         text.Format,
		"method":         text.Method,
		"pages":          text.Pages,
		"ocr_confidence": float64(text.Confidence),
		"warnings":       warnings,
	})
}

// GetRecipe returns one stored recipe. Request: id.
func (s *ExtractorService) GetRecipe(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.store == nil {
		return nil, common.ToStatus(common.NewAppError(common.CodeConfig, "no store configured", common.ErrInvalidInput))
	}
	id := int64(numberField(req, "id"))
	if id <= 0 {
		return nil, common.InvalidArgumentError("id must be a positive integer")
	}
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	v, err := toValue(rec)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	return newStruct(map[string]any{"recipe": v})
}

// ExportRecipes returns every stored recipe as an XLSX workbook. Response: xlsx (base64).
func (s *ExtractorService) ExportRecipes(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if s.exporter == nil {
		return nil, common.ToStatus(common.NewAppError(common.CodeConfig, "no store configured", common.ErrInvalidInput))
	}
	bs, err := s.exporter.StoredXLSX(ctx)
	if err != nil {
		s.logger.Error("server.export.failed", "error", err)
		return nil, common.ToStatus(err)
	}
	return newStruct(map[string]any{
		"xlsx":  base64.StdEncoding.EncodeToString(bs),
		"bytes": len(bs),
	})
}

func documentFromRequest(req *structpb.Struct) (entity.RecipeDocument, error) {
	filename := strings.TrimSpace(stringField(req, "filename"))
	if filename == "" {
		return entity.RecipeDocument{}, common.InvalidArgumentError("filename is required")
	}
	raw := stringField(req, "content")
	if raw == "" {
		return entity.RecipeDocument{}, common.InvalidArgumentError("content is required")
	}
	content, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return entity.RecipeDocument{}, common.InvalidArgumentError("content must be base64")
	}
	ct := stringField(req, "content_type")
	if ct == "" {
		ct = constants.ContentTypeForExt(filepath.Ext(filename))
	}
	return entity.RecipeDocument{
		Content:     content,
		ContentType: ct,
		Filename:    filename,
		Contributor: strings.TrimSpace(stringField(req, "contributor")),
	}, nil
}

func stringField(s *structpb.Struct, key string) string {
	if v, ok := s.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func numberField(s *structpb.Struct, key string) float64 {
	if v, ok := s.GetFields()[key]; ok {
		return v.GetNumberValue()
	}
	return 0
}

func boolField(s *structpb.Struct, key string) bool {
	if v, ok := s.GetFields()[key]; ok {
		return v.GetBoolValue()
	}
	return false
}

// toValue converts a JSON-tagged value into the generic form structpb accepts.
func toValue(v any) (any, error) {
	bs, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	var out any
	if err := json.Unmarshal(bs, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.ToStatus(fmt.Errorf("build response: %w", err))
	}
	return st, nil
}
