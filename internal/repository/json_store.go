package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
	"github.com/joseph-ayodele/recipe-extractor/internal/normalize"
)

// JSONStore keeps every recipe in one JSON array file that is read and rewritten
// wholesale on each change.
type JSONStore struct {
	path   string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

func NewJSONStore(path string, logger *slog.Logger) *JSONStore {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		path = "recipes.json"
	}
	return &JSONStore{path: path, logger: logger, now: time.Now}
}

func (s *JSONStore) Path() string { return s.path }

func (s *JSONStore) Save(_ context.Context, r entity.CandidateRecipe, contributor string) (entity.StoredRecipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load()
	if err != nil {
		return entity.StoredRecipe{}, err
	}

	var maxID int64
	for _, rec := range recs {
		maxID = max(maxID, rec.ID)
	}
	name := contributorName(r, contributor)
	stored := entity.StoredRecipe{
		ID:              maxID + 1,
		DateAdded:       s.now().UTC(),
		ContributorID:   contributorIDs(recs).resolve(name),
		CandidateRecipe: r.Clone(),
	}
	stored.Contributor = name

	if err := s.write(append(recs, stored)); err != nil {
		return entity.StoredRecipe{}, err
	}
	s.logger.Info("repository.json.saved", "id", stored.ID, "title", stored.Title, "path", s.path)
	return stored, nil
}

func (s *JSONStore) Get(_ context.Context, id int64) (entity.StoredRecipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.load()
	if err != nil {
		return entity.StoredRecipe{}, err
	}
	for _, rec := range recs {
		if rec.ID == id {
			return rec, nil
		}
	}
	return entity.StoredRecipe{}, notFound(id)
}

func (s *JSONStore) List(_ context.Context) ([]entity.StoredRecipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// ReplaceAll overwrites the file with recipes, keeping their ids and dates.
func (s *JSONStore) ReplaceAll(_ context.Context, recipes []entity.StoredRecipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(recipes)
	if out == nil {
		out = []entity.StoredRecipe{}
	}
	return s.write(out)
}

func (s *JSONStore) ExportJSON(ctx context.Context) ([]byte, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(recs, "", "  ")
}

// HealthCheck verifies the file's directory is reachable.
func (s *JSONStore) HealthCheck(_ context.Context) error {
	dir := filepath.Dir(s.path)
	st, err := os.Stat(dir)
	if err != nil {
		return dbErr("stat store dir", err)
	}
	if !st.IsDir() {
		return dbErr("stat store dir", fmt.Errorf("%s is not a directory", dir))
	}
	return nil
}

func (s *JSONStore) Close() error { return nil }

// load tolerates a missing file and hand-edited records (tags as a string,
// numeric servings).
func (s *JSONStore) load() ([]entity.StoredRecipe, error) {
	bs, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []entity.StoredRecipe{}, nil
	}
	if err != nil {
		return nil, dbErr("read "+s.path, err)
	}
	if len(strings.TrimSpace(string(bs))) == 0 {
		return []entity.StoredRecipe{}, nil
	}

	var raw []map[string]any
	if err := json.Unmarshal(bs, &raw); err != nil {
		return nil, dbErr("decode "+s.path, err)
	}
	out := make([]entity.StoredRecipe, 0, len(raw))
	for i, m := range raw {
		fixed, err := json.Marshal(normalize.NormalizeMap(m))
		if err != nil {
			return nil, dbErr(fmt.Sprintf("re-encode record %d", i), err)
		}
		var rec entity.StoredRecipe
		if err := json.Unmarshal(fixed, &rec); err != nil {
			return nil, dbErr(fmt.Sprintf("decode record %d", i), err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *JSONStore) write(recs []entity.StoredRecipe) error {
	bs, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return dbErr("encode recipes", err)
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return dbErr("create store dir", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".recipes-*.json")
	if err != nil {
		return dbErr("create temp file", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(append(bs, '\n')); err != nil {
		_ = tmp.Close()
		return dbErr("write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return dbErr("close temp file", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return dbErr("replace "+s.path, err)
	}
	return nil
}

// contributorTable maps contributor names to ids.
type contributorTable map[string]int64

func contributorIDs(recs []entity.StoredRecipe) contributorTable {
	t := contributorTable{}
	for _, r := range recs {
		if r.Contributor != "" && r.ContributorID > 0 {
			if _, ok := t[r.Contributor]; !ok {
				t[r.Contributor] = r.ContributorID
			}
		}
	}
	return t
}

// resolve returns the id for name, assigning max+1 for a new one. Empty names get 0.
func (t contributorTable) resolve(name string) int64 {
	if name == "" {
		return 0
	}
	if id, ok := t[name]; ok {
		return id
	}
	var maxID int64
	for _, id := range t {
		maxID = max(maxID, id)
	}
	t[name] = maxID + 1
	return maxID + 1
}

func contributorName(r entity.CandidateRecipe, contributor string) string {
	if c := strings.TrimSpace(contributor); c != "" {
		return c
	}
	return strings.TrimSpace(r.Contributor)
}
