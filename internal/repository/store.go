package repository

import (
	"context"
	"fmt"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/recipe-extractor/internal/common"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
)

// Backends accepted by Open.
const (
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendNone     = "none"
)

// Store persists structured recipes.
type Store interface {
	Save(ctx context.Context, r entity.CandidateRecipe, contributor string) (entity.StoredRecipe, error)
	Get(ctx context.Context, id int64) (entity.StoredRecipe, error)
	List(ctx context.Context) ([]entity.StoredRecipe, error)
	ReplaceAll(ctx context.Context, recipes []entity.StoredRecipe) error
	HealthCheck(ctx context.Context) error
	ExportJSON(ctx context.Context) ([]byte, error)
	Close() error
}

// Open builds the store named by cfg.Backend. BackendNone returns (nil, nil).
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Backend {
	case BackendNone, "":
		return nil, nil
	case BackendJSON:
		return NewJSONStore(cfg.Path, logger), nil
	case BackendSQLite:
		drv, err := openSQLite(ctx, cfg.Path, logger)
		if err != nil {
			return nil, dbErr("open sqlite", err)
		}
		return newSQL(ctx, drv, nil, logger)
	case BackendPostgres:
		drv, pool, err := openPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, dbErr("open postgres", err)
		}
		return newSQL(ctx, drv, pool, logger)
	}
	return nil, common.NewAppError(common.CodeConfig, fmt.Sprintf("unknown store backend %q", cfg.Backend), common.ErrInvalidInput)
}

func newSQL(ctx context.Context, drv *entsql.Driver, pool *pgxpool.Pool, logger *slog.Logger) (Store, error) {
	s, err := NewSQLStore(ctx, drv, pool, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func dbErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, common.ErrDatabase, err)
}

func notFound(id int64) error {
	return fmt.Errorf("recipe %d: %w", id, common.ErrNotFound)
}
