package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
)

var recipeColumns = []string{
	"id", "title", "description", "cuisine", "meal_type", "difficulty",
	"prep_time", "cook_time", "servings", "calories_per_serving", "contributor_id",
	"source_attribution", "confidence_score", "needs_review", "review_notes",
	"validation_issues", "date_added",
}

// SQLStore keeps recipes in the relational schema (recipes, ingredients,
// instructions, recipe_tags, contributors) on SQLite or PostgreSQL.
type SQLStore struct {
	drv     *entsql.Driver
	pool    *pgxpool.Pool
	dialect string
	logger  *slog.Logger
	now     func() time.Time
}

// NewSQLStore wraps an ent SQL driver and creates the schema. pool is closed with the
// store when set.
func NewSQLStore(ctx context.Context, drv *entsql.Driver, pool *pgxpool.Pool, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SQLStore{drv: drv, pool: pool, dialect: drv.Dialect(), logger: logger, now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates missing tables and indexes.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range schemaFor(s.dialect) {
		if err := s.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return dbErr("migrate", err)
		}
	}
	s.logger.Debug("repository.sql.migrated", "dialect", s.dialect)
	return nil
}

func (s *SQLStore) builder() *entsql.DialectBuilder { return entsql.Dialect(s.dialect) }

func (s *SQLStore) Save(ctx context.Context, r entity.CandidateRecipe, contributor string) (entity.StoredRecipe, error) {
	stored := entity.StoredRecipe{DateAdded: s.now().UTC(), CandidateRecipe: r.Clone()}
	stored.Contributor = contributorName(r, contributor)

	err := s.inTx(ctx, func(tx dialect.Tx) error {
		cid, err := s.contributorID(ctx, tx, stored.Contributor)
		if err != nil {
			return err
		}
		stored.ContributorID = cid
		id, err := s.insertRecipe(ctx, tx, stored)
		if err != nil {
			return err
		}
		stored.ID = id
		return s.insertChildren(ctx, tx, stored)
	})
	if err != nil {
		return entity.StoredRecipe{}, err
	}
	s.logger.Info("repository.sql.saved", "id", stored.ID, "title", stored.Title, "dialect", s.dialect)
	return stored, nil
}

func (s *SQLStore) Get(ctx context.Context, id int64) (entity.StoredRecipe, error) {
	recs, err := s.load(ctx, func() *entsql.Predicate { return entsql.EQ("id", id) },
		func() *entsql.Predicate { return entsql.EQ("recipe_id", id) })
	if err != nil {
		return entity.StoredRecipe{}, err
	}
	if len(recs) == 0 {
		return entity.StoredRecipe{}, notFound(id)
	}
	return recs[0], nil
}

func (s *SQLStore) List(ctx context.Context) ([]entity.StoredRecipe, error) {
	return s.load(ctx, nil, nil)
}

// ReplaceAll empties every table and inserts recipes with their ids and dates.
// Contributor ids are re-resolved from names.
func (s *SQLStore) ReplaceAll(ctx context.Context, recipes []entity.StoredRecipe) error {
	err := s.inTx(ctx, func(tx dialect.Tx) error {
		for _, t := range []string{tableTags, tableInstructions, tableIngredients, tableRecipes, tableContributors} {
			q, args := s.builder().Delete(t).Query()
			if err := tx.Exec(ctx, q, args, nil); err != nil {
				return dbErr("clear "+t, err)
			}
		}
		for _, rec := range recipes {
			rec.CandidateRecipe = rec.Clone()
			cid, err := s.contributorID(ctx, tx, rec.Contributor)
			if err != nil {
				return err
			}
			rec.ContributorID = cid
			if rec.DateAdded.IsZero() {
				rec.DateAdded = s.now().UTC()
			}
			id, err := s.insertRecipe(ctx, tx, rec)
			if err != nil {
				return err
			}
			rec.ID = id
			if err := s.insertChildren(ctx, tx, rec); err != nil {
				return err
			}
		}
		if s.dialect == dialect.Postgres {
			return s.resetSequences(ctx, tx)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("repository.sql.replaced", "recipes", len(recipes))
	return nil
}

// ExportJSON returns the same array shape JSONStore writes.
func (s *SQLStore) ExportJSON(ctx context.Context) ([]byte, error) {
	recs, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(recs, "", "  ")
}

func (s *SQLStore) HealthCheck(ctx context.Context) error {
	if err := HealthCheck(ctx, s.drv, 5*time.Second, s.logger); err != nil {
		return dbErr("ping", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	err := s.drv.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

func (s *SQLStore) inTx(ctx context.Context, fn func(tx dialect.Tx) error) error {
	tx, err := s.drv.Tx(ctx)
	if err != nil {
		return dbErr("begin", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			s.logger.Warn("repository.sql.rollback_failed", "error", rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return dbErr("commit", err)
	}
	return nil
}

// contributorID finds or creates a contributor row. Empty names map to 0 (NULL).
func (s *SQLStore) contributorID(ctx context.Context, q dialect.ExecQuerier, name string) (int64, error) {
	if name == "" {
		return 0, nil
	}
	b := s.builder()
	query, args := b.Select("id").From(b.Table(tableContributors)).Where(entsql.EQ("name", name)).Query()
	id, ok, err := queryInt64(ctx, q, query, args)
	if err != nil {
		return 0, dbErr("find contributor", err)
	}
	if ok {
		return id, nil
	}
	query, args = b.Insert(tableContributors).Columns("name").Values(name).Returning("id").Query()
	id, _, err = queryInt64(ctx, q, query, args)
	if err != nil {
		return 0, dbErr("insert contributor", err)
	}
	return id, nil
}

func (s *SQLStore) insertRecipe(ctx context.Context, q dialect.ExecQuerier, rec entity.StoredRecipe) (int64, error) {
	issues, err := json.Marshal(rec.ValidationIssues)
	if err != nil {
		return 0, fmt.Errorf("encode validation issues: %w", err)
	}
	var contributorID any
	if rec.ContributorID > 0 {
		contributorID = rec.ContributorID
	}

	cols := recipeColumns[1:]
	vals := []any{
		rec.Title, rec.Description, rec.Cuisine, rec.MealType, rec.Difficulty,
		rec.PrepTime, rec.CookTime, rec.Servings, rec.CaloriesPerServing, contributorID,
		rec.SourceAttribution, rec.ConfidenceScore, rec.NeedsReview, rec.ReviewNotes,
		string(issues), s.timeArg(rec.DateAdded),
	}
	if rec.ID > 0 {
		cols = recipeColumns
		vals = append([]any{rec.ID}, vals...)
	}

	query, args := s.builder().Insert(tableRecipes).Columns(cols...).Values(vals...).Returning("id").Query()
	id, _, err := queryInt64(ctx, q, query, args)
	if err != nil {
		return 0, dbErr("insert recipe", err)
	}
	return id, nil
}

func (s *SQLStore) insertChildren(ctx context.Context, q dialect.ExecQuerier, rec entity.StoredRecipe) error {
	lists := []struct {
		table, orderCol, valueCol string
		items                     []string
	}{
		{tableIngredients, "position", "ingredient", rec.Ingredients},
		{tableInstructions, "step_number", "instruction", rec.Instructions},
		{tableTags, "position", "tag", rec.Tags},
	}
	for _, l := range lists {
		if len(l.items) == 0 {
			continue
		}
		ins := s.builder().Insert(l.table).Columns("recipe_id", l.orderCol, l.valueCol)
		for i, item := range l.items {
			ins.Values(rec.ID, i+1, item)
		}
		query, args := ins.Query()
		if err := q.Exec(ctx, query, args, nil); err != nil {
			return dbErr("insert "+l.table, err)
		}
	}
	return nil
}

func (s *SQLStore) resetSequences(ctx context.Context, q dialect.ExecQuerier) error {
	for _, t := range []string{tableRecipes, tableContributors, tableIngredients, tableInstructions} {
		stmt := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)", t, t)
		if err := q.Exec(ctx, stmt, []any{}, nil); err != nil {
			return dbErr("reset sequence "+t, err)
		}
	}
	return nil
}

// load reads recipes and their lists. Predicates are factories because a built
// predicate carries argument state.
func (s *SQLStore) load(ctx context.Context, recipeWhere, childWhere func() *entsql.Predicate) ([]entity.StoredRecipe, error) {
	names, err := s.contributorNames(ctx)
	if err != nil {
		return nil, err
	}

	b := s.builder()
	sel := b.Select(recipeColumns...).From(b.Table(tableRecipes)).OrderBy(entsql.Asc("id"))
	if recipeWhere != nil {
		sel.Where(recipeWhere())
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, dbErr("select recipes", err)
	}
	defer rows.Close()

	out := []entity.StoredRecipe{}
	for rows.Next() {
		var (
			rec     entity.StoredRecipe
			cid     sql.NullInt64
			issues  string
			added   any
			needsRv bool
		)
		if err := rows.Scan(
			&rec.ID, &rec.Title, &rec.Description, &rec.Cuisine, &rec.MealType, &rec.Difficulty,
			&rec.PrepTime, &rec.CookTime, &rec.Servings, &rec.CaloriesPerServing, &cid,
			&rec.SourceAttribution, &rec.ConfidenceScore, &needsRv, &rec.ReviewNotes,
			&issues, &added,
		); err != nil {
			return nil, dbErr("scan recipe", err)
		}
		rec.NeedsReview = needsRv
		if cid.Valid {
			rec.ContributorID = cid.Int64
			rec.Contributor = names[cid.Int64]
		}
		if err := json.Unmarshal([]byte(issues), &rec.ValidationIssues); err != nil {
			return nil, dbErr("decode validation issues", err)
		}
		if rec.ValidationIssues == nil {
			rec.ValidationIssues = []entity.ValidationIssue{}
		}
		if rec.DateAdded, err = parseTime(added); err != nil {
			return nil, dbErr("decode date_added", err)
		}
		rec.Ingredients, rec.Instructions, rec.Tags = []string{}, []string{}, []string{}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate recipes", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	byID := make(map[int64]*entity.StoredRecipe, len(out))
	for i := range out {
		byID[out[i].ID] = &out[i]
	}
	children := []struct {
		table, orderCol, valueCol string
		set                       func(r *entity.StoredRecipe, v []string)
	}{
		{tableIngredients, "position", "ingredient", func(r *entity.StoredRecipe, v []string) { r.Ingredients = v }},
		{tableInstructions, "step_number", "instruction", func(r *entity.StoredRecipe, v []string) { r.Instructions = v }},
		{tableTags, "position", "tag", func(r *entity.StoredRecipe, v []string) { r.Tags = v }},
	}
	for _, c := range children {
		lists, err := s.loadList(ctx, c.table, c.orderCol, c.valueCol, childWhere)
		if err != nil {
			return nil, err
		}
		for id, items := range lists {
			if r, ok := byID[id]; ok {
				c.set(r, items)
			}
		}
	}
	return out, nil
}

func (s *SQLStore) loadList(ctx context.Context, table, orderCol, valueCol string, where func() *entsql.Predicate) (map[int64][]string, error) {
	b := s.builder()
	sel := b.Select("recipe_id", valueCol).From(b.Table(table)).OrderBy(entsql.Asc("recipe_id"), entsql.Asc(orderCol))
	if where != nil {
		sel.Where(where())
	}
	query, args := sel.Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, dbErr("select "+table, err)
	}
	defer rows.Close()

	out := map[int64][]string{}
	for rows.Next() {
		var (
			id int64
			v  string
		)
		if err := rows.Scan(&id, &v); err != nil {
			return nil, dbErr("scan "+table, err)
		}
		out[id] = append(out[id], v)
	}
	if err := rows.Err(); err != nil {
		return nil, dbErr("iterate "+table, err)
	}
	return out, nil
}

func (s *SQLStore) contributorNames(ctx context.Context) (map[int64]string, error) {
	b := s.builder()
	query, args := b.Select("id", "name").From(b.Table(tableContributors)).Query()

	var rows entsql.Rows
	if err := s.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, dbErr("select contributors", err)
	}
	defer rows.Close()

	out := map[int64]string{}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, dbErr("scan contributor", err)
		}
		out[id] = name
	}
	return out, rows.Err()
}

// timeArg stores timestamps natively on PostgreSQL and as RFC 3339 text on SQLite.
func (s *SQLStore) timeArg(t time.Time) any {
	if s.dialect == dialect.Postgres {
		return t.UTC()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		return time.Parse(time.RFC3339Nano, strings.TrimSpace(t))
	case []byte:
		return time.Parse(time.RFC3339Nano, strings.TrimSpace(string(t)))
	}
	return time.Time{}, fmt.Errorf("unexpected date_added type %T", v)
}

func queryInt64(ctx context.Context, q dialect.ExecQuerier, query string, args []any) (int64, bool, error) {
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return 0, false, err
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, false, rows.Err()
	}
	var v int64
	if err := rows.Scan(&v); err != nil {
		return 0, false, err
	}
	return v, true, rows.Err()
}
