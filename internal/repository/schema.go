package repository

import "entgo.io/ent/dialect"

// Table names of the relational schema.
const (
	tableContributors = "contributors"
	tableRecipes      = "recipes"
	tableIngredients  = "ingredients"
	tableInstructions = "instructions"
	tableTags         = "recipe_tags"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS contributors (
		id   INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS recipes (
		id                   INTEGER PRIMARY KEY AUTOINCREMENT,
		title                TEXT NOT NULL,
		description          TEXT NOT NULL DEFAULT '',
		cuisine              TEXT NOT NULL DEFAULT '',
		meal_type            TEXT NOT NULL DEFAULT '',
		difficulty           TEXT NOT NULL DEFAULT '',
		prep_time            INTEGER NOT NULL DEFAULT 0,
		cook_time            INTEGER NOT NULL DEFAULT 0,
		servings             TEXT NOT NULL DEFAULT '',
		calories_per_serving INTEGER NOT NULL DEFAULT 0,
		contributor_id       INTEGER REFERENCES contributors(id),
		source_attribution   TEXT NOT NULL DEFAULT '',
		confidence_score     REAL NOT NULL DEFAULT 0,
		needs_review         INTEGER NOT NULL DEFAULT 0,
		review_notes         TEXT NOT NULL DEFAULT '',
		validation_issues    TEXT NOT NULL DEFAULT 'null',
		date_added           TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ingredients (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		recipe_id  INTEGER NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
		position   INTEGER NOT NULL,
		ingredient TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS instructions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		recipe_id   INTEGER NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
		step_number INTEGER NOT NULL,
		instruction TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS recipe_tags (
		recipe_id INTEGER NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
		position  INTEGER NOT NULL,
		tag       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ingredients_recipe ON ingredients(recipe_id)`,
	`CREATE INDEX IF NOT EXISTS idx_instructions_recipe ON instructions(recipe_id)`,
	`CREATE INDEX IF NOT EXISTS idx_recipe_tags_recipe ON recipe_tags(recipe_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS contributors (
		id   BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS recipes (
		id                   BIGSERIAL PRIMARY KEY,
		title                TEXT NOT NULL,
		description          TEXT NOT NULL DEFAULT '',
		cuisine              TEXT NOT NULL DEFAULT '',
		meal_type            TEXT NOT NULL DEFAULT '',
		difficulty           TEXT NOT NULL DEFAULT '',
		prep_time            INTEGER NOT NULL DEFAULT 0,
		cook_time            INTEGER NOT NULL DEFAULT 0,
		servings             TEXT NOT NULL DEFAULT '',
		calories_per_serving INTEGER NOT NULL DEFAULT 0,
		contributor_id       BIGINT REFERENCES contributors(id),
		source_attribution   TEXT NOT NULL DEFAULT '',
		confidence_score     DOUBLE PRECISION NOT NULL DEFAULT 0,
		needs_review         BOOLEAN NOT NULL DEFAULT FALSE,
		review_notes         TEXT NOT NULL DEFAULT '',
		validation_issues    TEXT NOT NULL DEFAULT 'null',
		date_added           TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS ingredients (
		id         BIGSERIAL PRIMARY KEY,
		recipe_id  BIGINT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
		position   INTEGER NOT NULL,
		ingredient TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS instructions (
		id          BIGSERIAL PRIMARY KEY,
		recipe_id   BIGINT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
		step_number INTEGER NOT NULL,
		instruction TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS recipe_tags (
		recipe_id BIGINT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
		position  INTEGER NOT NULL,
		tag       TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ingredients_recipe ON ingredients(recipe_id)`,
	`CREATE INDEX IF NOT EXISTS idx_instructions_recipe ON instructions(recipe_id)`,
	`CREATE INDEX IF NOT EXISTS idx_recipe_tags_recipe ON recipe_tags(recipe_id)`,
}

func schemaFor(d string) []string {
	if d == dialect.Postgres {
		return postgresSchema
	}
	return sqliteSchema
}
