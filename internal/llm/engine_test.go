package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/recipe-extractor/internal/common"
)

const stewJSON = `{
  "title": "Beef Stew",
  "description": "Hearty stew.",
  "cuisine": "American",
  "meal_type": "dinner",
  "difficulty": "easy",
  "prep_time": 20,
  "cook_time": 120,
  "servings": "6",
  "calories_per_serving": 480,
  "ingredients": ["2 lb beef chuck", "1 onion"],
  "instructions": ["Brown 2 lb beef chuck in 1 tbsp oil.", "Add 1 diced onion and simmer 2 hours."],
  "tags": ["stew"],
  "source_attribution": "Grandma",
  "contributor": "Someone Else",
  "confidence_score": 0.92,
  "needs_review": false,
  "extraction_notes": "Oven temperature unclear"
}`

func staticCompleter(resp string, err error, gotPrompt *string) Completer {
	return CompleterFunc(func(_ context.Context, prompt string, maxTokens int, temperature float32) (string, error) {
		if gotPrompt != nil {
			*gotPrompt = prompt
		}
		return resp, err
	})
}

func TestEngineStructure(t *testing.T) {
	var prompt string
	e := NewEngine(staticCompleter(stewJSON, nil, &prompt), nil)

	r, err := e.Structure(context.Background(), "Beef stew card text", StructureContext{Contributor: "Janet", OriginalFilename: "stew.jpg"})
	require.NoError(t, err)
	assert.Equal(t, "Beef Stew", r.Title)
	assert.Equal(t, 120, r.CookTime)
	assert.Equal(t, "6", r.Servings)
	assert.Equal(t, []string{"2 lb beef chuck", "1 onion"}, r.Ingredients)
	assert.Equal(t, "Janet", r.Contributor)
	assert.Equal(t, "Grandma", r.SourceAttribution)
	assert.InDelta(t, 0.92, r.ConfidenceScore, 1e-9)
	assert.Equal(t, "Oven temperature unclear", r.ReviewNotes)
	assert.False(t, r.NeedsReview)

	assert.Contains(t, prompt, "Contributor: Janet")
	assert.Contains(t, prompt, "Filename: stew.jpg")
	assert.Contains(t, prompt, "Beef stew card text")
}

func TestEngineStructureProseWrapped(t *testing.T) {
	e := NewEngine(staticCompleter("Here is the recipe: "+stewJSON+"\nLet me know!", nil, nil), nil)
	r, err := e.Structure(context.Background(), "text", StructureContext{})
	require.NoError(t, err)
	assert.Equal(t, "Beef Stew", r.Title)
	assert.Equal(t, "", r.Contributor)
}

func TestEngineStructureWrapsBareStrings(t *testing.T) {
	resp := `{"title":"Toast","ingredients":"1 slice bread","instructions":"Toast 1 slice bread for 2 minutes."}`
	r, err := NewEngine(staticCompleter(resp, nil, nil), nil).Structure(context.Background(), "t", StructureContext{})
	require.NoError(t, err)
	assert.Equal(t, []string{"1 slice bread"}, r.Ingredients)
	assert.Equal(t, []string{"Toast 1 slice bread for 2 minutes."}, r.Instructions)
	assert.NotNil(t, r.Tags)
}

func TestEngineStructureErrors(t *testing.T) {
	t.Run("parse", func(t *testing.T) {
		_, err := NewEngine(staticCompleter("Sorry, I can't help.", nil, nil), nil).Structure(context.Background(), "t", StructureContext{})
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrStructuringParse)
		var pe *StructuringParseError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "Sorry, I can't help.", pe.Raw)
	})
	t.Run("missing fields", func(t *testing.T) {
		_, err := NewEngine(staticCompleter(`{"title":"","ingredients":[]}`, nil, nil), nil).Structure(context.Background(), "t", StructureContext{})
		require.Error(t, err)
		assert.ErrorIs(t, err, common.ErrInvalidStructuredOutput)
		var ie *InvalidStructuredOutputError
		require.ErrorAs(t, err, &ie)
		assert.Equal(t, []string{"title", "ingredients", "instructions"}, ie.Missing)
		assert.Equal(t, "missing required fields: title, ingredients, instructions", err.Error())
	})
	t.Run("completion", func(t *testing.T) {
		_, err := NewEngine(staticCompleter("", context.DeadlineExceeded, nil), nil).Structure(context.Background(), "t", StructureContext{})
		assert.ErrorIs(t, err, common.ErrCompletionFailed)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, common.CodeTimeout, common.CodeOf(err))

		_, err = NewEngine(staticCompleter("", errors.New("dial tcp"), nil), nil).Structure(context.Background(), "t", StructureContext{})
		assert.Equal(t, common.CodeCompletionFailed, common.CodeOf(err))
	})
}

func TestEngineOptions(t *testing.T) {
	var gotTokens int
	var gotTemp float32
	c := CompleterFunc(func(_ context.Context, _ string, maxTokens int, temperature float32) (string, error) {
		gotTokens, gotTemp = maxTokens, temperature
		return stewJSON, nil
	})
	_, err := NewEngine(c, nil).Structure(context.Background(), "t", StructureContext{})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxTokens, gotTokens)
	assert.Equal(t, float32(0), gotTemp)

	_, err = NewEngine(c, nil, WithMaxTokens(1500), WithTemperature(0.2)).Structure(context.Background(), "t", StructureContext{})
	require.NoError(t, err)
	assert.Equal(t, 1500, gotTokens)
	assert.Equal(t, float32(0.2), gotTemp)
}

func TestBuildStructuringPrompt(t *testing.T) {
	p1 := BuildStructuringPrompt("Pancakes", StructureContext{Contributor: "Fergi"})
	p2 := BuildStructuringPrompt("Pancakes", StructureContext{Contributor: "Fergi"})
	assert.Equal(t, p1, p2)
	assert.Contains(t, p1, "GOOD:")
	assert.Contains(t, p1, "BAD (never do this):")
	assert.Contains(t, p1, "Mediterranean")
	assert.Contains(t, p1, "confidence_score")

	long := strings.Repeat("a", MaxPromptTextChars+500)
	p := BuildStructuringPrompt(long, StructureContext{})
	assert.Contains(t, p, "...(truncated)")
	assert.NotContains(t, p, strings.Repeat("a", MaxPromptTextChars+1))
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := BuildRecipeJSONSchema()
	require.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{"title":"T","ingredients":["a"],"instructions":["b"],"prep_time":10}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"title":"T","ingredients":["a"],"instructions":["b"],"prep_time":-1}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"title":"T","ingredients":["a"],"instructions":["b"],"rating":5}`)))
	assert.Error(t, ValidateRecipeJSON([]byte(`{"title":"T","ingredients":["a"],"instructions":["b"],"prep_time":1.5}`)))
}
