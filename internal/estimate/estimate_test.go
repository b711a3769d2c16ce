package estimate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
	"github.com/joseph-ayodele/recipe-extractor/internal/llm"
)

func baseRecipe() entity.CandidateRecipe {
	return entity.CandidateRecipe{
		Title:        "Beef Stew",
		Cuisine:      "American",
		MealType:     "dinner",
		Ingredients:  []string{"2 lb beef", "1 onion", "3 carrots"},
		Instructions: []string{"Brown 2 lb beef.", "Add 1 onion.", "Add 3 carrots.", "Simmer 2 hours."},
	}
}

func TestPrepMinutes(t *testing.T) {
	for n := 0; n <= 40; n++ {
		want := n * 2
		if want < 5 {
			want = 5
		}
		if want > 60 {
			want = 60
		}
		assert.Equal(t, want, PrepMinutes(n), "ingredients=%d", n)
	}
	assert.Equal(t, 10, CookMinutes(1))
	assert.Equal(t, 20, CookMinutes(4))
	assert.Equal(t, 120, CookMinutes(30))
}

func TestHeuristic(t *testing.T) {
	out := Heuristic(baseRecipe())
	assert.Equal(t, 6, out.PrepTime)
	assert.Equal(t, 20, out.CookTime)
	assert.Equal(t, "4-6", out.Servings)
	assert.Equal(t, 450, out.CaloriesPerServing)
	assert.Equal(t, "Beef Stew, an American dinner recipe.", out.Description)

	in := baseRecipe()
	in.PrepTime, in.Servings, in.Description = 15, "8", "Hearty."
	kept := Heuristic(in)
	assert.Equal(t, 15, kept.PrepTime)
	assert.Equal(t, "8", kept.Servings)
	assert.Equal(t, "Hearty.", kept.Description)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Pancakes, a breakfast recipe.", Describe("Pancakes", "", "breakfast"))
	assert.Equal(t, "Soup, a recipe.", Describe(" Soup ", "", ""))
	assert.Equal(t, "An Italian recipe.", Describe("", "Italian", ""))
	assert.Equal(t, "Beef, an Asian dinner recipe.", Describe("Beef", "chinese", "main course"))
	assert.Equal(t, "Stew, a dinner recipe.", Describe("Stew", "Klingon", "Dinner"))
	assert.Equal(t, "Stew, a recipe.", Describe("Stew", "Other", "elevenses"))
}

func TestMissingFields(t *testing.T) {
	assert.Equal(t, []string{FieldPrepTime, FieldCookTime, FieldServings, FieldCalories, FieldDescription}, MissingFields(entity.CandidateRecipe{}))
	assert.Empty(t, MissingFields(entity.CandidateRecipe{PrepTime: 1, CookTime: 1, Servings: "2", CaloriesPerServing: 1, Description: "d"}))
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(baseRecipe(), []string{FieldCookTime, FieldServings})
	assert.Contains(t, p, "estimate the missing fields: cook_time, servings")
	assert.Contains(t, p, "Brown 2 lb beef. Add 1 onion. Add 3 carrots.")
	assert.NotContains(t, p, "Simmer")
	assert.Contains(t, p, `"cook_time": 60`)
	assert.NotContains(t, p, `"prep_time"`)
}

func TestFillCollaborator(t *testing.T) {
	var gotTokens int
	var gotPrompt string
	c := llm.CompleterFunc(func(_ context.Context, prompt string, maxTokens int, _ float32) (string, error) {
		gotTokens, gotPrompt = maxTokens, prompt
		return "```json\n" + `{"prep_time":"25 minutes","cook_time":150,"servings":6,"calories_per_serving":"520 kcal","difficulty":"hard"}` + "\n```", nil
	})
	out := NewEstimator(c, Config{}, nil).Fill(context.Background(), baseRecipe())

	assert.Equal(t, DefaultMaxTokens, gotTokens)
	assert.True(t, strings.Contains(gotPrompt, "description"))
	assert.Equal(t, 25, out.PrepTime)
	assert.Equal(t, 150, out.CookTime)
	assert.Equal(t, "6", out.Servings)
	assert.Equal(t, 520, out.CaloriesPerServing)
	assert.Empty(t, out.Difficulty)
	// not returned by the collaborator, so the heuristic fills it
	assert.Equal(t, "Beef Stew, an American dinner recipe.", out.Description)
}

func TestFillFallsBackToHeuristic(t *testing.T) {
	tests := []struct {
		name string
		c    llm.Completer
	}{
		{"timeout", llm.CompleterFunc(func(ctx context.Context, _ string, _ int, _ float32) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		})},
		{"transport", llm.CompleterFunc(func(context.Context, string, int, float32) (string, error) {
			return "", errors.New("connection reset")
		})},
		{"unparseable", llm.CompleterFunc(func(context.Context, string, int, float32) (string, error) {
			return "I think about 30 minutes.", nil
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEstimator(tt.c, Config{Timeout: 20 * time.Millisecond}, nil)
			out := e.Fill(context.Background(), baseRecipe())
			assert.Equal(t, Heuristic(baseRecipe()), out)
		})
	}
}

func TestFillNothingMissing(t *testing.T) {
	called := false
	c := llm.CompleterFunc(func(context.Context, string, int, float32) (string, error) {
		called = true
		return "{}", nil
	})
	in := baseRecipe()
	in.PrepTime, in.CookTime, in.Servings, in.CaloriesPerServing, in.Description = 10, 20, "4", 300, "d"
	out := NewEstimator(c, Config{}, nil).Fill(context.Background(), in)
	require.False(t, called)
	assert.Equal(t, in, out)
}

func TestFillHeuristicOnly(t *testing.T) {
	out := NewEstimator(nil, Config{}, nil).Fill(context.Background(), baseRecipe())
	assert.Equal(t, Heuristic(baseRecipe()), out)
}
