package estimate

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joseph-ayodele/recipe-extractor/constants"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
)

// Heuristic returns a copy of r with missing fields filled from ingredient and
// instruction counts. Fields already set are kept.
func Heuristic(r entity.CandidateRecipe) entity.CandidateRecipe {
	out := r.Clone()
	if out.PrepTime <= 0 {
		out.PrepTime = PrepMinutes(len(out.Ingredients))
	}
	if out.CookTime <= 0 {
		out.CookTime = CookMinutes(len(out.Instructions))
	}
	if strings.TrimSpace(out.Servings) == "" {
		out.Servings = DefaultServings
	}
	if out.CaloriesPerServing <= 0 {
		out.CaloriesPerServing = DefaultCalories
	}
	if strings.TrimSpace(out.Description) == "" {
		out.Description = Describe(out.Title, out.Cuisine, out.MealType)
	}
	return out
}

// PrepMinutes is two minutes per ingredient, bounded to 5..60.
func PrepMinutes(ingredients int) int { return clamp(ingredients*2, 5, 60) }

// CookMinutes is five minutes per step, bounded to 10..120.
func CookMinutes(steps int) int { return clamp(steps*5, 10, 120) }

// Describe builds "<title>, a <cuisine> <meal_type> recipe." Cuisine and meal type
// are mapped onto their vocabularies first; unrecognized values and Other are left out.
func Describe(title, cuisine, mealType string) string {
	title = strings.TrimSpace(title)
	var kind []string
	if c, ok := constants.CanonicalizeCuisine(cuisine); ok && c != constants.OtherCuisine {
		kind = append(kind, string(c))
	}
	if m, ok := constants.CanonicalizeMealType(mealType); ok {
		kind = append(kind, string(m))
	}
	phrase := "recipe"
	if len(kind) > 0 {
		phrase = strings.Join(kind, " ") + " recipe"
	}
	phrase = article(phrase) + " " + phrase + "."

	if title == "" {
		return upperFirst(phrase)
	}
	return title + ", " + phrase
}

func article(word string) string {
	r, _ := utf8.DecodeRuneInString(word)
	if strings.ContainsRune("aeiouAEIOU", r) {
		return "an"
	}
	return "a"
}

func upperFirst(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func clamp(v, lo, hi int) int { return min(max(v, lo), hi) }
