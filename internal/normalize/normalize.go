// Package normalize canonicalizes a CandidateRecipe. Normalize is pure and idempotent.
package normalize

import (
	"maps"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/recipe-extractor/constants"
	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
)

var (
	reSpaces        = regexp.MustCompile(`\s+`)
	reTrailingRecip = regexp.MustCompile(`(?i)\s+recipe$`)
)

// Normalize returns a canonical copy of r.
func Normalize(r entity.CandidateRecipe) entity.CandidateRecipe {
	out := r.Clone()

	out.Title = Title(out.Title)
	out.Description = strings.TrimSpace(out.Description)

	cuisine, _ := constants.CanonicalizeCuisine(out.Cuisine)
	out.Cuisine = string(cuisine)
	meal, _ := constants.CanonicalizeMealType(out.MealType)
	out.MealType = string(meal)
	diff, _ := constants.CanonicalizeDifficulty(out.Difficulty)
	out.Difficulty = string(diff)

	out.PrepTime = max(out.PrepTime, 0)
	out.CookTime = max(out.CookTime, 0)
	out.CaloriesPerServing = max(out.CaloriesPerServing, 0)
	out.Servings = strings.TrimSpace(out.Servings)

	out.Ingredients = cleanList(out.Ingredients)
	out.Instructions = cleanList(out.Instructions)
	out.Tags = Tags(out.Tags)

	out.SourceAttribution = strings.TrimSpace(out.SourceAttribution)
	out.Contributor = strings.TrimSpace(out.Contributor)
	out.ReviewNotes = strings.TrimSpace(out.ReviewNotes)
	out.ConfidenceScore = clampUnit(out.ConfidenceScore)
	if out.ValidationIssues == nil {
		out.ValidationIssues = []entity.ValidationIssue{}
	}
	return out
}

// Title trims, collapses whitespace and strips trailing "Recipe" words,
// unless that would leave nothing.
func Title(s string) string {
	t := reSpaces.ReplaceAllString(strings.TrimSpace(s), " ")
	for {
		stripped := reTrailingRecip.ReplaceAllString(t, "")
		if stripped == t || strings.TrimSpace(stripped) == "" {
			return t
		}
		t = strings.TrimSpace(stripped)
	}
}

// Tags trims, drops empties and removes case-insensitive duplicates keeping the
// first spelling. The result is never nil.
func Tags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, t := range in {
		t = reSpaces.ReplaceAllString(strings.TrimSpace(t), " ")
		if t == "" {
			continue
		}
		k := strings.ToLower(t)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	return out
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func clampUnit(f float64) float64 {
	switch {
	case math.IsNaN(f), f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// NormalizeMap coerces the shape of an untyped record: tags, ingredients and
// instructions become arrays (a tags string is split on commas), numeric servings
// become strings and non-empty vocabulary fields are canonicalized. The input is not modified.
func NormalizeMap(in map[string]any) map[string]any {
	m := maps.Clone(in)
	if m == nil {
		m = map[string]any{}
	}

	m["tags"] = toList(m["tags"], true)
	m["ingredients"] = toList(m["ingredients"], false)
	m["instructions"] = toList(m["instructions"], false)

	switch v := m["servings"].(type) {
	case float64:
		m["servings"] = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		m["servings"] = strconv.Itoa(v)
	}

	if s, ok := m["cuisine"].(string); ok && strings.TrimSpace(s) != "" {
		c, _ := constants.CanonicalizeCuisine(s)
		m["cuisine"] = string(c)
	}
	if s, ok := m["meal_type"].(string); ok && strings.TrimSpace(s) != "" {
		mt, _ := constants.CanonicalizeMealType(s)
		m["meal_type"] = string(mt)
	}
	if s, ok := m["difficulty"].(string); ok && strings.TrimSpace(s) != "" {
		d, _ := constants.CanonicalizeDifficulty(s)
		m["difficulty"] = string(d)
	}
	return m
}

func toList(v any, splitCommas bool) []any {
	out := []any{}
	switch t := v.(type) {
	case string:
		parts := []string{t}
		if splitCommas {
			parts = strings.Split(t, ",")
		}
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s == "" {
					continue
				}
				out = append(out, s)
				continue
			}
			if item != nil {
				out = append(out, item)
			}
		}
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
