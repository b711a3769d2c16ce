package constants

import "strings"

type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Dessert   MealType = "dessert"
	Snack     MealType = "snack"
	Appetizer MealType = "appetizer"
	Side      MealType = "side"
)

var allMealTypes = []MealType{Breakfast, Lunch, Dinner, Dessert, Snack, Appetizer, Side}

var mealSynonyms = map[string]MealType{
	"main":        Dinner,
	"main course": Dinner,
	"main dish":   Dinner,
	"entree":      Dinner,
	"entrée":      Dinner,
	"supper":      Dinner,
	"side dish":   Side,
	"brunch":      Breakfast,
	"starter":     Appetizer,
}

type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

var allDifficulties = []Difficulty{Easy, Medium, Hard}

var difficultySynonyms = map[string]Difficulty{
	"simple":       Easy,
	"beginner":     Easy,
	"intermediate": Medium,
	"moderate":     Medium,
	"difficult":    Hard,
	"advanced":     Hard,
}

func MealTypesAsStrings() []string {
	out := make([]string, len(allMealTypes))
	for i, m := range allMealTypes {
		out[i] = string(m)
	}
	return out
}

func DifficultiesAsStrings() []string {
	out := make([]string, len(allDifficulties))
	for i, d := range allDifficulties {
		out[i] = string(d)
	}
	return out
}

// CanonicalizeMealType is case-insensitive; unknown input yields dinner.
func CanonicalizeMealType(input string) (MealType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Dinner, false
	}
	if m, ok := mealSynonyms[normalized]; ok {
		return m, true
	}
	for _, m := range allMealTypes {
		if normalized == string(m) {
			return m, true
		}
	}
	return Dinner, false
}

// CanonicalizeDifficulty is case-insensitive; unknown input yields medium.
func CanonicalizeDifficulty(input string) (Difficulty, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return Medium, false
	}
	if d, ok := difficultySynonyms[normalized]; ok {
		return d, true
	}
	for _, d := range allDifficulties {
		if normalized == string(d) {
			return d, true
		}
	}
	return Medium, false
}
