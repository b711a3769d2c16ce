package llm

import (
	"strings"

	"github.com/joseph-ayodele/recipe-extractor/constants"
)

// MaxPromptTextChars caps the document text embedded in a structuring prompt.
const MaxPromptTextChars = 12000

const exampleRecipe = `{
  "title": "Beef Bourguignon",
  "description": "A slow-braised French stew of beef, bacon and mushrooms in red wine.",
  "cuisine": "French",
  "meal_type": "dinner",
  "difficulty": "medium",
  "prep_time": 30,
  "cook_time": 180,
  "servings": "6",
  "calories_per_serving": 520,
  "ingredients": [
    "2 lbs beef chuck, cut into 2-inch cubes",
    "4 slices bacon, chopped"
  ],
  "instructions": [
    "In a large Dutch oven, cook 4 slices of chopped bacon over medium heat until crispy.",
    "Brown 2 lbs of beef cubes in the bacon fat in batches, about 5 minutes per batch."
  ],
  "tags": ["stew", "make-ahead"],
  "source_attribution": "Source name if mentioned",
  "confidence_score": 0.9,
  "needs_review": false,
  "extraction_notes": "Any uncertainties or issues"
}`

// BuildStructuringPrompt composes the single prompt sent for one document. Identical
// input yields an identical prompt.
func BuildStructuringPrompt(text string, sc StructureContext) string {
	var b strings.Builder
	b.WriteString("You are a recipe parsing expert. Extract and structure the recipe text below into one clean recipe.\n\n")

	b.WriteString("CRITICAL RULE - self-contained steps:\n")
	b.WriteString("Every instruction step that uses an ingredient MUST state the quantity of that ingredient inside the step itself. ")
	b.WriteString("The cook must never need to look back at the ingredient list while cooking.\n")
	b.WriteString("GOOD:\n")
	b.WriteString("- \"In a large Dutch oven, cook 4 slices of chopped bacon over medium heat until crispy. Remove and set aside.\"\n")
	b.WriteString("- \"Add 1 large diced onion and 3 minced garlic cloves to the pot. Saute until softened, about 5 minutes.\"\n")
	b.WriteString("BAD (never do this):\n")
	b.WriteString("- \"Cook the bacon until crispy.\"\n")
	b.WriteString("- \"Add onion and garlic, saute until softened.\"\n\n")

	b.WriteString("Infer missing classification fields:\n")
	b.WriteString("- cuisine: one of " + strings.Join(constants.CuisinesAsStrings(), ", ") + "\n")
	b.WriteString("- meal_type: one of " + strings.Join(constants.MealTypesAsStrings(), ", ") + "\n")
	b.WriteString("- difficulty: one of " + strings.Join(constants.DifficultiesAsStrings(), ", ") + "\n")
	b.WriteString("Estimate missing numbers realistically: prep_time and cook_time in whole minutes, servings as text (for example \"4-6\"), calories_per_serving as a whole number. ")
	b.WriteString("Write a 1-3 sentence description when none is given. Keep source_attribution only if the text names a source.\n\n")

	b.WriteString("Report your own reliability: confidence_score between 0 and 1. ")
	b.WriteString("If the text is unclear, incomplete or you had to guess, lower confidence_score, set needs_review to true and explain in extraction_notes.\n\n")

	b.WriteString("Respond with ONLY a JSON object in exactly this shape (no markdown, no commentary):\n")
	b.WriteString(exampleRecipe)
	b.WriteString("\n\n")

	if c := strings.TrimSpace(sc.Contributor); c != "" {
		b.WriteString("Contributor: " + c + "\n")
	}
	if f := strings.TrimSpace(sc.OriginalFilename); f != "" {
		b.WriteString("Filename: " + f + "\n")
	}
	if s := strings.TrimSpace(sc.SourceType); s != "" {
		b.WriteString("Source type: " + s + "\n")
	}

	b.WriteString("\nRecipe text:\n")
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > MaxPromptTextChars {
		b.WriteString(string(r[:MaxPromptTextChars]))
		b.WriteString("\n...(truncated)")
	} else {
		b.WriteString(text)
	}
	b.WriteString("\n")
	return b.String()
}
