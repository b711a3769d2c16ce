package estimate

import (
	"strings"

	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
)

// promptSteps is how many instructions are shown to the model.
const promptSteps = 3

var exampleValues = map[string]string{
	FieldPrepTime:    `"prep_time": 30`,
	FieldCookTime:    `"cook_time": 60`,
	FieldServings:    `"servings": "4-6"`,
	FieldCalories:    `"calories_per_serving": 450`,
	FieldDescription: `"description": "One sentence description"`,
}

// BuildPrompt asks for only the missing fields of r.
func BuildPrompt(r entity.CandidateRecipe, missing []string) string {
	steps := r.Instructions
	if len(steps) > promptSteps {
		steps = steps[:promptSteps]
	}

	var b strings.Builder
	b.WriteString("Given this recipe, estimate the missing fields: ")
	b.WriteString(strings.Join(missing, ", "))
	b.WriteString("\n\nRecipe: ")
	b.WriteString(r.Title)
	b.WriteString("\nIngredients: ")
	b.WriteString(strings.Join(r.Ingredients, ", "))
	b.WriteString("\nInstructions: ")
	b.WriteString(strings.Join(steps, " "))
	b.WriteString("\n\nTimes are whole minutes. Return ONLY JSON with only the missing fields:\n{\n")

	lines := make([]string, 0, len(missing))
	for _, f := range missing {
		if ex, ok := exampleValues[f]; ok {
			lines = append(lines, "  "+ex)
		}
	}
	b.WriteString(strings.Join(lines, ",\n"))
	b.WriteString("\n}")
	return b.String()
}
