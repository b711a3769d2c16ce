package llm

import (
	"github.com/joseph-ayodele/recipe-extractor/constants"
)

// BuildRecipeJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// It is shown to the model as the output example and used locally to validate.
func BuildRecipeJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	strList := func(minItems int) map[string]any {
		p := map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string", "minLength": 1},
		}
		if minItems > 0 {
			p["minItems"] = minItems
		}
		return p
	}
	nonNegInt := map[string]any{"type": "integer", "minimum": 0}

	props := map[string]any{
		"title":                map[string]any{"type": "string", "minLength": 1},
		"description":          str,
		"cuisine":              map[string]any{"type": "string", "examples": constants.CuisinesAsStrings()},
		"meal_type":            map[string]any{"type": "string", "examples": constants.MealTypesAsStrings()},
		"difficulty":           map[string]any{"type": "string", "examples": constants.DifficultiesAsStrings()},
		"prep_time":            nonNegInt,
		"cook_time":            nonNegInt,
		"servings":             str,
		"calories_per_serving": nonNegInt,
		"ingredients":          strList(1),
		"instructions":         strList(1),
		"tags":                 strList(0),
		"source_attribution":   str,
		"contributor":          str,
		"confidence_score":     map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		"needs_review":         map[string]any{"type": "boolean"},
		"review_notes":         str,
		"extraction_notes":     str,
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             []string{"title", "ingredients", "instructions"},
	}
}
