// Package quantity checks that every cooking step carries its own amounts, so a
// cook never has to scroll back to the ingredient list mid-step.
package quantity

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/recipe-extractor/internal/entity"
)

// IssueMissingQuantity is the issue text recorded for a flagged step.
const IssueMissingQuantity = "Mentions ingredients but lacks specific quantities"

const (
	number = `(?:\d+\s+\d+/\d+|\d+(?:\.\d+)?(?:/\d+)?)`
	unit   = `(?:cups?|tablespoons?|tbsps?|teaspoons?|tsps?|lbs?|pounds?|oz|ounces?|slices?|pieces?|cloves?|g|grams?|kg|ml|l|liters?|litres?|inch(?:es)?|cans?|sticks?|pinch(?:es)?)`
)

var (
	reVerb     = regexp.MustCompile(`(?i)\b(?:add|stir|mix|combine|cook|brown|heat|fold|whisk|beat|toss|season|sprinkle|pour)\b|\bsaut(?:e|é)`)
	reNoun     = regexp.MustCompile(`(?i)\b(?:beef|chicken|pork|bacon|onions?|garlic|butter|flour|sugar|salt|pepper|oil|eggs?|milk|cream|cheese|rice|pasta|tomato(?:es)?)\b`)
	reQuantity = regexp.MustCompile(`(?i)` + number + `(?:\s*(?:-|–|to)\s*` + number + `)?\s*` + unit + `\b`)
)

// Result of validating a list of instructions.
type Result struct {
	Valid  bool
	Issues []entity.ValidationIssue
}

// Validate flags steps that name an action and a food but no amount.
// Issues are never nil; step numbers are 1-based.
func Validate(instructions []string) Result {
	issues := make([]entity.ValidationIssue, 0)
	for i, step := range instructions {
		if !StepNeedsQuantity(step) {
			continue
		}
		issues = append(issues, entity.ValidationIssue{
			Step:  i + 1,
			Text:  step,
			Issue: IssueMissingQuantity,
		})
	}
	return Result{Valid: len(issues) == 0, Issues: issues}
}

// StepNeedsQuantity reports whether step has a cooking verb and a food noun without
// any "<number> <unit>" amount.
func StepNeedsQuantity(step string) bool {
	s := strings.TrimSpace(step)
	if s == "" {
		return false
	}
	return reVerb.MatchString(s) && reNoun.MatchString(s) && !reQuantity.MatchString(s)
}

// HasQuantity reports whether s contains an amount with a unit, e.g. "1 1/2 cups" or "2-3 lbs".
func HasQuantity(s string) bool { return reQuantity.MatchString(s) }

// Apply returns a copy of r with the validation issues recorded. An invalid recipe is
// flagged for review with a note counting the offending steps.
func Apply(r entity.CandidateRecipe) entity.CandidateRecipe {
	out := r.Clone()
	res := Validate(out.Instructions)
	out.ValidationIssues = res.Issues
	if !res.Valid {
		out.AddReviewNote(fmt.Sprintf("Instructions missing embedded quantities in %d step(s)", len(res.Issues)))
	}
	return out
}
