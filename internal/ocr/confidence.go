package ocr

import (
	"regexp"
	"strings"
)

var (
	reQtyUnit  = regexp.MustCompile(`\b\d+(?:[./]\d+)?\s*(?:cups?|tbsps?|tsps?|tablespoons?|teaspoons?|lbs?|oz|g|ml|cloves?)\b`)
	reSections = regexp.MustCompile(`\b(?:ingredients|instructions|directions|method|preparation)\b`)
	reVerbs    = regexp.MustCompile(`\b(?:add|stir|mix|bake|cook|heat|combine|simmer|boil|whisk|preheat)\b`)
)

// heuristicConfidence scores decoded text by how much it looks like a recipe.
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2)
	if reQtyUnit.MatchString(txtL) {
		score += 0.25
	}
	if reSections.MatchString(txtL) {
		score += 0.2
	}
	if reVerbs.MatchString(txtL) {
		score += 0.15
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
