package constants

import (
	"strings"
)

type Cuisine string

const (
	American      Cuisine = "American"
	Italian       Cuisine = "Italian"
	Mexican       Cuisine = "Mexican"
	Asian         Cuisine = "Asian"
	French        Cuisine = "French"
	Mediterranean Cuisine = "Mediterranean"
	Indian        Cuisine = "Indian"
	Caribbean     Cuisine = "Caribbean"
	OtherCuisine  Cuisine = "Other"
)

var allCuisines = []Cuisine{
	American,
	Italian,
	Mexican,
	Asian,
	French,
	Mediterranean,
	Indian,
	Caribbean,
	OtherCuisine,
}

// cuisineSynonyms maps common model answers onto the closed vocabulary.
var cuisineSynonyms = map[string]Cuisine{
	"chinese":        Asian,
	"japanese":       Asian,
	"thai":           Asian,
	"korean":         Asian,
	"vietnamese":     Asian,
	"greek":          Mediterranean,
	"middle eastern": Mediterranean,
	"lebanese":       Mediterranean,
	"spanish":        Mediterranean,
	"tex-mex":        Mexican,
	"texmex":         Mexican,
	"jamaican":       Caribbean,
	"cuban":          Caribbean,
	"southern":       American,
	"bbq":            American,
	"barbecue":       American,
	"cajun":          American,
}

func CuisinesAsStrings() []string {
	result := make([]string, len(allCuisines))
	for i, c := range allCuisines {
		result[i] = string(c)
	}
	return result
}

// CanonicalizeCuisine maps free text onto the cuisine vocabulary.
// The bool reports whether the input was recognized; unknown input yields Other.
func CanonicalizeCuisine(input string) (Cuisine, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		return OtherCuisine, false
	}

	if c, ok := cuisineSynonyms[normalized]; ok {
		return c, true
	}

	for _, c := range allCuisines {
		if normalized == strings.ToLower(string(c)) {
			return c, true
		}
	}

	return OtherCuisine, false
}
