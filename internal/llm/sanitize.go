package llm

import (
	"log/slog"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	stringFields = []string{"title", "description", "cuisine", "meal_type", "difficulty",
		"source_attribution", "contributor", "review_notes", "extraction_notes"}
	listFields    = []string{"ingredients", "instructions", "tags"}
	minuteFields  = []string{"prep_time", "cook_time"}
	allowedFields = func() map[string]struct{} {
		m := map[string]struct{}{}
		for _, group := range [][]string{stringFields, listFields, minuteFields,
			{"servings", "calories_per_serving", "confidence_score", "needs_review"}} {
			for _, k := range group {
				m[k] = struct{}{}
			}
		}
		return m
	}()
	synonyms = [][2]string{
		{"name", "title"},
		{"recipe_name", "title"},
		{"steps", "instructions"},
		{"directions", "instructions"},
		{"method", "instructions"},
		{"prepTime", "prep_time"},
		{"cookTime", "cook_time"},
		{"calories", "calories_per_serving"},
		{"confidence", "confidence_score"},
		{"yield", "servings"},
		{"serves", "servings"},
		{"source", "source_attribution"},
		{"notes", "extraction_notes"},
		{"category", "meal_type"},
	}
)

var (
	reHours   = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:h|hr|hrs|hour|hours)\b`)
	reMinutes = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:m|min|mins|minute|minutes)\b`)
	reISODur  = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?$`)
	reLeadNum = regexp.MustCompile(`^\D*?(\d+(?:\.\d+)?)`)
)

// SanitizeRecipeMap coerces a decoded model response into the recipe shape: synonyms are
// renamed, nulls and unknown keys dropped, bare strings wrapped into arrays, time strings
// converted to minutes, numeric servings turned into strings and confidence clamped.
// It returns the cleaned copy and a list of the changes made.
func SanitizeRecipeMap(in map[string]any, logger *slog.Logger) (map[string]any, []string) {
	if logger == nil {
		logger = slog.Default()
	}
	m := maps.Clone(in)
	changes := make([]string, 0, 8)

	for _, s := range synonyms {
		from, to := s[0], s[1]
		if v, ok := m[from]; ok {
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			changes = append(changes, from+"->"+to)
		}
	}

	for k, v := range maps.Clone(m) {
		if v == nil {
			delete(m, k)
			changes = append(changes, k+"(null)")
			continue
		}
		if _, ok := allowedFields[k]; !ok {
			delete(m, k)
			changes = append(changes, k+"(unknown)")
		}
	}

	for _, k := range stringFields {
		if v, ok := m[k]; ok {
			s, ok := scalarString(v)
			if !ok {
				delete(m, k)
				changes = append(changes, k+"(type)")
				continue
			}
			m[k] = s
		}
	}

	for _, k := range listFields {
		if v, ok := m[k]; ok {
			list, wrapped := coerceStringList(v, k == "tags")
			m[k] = list
			if wrapped {
				changes = append(changes, k+"(wrapped)")
			}
		}
	}

	for _, k := range minuteFields {
		if v, ok := m[k]; ok {
			if n, ok := CoerceMinutes(v); ok {
				m[k] = n
			} else {
				delete(m, k)
				changes = append(changes, k+"(unparsed)")
			}
		}
	}

	if v, ok := m["calories_per_serving"]; ok {
		if n, ok := CoerceInt(v); ok {
			m["calories_per_serving"] = max(n, 0)
		} else {
			delete(m, "calories_per_serving")
			changes = append(changes, "calories_per_serving(unparsed)")
		}
	}

	if v, ok := m["servings"]; ok {
		if s, ok := scalarString(v); ok {
			m["servings"] = s
		} else {
			delete(m, "servings")
			changes = append(changes, "servings(type)")
		}
	}

	if v, ok := m["confidence_score"]; ok {
		if f, ok := coerceConfidence(v); ok {
			m["confidence_score"] = f
		} else {
			delete(m, "confidence_score")
			changes = append(changes, "confidence_score(unparsed)")
		}
	}

	if v, ok := m["needs_review"]; ok {
		switch t := v.(type) {
		case bool:
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(t))
			if err != nil {
				delete(m, "needs_review")
				changes = append(changes, "needs_review(unparsed)")
			} else {
				m["needs_review"] = b
			}
		default:
			delete(m, "needs_review")
			changes = append(changes, "needs_review(type)")
		}
	}

	if len(changes) > 0 {
		slices.Sort(changes)
		logger.Debug("llm.structure.sanitized", "changes", changes)
	}
	return m, changes
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// coerceStringList wraps a bare string into a one-element list and flattens arrays of
// scalars or {"text": ...}-style objects. splitCommas applies to bare strings only.
func coerceStringList(v any, splitCommas bool) ([]any, bool) {
	out := []any{}
	switch t := v.(type) {
	case string:
		if splitCommas {
			for _, p := range strings.Split(t, ",") {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
		} else if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
		return out, true
	case []any:
		for _, item := range t {
			if s, ok := listItemString(item); ok && s != "" {
				out = append(out, s)
			}
		}
		return out, false
	}
	if s, ok := listItemString(v); ok && s != "" {
		out = append(out, s)
	}
	return out, true
}

func listItemString(v any) (string, bool) {
	if s, ok := scalarString(v); ok {
		return s, true
	}
	if obj, ok := v.(map[string]any); ok {
		for _, k := range []string{"text", "instruction", "step", "description", "item", "ingredient", "name"} {
			if s, ok := obj[k].(string); ok {
				return strings.TrimSpace(s), true
			}
		}
	}
	return "", false
}

// CoerceMinutes reads a duration in minutes from a number or a string such as "45",
// "45 minutes", "1 hour 15 minutes", "1.5 hrs" or "PT1H30M". Negative values clamp to 0.
func CoerceMinutes(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return max(int(math.Round(t)), 0), true
	case int:
		return max(t, 0), true
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		if s == "" {
			return 0, false
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return max(int(math.Round(n)), 0), true
		}
		if m := reISODur.FindStringSubmatch(strings.ToUpper(s)); m != nil && (m[1] != "" || m[2] != "") {
			h, _ := strconv.Atoi(m[1])
			mins, _ := strconv.Atoi(m[2])
			return h*60 + mins, true
		}
		total := 0.0
		found := false
		for _, m := range reHours.FindAllStringSubmatch(s, -1) {
			f, _ := strconv.ParseFloat(m[1], 64)
			total += f * 60
			found = true
		}
		for _, m := range reMinutes.FindAllStringSubmatch(s, -1) {
			f, _ := strconv.ParseFloat(m[1], 64)
			total += f
			found = true
		}
		if found {
			return int(math.Round(total)), true
		}
		if m := reLeadNum.FindStringSubmatch(s); m != nil {
			f, _ := strconv.ParseFloat(m[1], 64)
			return int(math.Round(f)), true
		}
	}
	return 0, false
}

// CoerceInt reads the first number of a value such as 450, "450" or "about 450 kcal".
func CoerceInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(math.Round(t)), true
	case int:
		return t, true
	case string:
		if m := reLeadNum.FindStringSubmatch(strings.TrimSpace(t)); m != nil {
			f, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				return int(math.Round(f)), true
			}
		}
	}
	return 0, false
}

func coerceConfidence(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case string:
		s := strings.TrimSpace(t)
		pct := strings.HasSuffix(s, "%")
		n, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
		if err != nil {
			return 0, false
		}
		f = n
		if pct {
			f = n / 100
		}
	default:
		return 0, false
	}
	if f > 1 && f <= 100 {
		f /= 100
	}
	return ClampConfidence(f), true
}

// ClampConfidence bounds a score to 0..1.
func ClampConfidence(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// MissingRequired lists absent or empty required fields in schema order.
func MissingRequired(m map[string]any) []string {
	var missing []string
	if s, _ := m["title"].(string); strings.TrimSpace(s) == "" {
		missing = append(missing, "title")
	}
	for _, k := range []string{"ingredients", "instructions"} {
		if l, _ := m[k].([]any); len(l) == 0 {
			missing = append(missing, k)
		}
	}
	return missing
}
