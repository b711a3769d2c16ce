package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		ok        bool
		recovered bool
		title     string
	}{
		{"plain json", `{"title":"Chili"}`, true, false, "Chili"},
		{"fenced json", "```json\n{\"title\":\"Chili\"}\n```", true, false, "Chili"},
		{"bare fence", "```\n{\"title\":\"Chili\"}\n```", true, false, "Chili"},
		{"prose prefix", `Here is the recipe: {"title":"Chili","notes":"use {braces} freely"} Enjoy!`, true, true, "Chili"},
		{"escaped quote in string", `Sure! {"title":"Mom's \"Best\" Chili }"} done`, true, true, `Mom's "Best" Chili }`},
		{"skips unbalanced opener", `{ oops. Final: {"title":"Chili"}`, true, true, "Chili"},
		{"no object", "I could not read this recipe.", false, false, ""},
		{"broken object", `Result: {"title": "Chili",}`, false, false, ""},
		{"array is not an object", `["a","b"]`, false, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ParseResponse(tt.raw)
			assert.Equal(t, tt.raw, res.Raw)
			if !tt.ok {
				assert.False(t, res.OK())
				assert.Error(t, res.Err)
				return
			}
			require.True(t, res.OK(), "err: %v", res.Err)
			assert.Equal(t, tt.recovered, res.Recovered)
			assert.Equal(t, tt.title, res.Parsed["title"])
		})
	}
}

func TestFirstBalancedObjectNested(t *testing.T) {
	span, ok := firstBalancedObject(`x {"a":{"b":[1,{"c":"}"}]}} y {"z":1}`)
	require.True(t, ok)
	assert.Equal(t, `{"a":{"b":[1,{"c":"}"}]}}`, span)
}
