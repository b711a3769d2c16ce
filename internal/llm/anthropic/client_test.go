package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"title\":"},{"type":"tool_use"},{"type":"text","text":"\"Soup\"}"}],"stop_reason":"end_turn"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "key-1", BaseURL: srv.URL + "/", Model: "m"}, nil)
	out, err := c.Complete(context.Background(), "prompt", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Soup"}`, out)
	assert.Equal(t, "m", got["model"])
	assert.Equal(t, float64(4000), got["max_tokens"])
}

func TestClientCompleteEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()

	_, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil).Complete(context.Background(), "p", 100, 0)
	assert.ErrorIs(t, err, ErrEmptyContent)
}
