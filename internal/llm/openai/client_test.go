package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jetrug/companysheet/internal/common"
)

func TestParse_ReturnsRawContent(t *testing.T) {
	const content = "Sure:\n```json\n{\"revenue\":{\"value\":\"$10M\",\"source\":[2]}}\n```"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o", body["model"])

		msgs := body["messages"].([]any)
		user := msgs[1].(map[string]any)["content"].(string)
		assert.Contains(t, user, "revenue")
		assert.Contains(t, user, "page one")

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	got, err := c.Parse(context.Background(), []string{"page one"}, []string{"revenue", "ebitda"})
	require.NoError(t, err)
	assert.Equal(t, content, got, "raw response text must reach the decoder untouched")
}

func TestParse_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := c.Parse(context.Background(), []string{"p"}, []string{"revenue"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrParseFailed))
	assert.Contains(t, err.Error(), "429")
}

func TestParse_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewClient(Config{APIKey: "k", BaseURL: srv.URL}, nil)
	_, err := c.Parse(context.Background(), []string{"p"}, []string{"revenue"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrParseFailed))
}
