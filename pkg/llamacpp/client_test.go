package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, status int, reply any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "minicpm", req.Model)
		assert.False(t, req.Stream)

		parts := req.Messages[0].Content.([]interface{})
		assert.Len(t, parts, 2)
		image := parts[1].(map[string]interface{})["image_url"].(map[string]interface{})
		assert.Equal(t, "data:image/jpeg;base64,aW1n", image["url"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(reply)
	}))
}

func TestQueryStringContent(t *testing.T) {
	srv := chatServer(t, http.StatusOK, map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": `{"count":2}`}}},
	})
	defer srv.Close()

	c, err := NewClient(srv.URL + "/")
	require.NoError(t, err)

	reply, err := c.Query(context.Background(), "minicpm", "count", "aW1n")
	require.NoError(t, err)
	assert.Equal(t, `{"count":2}`, reply)
}

func TestQueryArrayContent(t *testing.T) {
	srv := chatServer(t, http.StatusOK, map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{
			"role":    "assistant",
			"content": []any{map[string]any{"type": "text", "text": "four"}},
		}}},
	})
	defer srv.Close()

	c, _ := NewClient(srv.URL)
	reply, err := c.Query(context.Background(), "minicpm", "count", "aW1n")
	require.NoError(t, err)
	assert.Equal(t, "four", reply)
}

func TestQueryErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := chatServer(t, http.StatusInternalServerError, map[string]any{"error": "oom"})
		defer srv.Close()

		c, _ := NewClient(srv.URL)
		_, err := c.Query(context.Background(), "minicpm", "count", "aW1n")
		assert.ErrorContains(t, err, "status 500")
	})

	t.Run("no choices", func(t *testing.T) {
		srv := chatServer(t, http.StatusOK, map[string]any{"choices": []any{}})
		defer srv.Close()

		c, _ := NewClient(srv.URL)
		_, err := c.Query(context.Background(), "minicpm", "count", "aW1n")
		assert.ErrorContains(t, err, "no choices")
	})

	t.Run("empty text", func(t *testing.T) {
		srv := chatServer(t, http.StatusOK, map[string]any{
			"choices": []any{map[string]any{"message": map[string]any{"content": ""}}},
		})
		defer srv.Close()

		c, _ := NewClient(srv.URL)
		_, err := c.Query(context.Background(), "minicpm", "count", "aW1n")
		assert.ErrorContains(t, err, "empty response")
	})
}

func TestNewClientDefault(t *testing.T) {
	c, err := NewClient("")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", c.baseURL)
}
