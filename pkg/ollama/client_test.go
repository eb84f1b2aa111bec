package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientInvalidURL(t *testing.T) {
	_, err := NewClient("::not a url")
	assert.Error(t, err)

	_, err = NewClient("localhost")
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llava", req["model"])
		assert.Equal(t, false, req["stream"])

		messages := req["messages"].([]any)
		msg := messages[0].(map[string]any)
		assert.Equal(t, "count things", msg["content"])
		assert.Len(t, msg["images"], 1)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"model":   "llava",
			"message": map[string]any{"role": "assistant", "content": `{"count":3}`},
			"done":    true,
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL + "/api/chat")
	require.NoError(t, err)

	reply, err := c.Query(context.Background(), "llava", "count things", base64.StdEncoding.EncodeToString([]byte("img")))
	require.NoError(t, err)
	assert.Equal(t, `{"count":3}`, reply)
}

func TestQueryBadBase64(t *testing.T) {
	c, err := NewClient("http://localhost:11434")
	require.NoError(t, err)

	_, err = c.Query(context.Background(), "llava", "p", "***")
	assert.ErrorContains(t, err, "base64")
}

func TestModelOptions(t *testing.T) {
	opts := modelOptions("openbmb/minicpm-v4.5")
	assert.Equal(t, 4096, opts["num_ctx"])

	opts = modelOptions("llava")
	assert.NotContains(t, opts, "num_ctx")
	assert.Equal(t, 0.1, opts["temperature"])
}
