package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), "")
	assert.ErrorContains(t, err, "api key")
}

func TestQueryBadBase64(t *testing.T) {
	c, err := NewClient(context.Background(), "test-key")
	if err != nil {
		t.Skipf("gemini client unavailable: %v", err)
	}

	_, err = c.Query(context.Background(), "", "count", "***")
	assert.ErrorContains(t, err, "base64")
}
