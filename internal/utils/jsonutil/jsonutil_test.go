package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupString(t *testing.T) {
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"video":{"url":"https://v.mp4"},"images":[{"url":"https://i.png"}]}`), &payload))

	assert.Equal(t, "https://v.mp4", LookupString(payload, "video", "url"))
	assert.Equal(t, "https://i.png", LookupString(payload, "images", 0, "url"))
	assert.Empty(t, LookupString(payload, "images", 3, "url"))
	assert.Empty(t, LookupString(payload, "missing"))
	assert.Empty(t, LookupString(nil, "video"))
}

func TestStructToMap(t *testing.T) {
	out, err := StructToMap(struct {
		Title    string `json:"title"`
		Duration int    `json:"duration_seconds"`
	}{Title: "Rise", Duration: 8})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"title": "Rise", "duration_seconds": float64(8)}, out)

	_, err = StructToMap([]string{"not", "an", "object"})
	assert.Error(t, err)
}
