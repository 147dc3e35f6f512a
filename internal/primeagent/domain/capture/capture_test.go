package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngestor_WritesFrontmatterFile(t *testing.T) {
	dir := t.TempDir()
	ing := NewIngestor(dir, "inbox", nil, nil)

	path, err := ing.Ingest(context.Background(), Request{
		Source: "iphone",
		Input:  "voice",
		Text:   "buy milk",
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "inbox"), filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "---\n")
	assert.Contains(t, content, "source: iphone")
	assert.Contains(t, content, "input: voice")
	assert.Contains(t, content, "processed: false")
	assert.Contains(t, content, "buy milk")
}

func TestIngestor_ContextIsIncludedWhenPresent(t *testing.T) {
	dir := t.TempDir()
	ing := NewIngestor(dir, "inbox", nil, nil)

	path, err := ing.Ingest(context.Background(), Request{
		Source:  "web",
		Text:    "note",
		Context: map[string]interface{}{"app": "safari"},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "app: safari")
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "buy-milk-today", slugify("Buy Milk, Today!"))
	assert.Equal(t, "", slugify("***"))
}
