package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b_stew.txt"), "Beef Stew recipe text")
	writeFile(t, filepath.Join(root, "a_pasta.md"), "Pasta recipe text")
	writeFile(t, filepath.Join(root, "sub", "copy.txt"), "Beef Stew recipe text")
	writeFile(t, filepath.Join(root, "scan.JPG"), "not really a jpeg")
	writeFile(t, filepath.Join(root, "notes.csv"), "ignored")
	writeFile(t, filepath.Join(root, ".hidden.txt"), "ignored")
	writeFile(t, filepath.Join(root, ".cache", "x.txt"), "ignored")

	results, stats, err := LoadDirectory(context.Background(), root, Options{Contributor: "Janet"}, nil)
	require.NoError(t, err)

	assert.Equal(t, uint32(4), stats.Matched)
	assert.Equal(t, uint32(4), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Zero(t, stats.Failed)

	require.Len(t, results, 4)
	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, filepath.Base(r.Path))
	}
	assert.Equal(t, []string{"a_pasta.md", "b_stew.txt", "scan.JPG", "copy.txt"}, names)

	dup := results[3]
	assert.True(t, dup.Deduplicated)
	assert.Equal(t, filepath.Join(root, "b_stew.txt"), dup.DuplicateOf)

	docs := Documents(results)
	require.Len(t, docs, 3)
	assert.Equal(t, "a_pasta.md", docs[0].Filename)
	assert.Equal(t, "text/markdown", docs[0].ContentType)
	assert.Equal(t, "Janet", docs[0].Contributor)
	assert.Equal(t, "image/jpeg", docs[2].ContentType)
	assert.Len(t, docs[1].SHA256, 64)
	assert.Equal(t, "Beef Stew recipe text", string(docs[1].Content))
}

func TestLoadDirectory_Options(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "small")
	writeFile(t, filepath.Join(root, "b.pdf"), "this one is larger than the cap")

	results, stats, err := LoadDirectory(context.Background(), root, Options{MaxFileSize: 10}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.Failed)
	require.Len(t, results, 2)
	assert.Contains(t, results[1].Err, "file too large")
	assert.Len(t, Documents(results), 1)

	_, stats, err = LoadDirectory(context.Background(), root, Options{Extensions: []string{".PDF"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.Matched)
}

func TestLoadDirectory_Errors(t *testing.T) {
	_, _, err := LoadDirectory(context.Background(), " ", Options{}, nil)
	require.Error(t, err)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.txt"), "x")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = LoadDirectory(ctx, root, Options{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/a/.git"))
	assert.False(t, IsHidden("."))
	assert.False(t, IsHidden("/a/b.txt"))
	assert.True(t, AllowedExt(".HEIC", nil))
	assert.False(t, AllowedExt("csv", nil))
	assert.False(t, AllowedExt("txt", extSet([]string{"pdf"})))
}

func TestWatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing.txt"), "hello")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := Watch(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(root, "existing.txt"), p)
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan not emitted")
	}

	writeFile(t, filepath.Join(root, "ignored.csv"), "x")
	writeFile(t, filepath.Join(root, "new.txt"), "fresh recipe")

	select {
	case p := <-events:
		assert.Equal(t, filepath.Join(root, "new.txt"), p)
	case <-time.After(2 * time.Second):
		t.Fatal("new file not emitted")
	}

	cancel()
	for range events {
	}
}

func TestWatch_NoRoots(t *testing.T) {
	_, _, err := Watch(context.Background(), WatchConfig{}, nil)
	require.Error(t, err)
}
