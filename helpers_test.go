package main

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// wordTokenizer counts whitespace-separated words. It fails on text holding
// "FAIL" and panics on text holding "BOOM".
type wordTokenizer struct{}

func (wordTokenizer) CountTokens(text string) (int, error) {
	if strings.Contains(text, "BOOM") {
		panic("vocabulary exploded")
	}
	if strings.Contains(text, "FAIL") {
		return 0, errors.New("cannot encode")
	}
	return len(strings.Fields(text)), nil
}

func (wordTokenizer) Name() string { return "words" }

func (wordTokenizer) Close() {}

// syncBuffer is a bytes.Buffer safe for concurrent log writes.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// writeTree creates files (relative path -> content) under a fresh temp dir.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newTestEngine(workers int) *Engine {
	return &Engine{Tokenizer: wordTokenizer{}, Workers: workers, Logger: discardLogger()}
}
