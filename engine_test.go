package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProgress struct {
	total int
	done  atomic.Int64
	ended bool
}

func (p *countingProgress) Start(total int) { p.total = total }
func (p *countingProgress) Increment()      { p.done.Add(1) }
func (p *countingProgress) Finish()         { p.ended = true }

func TestEngine_UnreadableFileStillCounts(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.txt": "hello world"})
	// A dangling link cannot be opened, even by root.
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "b.txt")))

	agg, err := newTestEngine(4).Run(root, DiscoverOptions{Extensions: []string{"txt"}})
	require.NoError(t, err)

	assert.Equal(t, Aggregate{"txt": {Tokens: 2, Lines: 1, Files: 2}}, agg)
	assert.Equal(t, []string{"txt: 2 tokens, 1 lines, 2 files"}, BuildReport(agg).TextLines(plainFormat(t)))
}

func TestEngine_ZeroValueFieldsUseDefaults(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.txt": "hello world", "sub/b.txt": "one two three"})

	e := &Engine{Tokenizer: wordTokenizer{}}
	agg, err := e.Run(root, DiscoverOptions{Extensions: []string{"txt"}})
	require.NoError(t, err)
	assert.Equal(t, Aggregate{"txt": {Tokens: 5, Lines: 2, Files: 2}}, agg)

	files, err := Discover(root, DiscoverOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "sub/b.txt"}, relPaths(t, root, files))
}

func TestEngine_PermissionDeniedFileStillCounts(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	t.Parallel()

	root := writeTree(t, map[string]string{"a.txt": "hello world", "b.txt": "secret words"})
	require.NoError(t, os.Chmod(filepath.Join(root, "b.txt"), 0o000))

	agg, err := newTestEngine(2).Run(root, DiscoverOptions{Extensions: []string{"txt"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"txt: 2 tokens, 1 lines, 2 files"}, BuildReport(agg).TextLines(plainFormat(t)))
}

func TestEngine_TwoExtensionsWithTotal(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"x.rs": "a b c d\ne f g\nh i j",
		"y.go": "a b c\nd e",
	})

	agg, err := newTestEngine(0).Run(root, DiscoverOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"rs: 10 tokens, 3 lines, 1 files",
		"go: 5 tokens, 2 lines, 1 files",
		"Total: 15 tokens, 5 lines, 2 files",
	}, BuildReport(agg).TextLines(plainFormat(t)))
}

func TestEngine_TokenizerFaultIsIsolated(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{
		"good.md":  "one two three",
		"boom.md":  "BOOM goes the tokenizer",
		"fail.md":  "FAIL please",
		"other.go": "package other",
	})

	var logs syncBuffer
	engine := &Engine{
		Tokenizer: wordTokenizer{},
		Workers:   3,
		Logger:    slog.New(slog.NewTextHandler(&logs, nil)),
	}

	agg, err := engine.Run(root, DiscoverOptions{})
	require.NoError(t, err)

	assert.Equal(t, FileStats{Tokens: 3, Lines: 1, Files: 3}, agg["md"])
	assert.Equal(t, FileStats{Tokens: 2, Lines: 1, Files: 1}, agg["go"])
	assert.Contains(t, logs.String(), filepath.Join(root, "boom.md"))
	assert.Contains(t, logs.String(), filepath.Join(root, "fail.md"))
	assert.Contains(t, logs.String(), "level=WARN")
}

func TestEngine_FileCountMatchesDiscovery(t *testing.T) {
	t.Parallel()

	files := map[string]string{}
	for i := 0; i < 60; i++ {
		dir := []string{"a", "b/c", "d/e/f"}[i%3]
		ext := []string{"go", "rs", "txt", "md"}[i%4]
		files[filepath.Join(dir, "f"+string(rune('a'+i%26))+string(rune('0'+i/26))+"."+ext)] = "some words here"
	}
	files["bad.bin"] = "\xff\xfe"
	files["empty.go"] = ""
	root := writeTree(t, files)

	for _, filter := range [][]string{nil, {"go"}, {"rs", "bin"}} {
		discovered, err := Discover(root, DiscoverOptions{Extensions: filter, Workers: 4}, discardLogger())
		require.NoError(t, err)

		agg, err := newTestEngine(5).Run(root, DiscoverOptions{Extensions: filter})
		require.NoError(t, err)

		assert.Equal(t, int64(len(discovered)), agg.total().Files, "filter=%v", filter)
	}
}

func TestEngine_IdempotentAcrossRunsAndWorkerCounts(t *testing.T) {
	t.Parallel()

	root := sampleTree(t)

	first, err := newTestEngine(1).Run(root, DiscoverOptions{})
	require.NoError(t, err)

	for _, workers := range []int{1, 2, 8, 0} {
		agg, err := newTestEngine(workers).Run(root, DiscoverOptions{})
		require.NoError(t, err)
		assert.Equal(t, first, agg, "workers=%d", workers)
		assert.Equal(t, BuildReport(first).TextLines(plainFormat(t)), BuildReport(agg).TextLines(plainFormat(t)))
	}
}

func TestEngine_EmptyFilterEqualsFullFilter(t *testing.T) {
	t.Parallel()

	root := sampleTree(t)

	all, err := newTestEngine(3).Run(root, DiscoverOptions{})
	require.NoError(t, err)

	var exts []string
	for ext := range all {
		exts = append(exts, ext)
	}
	explicit, err := newTestEngine(3).Run(root, DiscoverOptions{Extensions: exts})
	require.NoError(t, err)

	assert.Equal(t, all, explicit)
}

func TestEngine_RootNotDirectory(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"file.txt": "x"})

	agg, err := newTestEngine(2).Run(filepath.Join(root, "file.txt"), DiscoverOptions{})

	require.ErrorIs(t, err, ErrNotDirectory)
	assert.Nil(t, agg)
}

func TestEngine_ProcessReportsProgress(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string]string{"a.go": "a", "b.go": "b c", "c.rs": "d"})
	files, err := Discover(root, DiscoverOptions{Workers: 2}, discardLogger())
	require.NoError(t, err)

	prog := &countingProgress{}
	engine := newTestEngine(2)
	engine.Progress = prog

	agg := engine.Process(files)

	assert.Equal(t, 3, prog.total)
	assert.Equal(t, int64(3), prog.done.Load())
	assert.True(t, prog.ended)
	assert.Equal(t, FileStats{Tokens: 3, Lines: 2, Files: 2}, agg["go"])
}

func TestEngine_ProcessNoFiles(t *testing.T) {
	t.Parallel()

	assert.Empty(t, newTestEngine(4).Process(nil))
}
