package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gitignore "github.com/monochromegane/go-gitignore"
	"golang.org/x/sync/errgroup"
)

// ErrNotDirectory is returned when the traversal root is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// DiscoverOptions controls which entries Discover reports.
type DiscoverOptions struct {
	Extensions []string // Empty matches every file
	Exclude    []string // Glob patterns matched against base names
	SkipHidden bool
	Gitignore  bool // Honour <root>/.gitignore
	MaxDepth   int  // 0 for no limit; 1 keeps only files directly in root
	Workers    int  // Concurrent directory listings; <= 0 means 1
}

// discoverer holds the state of one Discover call.
type discoverer struct {
	opts    DiscoverOptions
	exts    map[string]bool
	ignore  gitignore.IgnoreMatcher
	logger  *slog.Logger
	g       errgroup.Group
	mu      sync.Mutex
	files   []FileRecord
	skipped int
}

// Discover recursively lists root and returns every file that passes the
// filters in opts. Subdirectories are listed concurrently, with at most
// opts.Workers listings outstanding; once that limit is reached the caller
// lists the subdirectory itself. A directory that cannot be read is skipped
// along with everything under it. Symlinks to directories are not followed.
func Discover(root string, opts DiscoverOptions, logger *slog.Logger) ([]FileRecord, error) {
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("error accessing root %s: %w", root, err)}
	}
	if !info.IsDir() {
		return nil, &ConfigError{Err: fmt.Errorf("root %s: %w", root, ErrNotDirectory)}
	}

	for _, pattern := range opts.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return nil, &ConfigError{Err: fmt.Errorf("invalid exclude pattern '%s': %w", pattern, err)}
		}
	}

	d := &discoverer{
		opts:   opts,
		exts:   extensionSet(opts.Extensions),
		logger: logger,
	}
	d.g.SetLimit(max(opts.Workers, 1))

	if opts.Gitignore {
		gitIgnorePath := filepath.Join(root, ".gitignore")
		if _, err := os.Stat(gitIgnorePath); err == nil {
			matcher, err := gitignore.NewGitIgnore(gitIgnorePath)
			if err != nil {
				logger.Warn("could not parse .gitignore", "path", gitIgnorePath, "error", err)
			} else {
				d.ignore = matcher
			}
		}
	}

	d.walk(root, 1)
	_ = d.g.Wait() // walk never returns an error

	if d.skipped > 0 {
		logger.Debug("directories skipped", "count", d.skipped)
	}
	return d.files, nil
}

// walk lists dir (at the given depth below root) and schedules its
// subdirectories.
func (d *discoverer) walk(dir string, depth int) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		d.logger.Debug("skipping unreadable directory", "path", dir, "error", err)
		d.mu.Lock()
		d.skipped++
		d.mu.Unlock()
		return
	}

	var found []FileRecord
	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		if d.opts.SkipHidden && isHidden(name) {
			continue
		}

		kind := classify(path, entry)
		if kind == entryOther {
			continue
		}
		isDir := kind == entryDir

		if d.ignore != nil && d.ignore.Match(path, isDir) {
			continue
		}
		if matchesAnyPattern(name, d.opts.Exclude) {
			continue
		}

		if isDir {
			if d.opts.MaxDepth > 0 && depth >= d.opts.MaxDepth {
				continue
			}
			sub := path
			if !d.g.TryGo(func() error {
				d.walk(sub, depth+1)
				return nil
			}) {
				d.walk(sub, depth+1)
			}
			continue
		}

		ext := extensionOf(name)
		if len(d.exts) > 0 && !d.exts[ext] {
			continue
		}
		found = append(found, FileRecord{Path: path, Extension: ext})
	}

	if len(found) > 0 {
		d.mu.Lock()
		d.files = append(d.files, found...)
		d.mu.Unlock()
	}
}

type entryKind int

const (
	entryFile entryKind = iota
	entryDir
	entryOther
)

// classify decides how a directory entry is treated. Real directories are
// walked. Symlinks are never followed into directories; a symlink to
// anything else, even a dangling one, is a file. FIFOs, sockets and devices
// are ignored since opening them may block or never end.
func classify(path string, entry fs.DirEntry) entryKind {
	mode := entry.Type()
	switch {
	case mode.IsDir():
		return entryDir
	case mode.IsRegular():
		return entryFile
	case mode&fs.ModeSymlink != 0:
		info, err := os.Stat(path)
		if err != nil {
			return entryFile
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return entryOther
		}
		return entryFile
	default:
		return entryOther
	}
}

// extensionOf returns the text after the last '.' of a base name.
func extensionOf(name string) string {
	return strings.TrimPrefix(filepath.Ext(name), ".")
}

// extensionSet normalizes user-supplied extensions: ".go" and "go" are the
// same filter. Matching is case-sensitive.
func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[strings.TrimPrefix(e, ".")] = true
	}
	return set
}

// parsePatterns splits a comma-separated string of patterns into a slice.
func parsePatterns(patterns string) []string {
	if patterns == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(patterns, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// matchesAnyPattern checks if name matches any of the glob patterns.
// Patterns are validated up front by Discover.
func matchesAnyPattern(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// isHidden reports whether a base name starts with '.'.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return len(name) > 0 && name[0] == '.'
}
