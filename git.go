package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// isGitURL checks if the root looks like a Git repository URL rather than a
// local directory.
func isGitURL(input string) bool {
	return (strings.HasSuffix(input, ".git") && strings.Contains(input, "://")) ||
		strings.HasPrefix(input, "git@")
}

// cloneGitRepo shallow-clones url into a temporary directory and returns its
// path. The caller removes the directory.
func cloneGitRepo(url string, progress io.Writer, logger *slog.Logger) (string, error) {
	tempDir, err := os.MkdirTemp("", appName+"-git-")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary directory: %w", err)
	}

	logger.Info("cloning git repository", "url", url, "dir", tempDir)

	_, err = git.PlainClone(tempDir, false, &git.CloneOptions{
		URL:           url,
		Progress:      progress,
		Depth:         1,
		ReferenceName: plumbing.HEAD,
		SingleBranch:  true,
	})
	if err != nil {
		_ = os.RemoveAll(tempDir)
		return "", &ConfigError{Err: fmt.Errorf("failed to clone repository '%s': %w", url, err)}
	}

	logger.Debug("finished cloning", "url", url)
	return tempDir, nil
}
