package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

var (
	// ErrOpen marks a file that could not be opened or read.
	ErrOpen = errors.New("cannot read file")
	// ErrDecode marks a file whose content is not valid UTF-8 text.
	ErrDecode = errors.New("file is not valid UTF-8")
)

// ComputeStats reads one candidate file and counts its lines and tokens.
//
// The returned stats are always usable. When err is non-nil (wrapping
// ErrOpen, ErrDecode or ErrTokenize) the file still counts as one file with
// zero tokens and lines.
func ComputeStats(rec FileRecord, tk Tokenizer) (FileStats, error) {
	content, err := readText(rec.Path)
	if err != nil {
		return failedFile, err
	}

	tokens, err := countTokens(tk, content)
	if err != nil {
		return failedFile, fmt.Errorf("%s: %w", rec.Path, err)
	}

	return FileStats{
		Tokens: int64(tokens),
		Lines:  countLines(content),
		Files:  1,
	}, nil
}

// readText loads the whole file and validates it as UTF-8. The handle is
// closed before returning.
func readText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrOpen, path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrDecode, path)
	}
	return string(data), nil
}

// countLines counts '\n'-terminated segments plus a final unterminated one.
// "\r\n" endings count once.
func countLines(content string) int64 {
	if content == "" {
		return 0
	}
	n := int64(strings.Count(content, "\n"))
	if content[len(content)-1] != '\n' {
		n++
	}
	return n
}
