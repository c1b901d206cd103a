package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
	hf "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Tokenizer turns text into a token count.
type Tokenizer interface {
	CountTokens(text string) (int, error)
	Name() string
	Close()
}

// ErrTokenize marks a tokenizer that failed or panicked on some input.
var ErrTokenize = errors.New("tokenizer fault")

const (
	tokenizerTiktoken    = "tiktoken"
	tokenizerHuggingFace = "huggingface"
	tokenizerChars       = "chars"

	defaultTiktokenEncoding = "cl100k_base"
	defaultHFModel          = "gpt2"
	charsPerToken           = 4
)

// --- Tiktoken Wrapper ---

type TiktokenWrapper struct {
	ttk  *tiktoken.Tiktoken
	name string
}

func (w *TiktokenWrapper) CountTokens(text string) (int, error) {
	if w.ttk == nil {
		return 0, errors.New("tiktoken encoding not loaded")
	}
	// Special tokens in the text are counted as the single tokens they are.
	return len(w.ttk.Encode(text, []string{"all"}, nil)), nil
}

func (w *TiktokenWrapper) Name() string { return w.name }

func (w *TiktokenWrapper) Close() {}

// --- HuggingFace (sugarme) Wrapper ---

type HFTokenizerWrapper struct {
	htk  *hf.Tokenizer
	name string
}

func (w *HFTokenizerWrapper) CountTokens(text string) (int, error) {
	if w.htk == nil {
		return 0, errors.New("huggingface tokenizer not loaded")
	}
	en, err := w.htk.EncodeSingle(text)
	if err != nil {
		return 0, err
	}
	return len(en.Ids), nil
}

func (w *HFTokenizerWrapper) Name() string { return w.name }

func (w *HFTokenizerWrapper) Close() {}

// --- Character estimator ---

// CharEstimator approximates tokens as ceil(runes / perToken). It needs no
// vocabulary download.
type CharEstimator struct {
	perToken int
}

func (c CharEstimator) CountTokens(text string) (int, error) {
	per := c.perToken
	if per <= 0 {
		per = charsPerToken
	}
	n := utf8.RuneCountInString(text)
	return (n + per - 1) / per, nil
}

func (c CharEstimator) Name() string { return tokenizerChars }

func (c CharEstimator) Close() {}

// --- Failure boundary ---

// countTokens runs the tokenizer on text and reports any failure as an
// ErrTokenize error. A panic inside the tokenizer is converted the same way,
// so a single bad input can never take the process down.
func countTokens(tk Tokenizer, text string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("%w: panic: %v", ErrTokenize, r)
		}
	}()

	n, err = tk.CountTokens(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTokenize, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative count %d", ErrTokenize, n)
	}
	return n, nil
}

// --- Tokenizer Loading Logic ---

// newTokenizer builds the tokenizer selected in cfg.
func newTokenizer(cfg *Config, logger *slog.Logger) (Tokenizer, error) {
	logger.Debug("initializing tokenizer",
		"type", cfg.Tokenizer, "model", cfg.Model, "file", cfg.TokenizerFile)

	switch strings.ToLower(cfg.Tokenizer) {
	case tokenizerTiktoken:
		return loadTiktoken(cfg.Model, logger)
	case tokenizerHuggingFace:
		return loadHuggingFace(cfg.Model, cfg.TokenizerFile, logger)
	case tokenizerChars:
		return CharEstimator{perToken: charsPerToken}, nil
	default:
		return nil, &ConfigError{Err: fmt.Errorf("unsupported tokenizer type %q: use %s, %s or %s",
			cfg.Tokenizer, tokenizerTiktoken, tokenizerHuggingFace, tokenizerChars)}
	}
}

// loadTiktoken resolves model either as a model name (gpt-4o) or as an
// encoding name (cl100k_base). Empty means cl100k_base.
func loadTiktoken(model string, logger *slog.Logger) (Tokenizer, error) {
	if model == "" {
		model = defaultTiktokenEncoding
	}

	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Debug("not a tiktoken model name, trying as encoding", "model", model, "error", err)
		tke, err = tiktoken.GetEncoding(model)
		if err != nil {
			return nil, fmt.Errorf("failed to get tiktoken encoding %q: %w", model, err)
		}
	}
	return &TiktokenWrapper{ttk: tke, name: tokenizerTiktoken + "/" + model}, nil
}

func loadHuggingFace(model, file string, logger *slog.Logger) (Tokenizer, error) {
	if file != "" {
		logger.Info("loading huggingface tokenizer from file", "file", file)
		ttk, err := pretrained.FromFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer from file %s: %w", file, err)
		}
		return &HFTokenizerWrapper{htk: ttk, name: tokenizerHuggingFace + "/" + file}, nil
	}

	if model == "" {
		model = defaultHFModel
	}
	logger.Info("loading huggingface tokenizer (this may download files)", "model", model)

	configFilePath, err := hf.CachedPath(model, "tokenizer.json")
	if err != nil {
		return nil, fmt.Errorf("failed to get cache path for model %s: %w", model, err)
	}

	ttk, err := pretrained.FromFile(configFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load pretrained tokenizer for model %s (from %s): %w", model, configFilePath, err)
	}
	return &HFTokenizerWrapper{htk: ttk, name: tokenizerHuggingFace + "/" + model}, nil
}
