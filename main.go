package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

// Exit statuses.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// version is the application version, set via ldflags.
var version = "dev"

func main() {
	os.Exit(execute(os.Args[1:], os.Stdout, os.Stderr))
}

// execute runs the command line and maps the outcome to an exit status.
func execute(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	if err == nil {
		return exitOK
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	var ue *usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", cmd.CommandPath())
		return exitUsage
	}
	return exitFailure
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   appName + " [EXTENSIONS...]",
		Short: "Count tokens, lines and files per file extension in a directory tree.",
		Long: `tokensum walks a directory tree, counts the tokens and lines of every file
whose extension is listed (all files when none are given), and prints one
summary line per extension, largest token count first.

Examples:
  tokensum rs ts          # Rust and TypeScript files under the current directory
  tokensum -d ~/src/app   # every file under ~/src/app`,
		Version:       version,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), cfgFile, args)
			if err != nil {
				return err
			}
			logger := newLogger(stderr, cfg.LogFormat, cfg.Verbose)
			if cfg.configWarning != nil {
				logger.Warn("config file not loaded", "error", cfg.configWarning)
			}
			return run(cfg, stdout, stderr, logger)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	flags := cmd.Flags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/tokensum/config.toml)")

	// Traversal
	flags.StringP("dir", "d", ".", "Root directory (or git URL) to scan")
	flags.Bool("skip-hidden", false, "Skip hidden files and directories")
	flags.Bool("gitignore", false, "Respect the root .gitignore file")
	flags.StringP("exclude", "e", "", "Patterns to exclude (comma-separated, e.g. *.min.js,vendor)")
	flags.Int("max-depth", 0, "Maximum directory depth to traverse (0 for no limit)")

	// Processing
	flags.IntP("threads", "t", 0, "Number of threads for parallel processing (0 for auto)")
	flags.String("tokenizer", tokenizerTiktoken, "Tokenizer to use: tiktoken, huggingface or chars")
	flags.String("model", "", "Model or encoding name for the tokenizer (e.g., cl100k_base, gpt-4o, gpt2)")
	flags.String("tokenizer-file", "", "Path to local huggingface tokenizer.json")

	// Output
	flags.StringP("output", "o", outputText, "Output format: text, table, json or yaml")
	flags.String("locale", defaultLocale, "Locale for number formatting (e.g., en, de, none)")
	flags.StringP("file", "f", "", "Save output to specified file")
	flags.BoolP("clipboard", "c", false, "Copy output to clipboard")
	flags.Bool("progress", false, "Show a progress bar on stderr")
	flags.BoolP("verbose", "v", false, "Log debug diagnostics to stderr")
	flags.String("log-format", logFormatText, "Diagnostics format: text or json")

	return cmd
}

// run performs one full scan with a resolved configuration.
func run(cfg *Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	nf, err := NewNumberFormat(cfg.Locale)
	if err != nil {
		return &ConfigError{Err: err}
	}

	root := cfg.Dir
	if isGitURL(root) && !isDir(root) {
		tempDir, err := cloneGitRepo(root, stderr, logger)
		if err != nil {
			return err
		}
		defer func() {
			logger.Debug("cleaning up temporary directory", "dir", tempDir)
			_ = os.RemoveAll(tempDir)
		}()
		root = tempDir
	}

	// Reject a bad root before paying for tokenizer setup.
	if !isDir(root) {
		if _, err := os.Stat(root); err != nil {
			return &ConfigError{Err: fmt.Errorf("error accessing root %s: %w", root, err)}
		}
		return &ConfigError{Err: fmt.Errorf("root %s: %w", root, ErrNotDirectory)}
	}

	tokenizer, err := newTokenizer(cfg, logger)
	if err != nil {
		return fmt.Errorf("error initializing tokenizer: %w", err)
	}
	defer tokenizer.Close()

	engine := &Engine{
		Tokenizer: tokenizer,
		Workers:   cfg.Threads,
		Logger:    logger,
	}
	if cfg.Progress {
		engine.Progress = newBarProgress(stderr)
	}

	logger.Debug("scanning", "root", root, "extensions", strings.Join(cfg.Extensions, ","), "tokenizer", tokenizer.Name())
	agg, err := engine.Run(root, cfg.discoverOptions())
	if err != nil {
		return err
	}

	report := BuildReport(agg)
	var out bytes.Buffer
	if err := report.Render(&out, cfg.Output, nf); err != nil {
		return fmt.Errorf("error rendering report: %w", err)
	}

	switch {
	case cfg.OutputFile != "":
		if err := os.WriteFile(cfg.OutputFile, out.Bytes(), 0o644); err != nil {
			return fmt.Errorf("error writing to file %s: %w", cfg.OutputFile, err)
		}
		logger.Info("output saved", "file", cfg.OutputFile)
	case cfg.Clipboard:
		if err := clipboard.WriteAll(out.String()); err != nil {
			logger.Warn("error writing to clipboard, printing instead", "error", err)
			_, err = stdout.Write(out.Bytes())
			return err
		}
		logger.Info("output copied to clipboard")
	default:
		_, err = stdout.Write(out.Bytes())
		return err
	}
	return nil
}

// isDir reports whether path exists and is a directory.
func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
