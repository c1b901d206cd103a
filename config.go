package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ConfigError is a fatal problem with the invocation itself: bad settings or
// an unusable root. It is reported before any file is processed.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return e.Err.Error() }

func (e *ConfigError) Unwrap() error { return e.Err }

// usageError wraps command-line parsing failures such as a flag without its
// value.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

// Sentinel validation errors.
var (
	ErrInvalidThreads   = errors.New("threads must not be negative")
	ErrInvalidMaxDepth  = errors.New("max depth must not be negative")
	ErrInvalidOutput    = errors.New("unknown output format")
	ErrInvalidLogFormat = errors.New("unknown log format")
)

const (
	appName   = "tokensum"
	envPrefix = "TOKENSUM"

	defaultLocale = "en"
)

// Config is the resolved configuration of one run.
// Precedence: defaults < config file < TOKENSUM_* env < flags.
type Config struct {
	Dir           string   `mapstructure:"dir"`
	Extensions    []string `mapstructure:"-"`
	Tokenizer     string   `mapstructure:"tokenizer"`
	Model         string   `mapstructure:"model"`
	TokenizerFile string   `mapstructure:"tokenizer_file"`
	Threads       int      `mapstructure:"threads"`
	Locale        string   `mapstructure:"locale"`
	Output        string   `mapstructure:"output"`
	OutputFile    string   `mapstructure:"file"`
	Clipboard     bool     `mapstructure:"clipboard"`
	Progress      bool     `mapstructure:"progress"`
	SkipHidden    bool     `mapstructure:"skip_hidden"`
	Gitignore     bool     `mapstructure:"gitignore"`
	Exclude       string   `mapstructure:"exclude"`
	MaxDepth      int      `mapstructure:"max_depth"`
	Verbose       bool     `mapstructure:"verbose"`
	LogFormat     string   `mapstructure:"log_format"`

	// configWarning is set when an automatically found config file could
	// not be read; the run continues with the remaining sources.
	configWarning error
}

// flagKeys maps viper keys to the flag names they are bound to.
var flagKeys = map[string]string{
	"dir":            "dir",
	"tokenizer":      "tokenizer",
	"model":          "model",
	"tokenizer_file": "tokenizer-file",
	"threads":        "threads",
	"locale":         "locale",
	"output":         "output",
	"file":           "file",
	"clipboard":      "clipboard",
	"progress":       "progress",
	"skip_hidden":    "skip-hidden",
	"gitignore":      "gitignore",
	"exclude":        "exclude",
	"max_depth":      "max-depth",
	"verbose":        "verbose",
	"log_format":     "log-format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dir", ".")
	v.SetDefault("tokenizer", tokenizerTiktoken)
	v.SetDefault("model", "")
	v.SetDefault("tokenizer_file", "")
	v.SetDefault("threads", 0)
	v.SetDefault("locale", defaultLocale)
	v.SetDefault("output", outputText)
	v.SetDefault("file", "")
	v.SetDefault("clipboard", false)
	v.SetDefault("progress", false)
	v.SetDefault("skip_hidden", false)
	v.SetDefault("gitignore", false)
	v.SetDefault("exclude", "")
	v.SetDefault("max_depth", 0)
	v.SetDefault("verbose", false)
	v.SetDefault("log_format", logFormatText)
}

// loadConfig merges defaults, the config file, environment and flags.
// cfgFile overrides the config search path when non-empty.
func loadConfig(flags *pflag.FlagSet, cfgFile string, args []string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	explicit := cfgFile != ""
	if !explicit {
		cfgFile = findConfigFile()
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, name := range flagKeys {
		if f := flags.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
			}
		}
	}

	var readErr error
	if cfgFile != "" {
		if err := v.ReadInConfig(); err != nil {
			if explicit {
				return nil, &ConfigError{Err: fmt.Errorf("failed to read config file: %w", err)}
			}
			readErr = fmt.Errorf("ignoring config file %s: %w", cfgFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("failed to unmarshal config: %w", err)}
	}
	cfg.Extensions = args
	cfg.configWarning = readErr

	if err := validateConfig(&cfg); err != nil {
		return nil, &ConfigError{Err: fmt.Errorf("invalid configuration: %w", err)}
	}
	return &cfg, nil
}

// findConfigFile returns the first config.toml in ~/.config/tokensum or the
// working directory, or "" when there is none. Only the exact name is
// considered so unrelated config.yaml or config.json files are left alone.
func findConfigFile() string {
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".config", appName))
	}
	dirs = append(dirs, ".")

	for _, dir := range dirs {
		path := filepath.Join(dir, "config.toml")
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path
		}
	}
	return ""
}

func validateConfig(cfg *Config) error {
	if cfg.Threads < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidThreads, cfg.Threads)
	}
	if cfg.MaxDepth < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxDepth, cfg.MaxDepth)
	}
	switch cfg.Output {
	case outputText, outputTable, outputJSON, outputYAML:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOutput, cfg.Output)
	}
	switch cfg.LogFormat {
	case logFormatText, logFormatJSON:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, cfg.LogFormat)
	}
	if _, err := NewNumberFormat(cfg.Locale); err != nil {
		return err
	}
	return nil
}

// discoverOptions translates the config into traversal options.
func (c *Config) discoverOptions() DiscoverOptions {
	return DiscoverOptions{
		Extensions: c.Extensions,
		Exclude:    parsePatterns(c.Exclude),
		SkipHidden: c.SkipHidden,
		Gitignore:  c.Gitignore,
		MaxDepth:   c.MaxDepth,
		Workers:    c.Threads,
	}
}
