package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvBackendURL = "SYLLABUS_BACKEND_URL"
	EnvLogLevel   = "SYLLABUS_LOG_LEVEL"
)

// Config holds all configurable client settings.
type Config struct {
	BackendURL         string        `yaml:"backend_url"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	LogLevel           string        `yaml:"log_level"` // debug | info | warn | error
	LogFile            string        `yaml:"log_file"`  // "" means the XDG state dir
	RecognizerCommand  string        `yaml:"recognizer_command"`
	SynthesizerCommand string        `yaml:"synthesizer_command"`
	MarkdownStyle      string        `yaml:"markdown_style"` // glamour style; "" picks from the terminal
	InboxPatterns      []string      `yaml:"inbox_patterns"`
}

// Defaults returns the default configuration.
func Defaults() Config {
	return Config{
		BackendURL:     "http://127.0.0.1:8000",
		RequestTimeout: 2 * time.Minute,
		LogLevel:       "info",
		InboxPatterns:  []string{"*.pdf"},
	}
}

// Dir is the global configuration directory, ~/.config/syllabus.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "syllabus"), nil
}

// LoadGlobal reads ~/.config/syllabus/config.yaml.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return loadFile(filepath.Join(dir, "config.yaml"), true)
}

// LoadProject reads .syllabus.yaml in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".syllabus.yaml", false)
}

func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Load resolves the effective configuration: a .env file in the working
// directory, then the global file, then the project file, then environment
// overrides. The result is validated.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	global, err := LoadGlobal()
	if err != nil {
		return Config{}, err
	}
	project, err := LoadProject()
	if err != nil {
		return Config{}, err
	}
	cfg := Merge(global, project)
	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	for _, c := range []*Config{global, project} {
		if c == nil {
			continue
		}
		if c.BackendURL != "" {
			result.BackendURL = c.BackendURL
		}
		if c.RequestTimeout != 0 {
			result.RequestTimeout = c.RequestTimeout
		}
		if c.LogLevel != "" {
			result.LogLevel = c.LogLevel
		}
		if c.LogFile != "" {
			result.LogFile = c.LogFile
		}
		if c.RecognizerCommand != "" {
			result.RecognizerCommand = c.RecognizerCommand
		}
		if c.SynthesizerCommand != "" {
			result.SynthesizerCommand = c.SynthesizerCommand
		}
		if c.MarkdownStyle != "" {
			result.MarkdownStyle = c.MarkdownStyle
		}
		if len(c.InboxPatterns) > 0 {
			result.InboxPatterns = c.InboxPatterns
		}
	}
	return result
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBackendURL); ok && v != "" {
		c.BackendURL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
}

// Validate checks the settings that would otherwise fail late.
func (c Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend_url %q: want http(s)://host[:port]", c.BackendURL)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("invalid request_timeout %s: must not be negative", c.RequestTimeout)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q: want debug, info, warn or error", c.LogLevel)
	}
	return nil
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
