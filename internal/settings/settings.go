// Package settings resolves pulse's typed configuration from defaults, a
// .env file, an optional YAML file and the environment.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort    = 8501
	DefaultTimeout = "30s"
)

// DefaultFeatures is the feature list shown on the status page.
var DefaultFeatures = []string{
	"Stock sentiment analysis from Finviz news",
	"AI-powered investment chatbot",
	"Real-time sentiment scoring for AMZN, TSLA, AAPL, MSFT",
	"Investment strategy recommendations",
	"Analysis history tracking",
	"PayPal integration for premium features",
}

type Settings struct {
	Port     int      `yaml:"port"`
	Features []string `yaml:"features"`
	Analyzer Analyzer `yaml:"analyzer"`
	Log      Log      `yaml:"log"`
}

type Analyzer struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Dir     string   `yaml:"dir"`
	Timeout string   `yaml:"timeout"`
	// URL selects the HTTP transport instead of a local process.
	URL string `yaml:"url"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() *Settings {
	return &Settings{
		Port:     DefaultPort,
		Features: append([]string(nil), DefaultFeatures...),
		Analyzer: Analyzer{
			Command: "python3",
			Args:    []string{"api_wrapper.py"},
			Timeout: DefaultTimeout,
		},
		Log: Log{Level: "info", Format: "json"},
	}
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are left alone and a missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load returns defaults overlaid with the YAML file at path. An empty path
// yields the defaults.
func Load(path string) (*Settings, error) {
	s := Default()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return s, nil
}

// ApplyEnv overrides settings from environment variables found via lookup
// (os.LookupEnv in production).
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		s.Port = port
	}
	if v, ok := lookup("PULSE_ANALYZER_COMMAND"); ok && v != "" {
		s.Analyzer.Command = v
	}
	if v, ok := lookup("PULSE_ANALYZER_ARGS"); ok {
		s.Analyzer.Args = strings.Fields(v)
	}
	if v, ok := lookup("PULSE_ANALYZER_DIR"); ok {
		s.Analyzer.Dir = v
	}
	if v, ok := lookup("PULSE_ANALYZER_TIMEOUT"); ok && v != "" {
		s.Analyzer.Timeout = v
	}
	if v, ok := lookup("PULSE_ANALYZER_URL"); ok {
		s.Analyzer.URL = v
	}
	if v, ok := lookup("PULSE_LOG_LEVEL"); ok && v != "" {
		s.Log.Level = v
	}
	if v, ok := lookup("PULSE_LOG_FORMAT"); ok && v != "" {
		s.Log.Format = v
	}
	return nil
}

// Validate reports the first invalid field.
func (s *Settings) Validate() error {
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port %d out of range", s.Port)
	}
	if s.Analyzer.URL == "" && s.Analyzer.Command == "" {
		return fmt.Errorf("analyzer command is required when no analyzer url is set")
	}
	if _, err := s.AnalyzerTimeout(); err != nil {
		return err
	}
	switch s.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q (want json or console)", s.Log.Format)
	}
	return nil
}

// AnalyzerTimeout parses Analyzer.Timeout; it must be positive.
func (s *Settings) AnalyzerTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(s.Analyzer.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid analyzer timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("analyzer timeout must be positive")
	}
	return d, nil
}
