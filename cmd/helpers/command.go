package helpers

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/zinc-sig/pulse/cmd/config"
	"github.com/zinc-sig/pulse/internal/analyzer"
	"github.com/zinc-sig/pulse/internal/logging"
	"github.com/zinc-sig/pulse/internal/settings"
)

// Changed reports whether a flag was set explicitly on the command line.
type Changed func(name string) bool

// ParseTimeout parses and validates a timeout duration string
func ParseTimeout(timeoutStr string) (time.Duration, error) {
	if timeoutStr == "" {
		return 0, nil
	}

	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout duration: %w", err)
	}

	if timeout <= 0 {
		return 0, fmt.Errorf("timeout must be positive")
	}

	return timeout, nil
}

// ResolveSettings layers defaults, .env, the YAML file, the environment and
// explicitly set flags, in that order, and validates the result.
func ResolveSettings(global *config.GlobalFlags, flags *config.AnalyzerFlags, changed Changed) (*settings.Settings, error) {
	if global.EnvFile != "" {
		if err := settings.LoadDotEnv(global.EnvFile); err != nil {
			return nil, err
		}
	}

	s, err := settings.Load(global.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if changed("timeout") {
		if _, err := ParseTimeout(flags.TimeoutStr); err != nil {
			return nil, err
		}
		s.Analyzer.Timeout = flags.TimeoutStr
	}
	if changed("analyzer-command") {
		s.Analyzer.Command = flags.Command
	}
	if changed("analyzer-arg") {
		s.Analyzer.Args = flags.Args
	}
	if changed("analyzer-dir") {
		s.Analyzer.Dir = flags.Dir
	}
	if changed("analyzer-url") {
		s.Analyzer.URL = flags.URL
	}
	if changed("log-level") {
		s.Log.Level = global.LogLevel
	}
	if changed("log-format") {
		s.Log.Format = global.LogFormat
	}
	if global.Verbose {
		s.Log.Level = "debug"
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

// NewLogger builds the logger described by s.
func NewLogger(s *settings.Settings) (*zap.Logger, error) {
	return logging.New(s.Log.Level, s.Log.Format)
}

// BuildAnalyzer returns the remote analyzer when a URL is configured and the
// local process analyzer otherwise, along with the effective timeout.
func BuildAnalyzer(s *settings.Settings, logger *zap.Logger) (analyzer.Analyzer, time.Duration, error) {
	timeout, err := s.AnalyzerTimeout()
	if err != nil {
		return nil, 0, err
	}

	if s.Analyzer.URL != "" {
		return analyzer.NewRemoteAnalyzer(analyzer.RemoteConfig{
			URL:     s.Analyzer.URL,
			Timeout: timeout,
		}, logger), timeout, nil
	}

	return analyzer.NewProcessAnalyzer(analyzer.ProcessConfig{
		Command: s.Analyzer.Command,
		Args:    s.Analyzer.Args,
		Dir:     s.Analyzer.Dir,
		Timeout: timeout,
	}, logger), timeout, nil
}
