package analyzer

import (
	"context"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/zinc-sig/pulse/internal/runner"
)

// DefaultTimeout bounds a single analyzer invocation.
const DefaultTimeout = 30 * time.Second

// ProcessConfig describes how to start the local analyzer program. Args are
// placed before the request's positional arguments, e.g. a script path.
type ProcessConfig struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration
}

// ProcessAnalyzer runs the analyzer as a local subprocess, one per call.
type ProcessAnalyzer struct {
	config ProcessConfig
	logger *zap.Logger
}

func NewProcessAnalyzer(config ProcessConfig, logger *zap.Logger) *ProcessAnalyzer {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessAnalyzer{config: config, logger: logger}
}

// RunnerConfig returns the runner configuration used for req.
func (p *ProcessAnalyzer) RunnerConfig(req Request) *runner.Config {
	return p.runnerConfig(req.Args())
}

func (p *ProcessAnalyzer) Analyze(ctx context.Context, req Request) *Result {
	return p.invoke(ctx, req.Ticker, p.runnerConfig(req.Args()))
}

// Probe invokes the analyzer's health command.
func (p *ProcessAnalyzer) Probe(ctx context.Context) *Result {
	return p.invoke(ctx, "", p.runnerConfig([]string{"health"}))
}

func (p *ProcessAnalyzer) runnerConfig(args []string) *runner.Config {
	return &runner.Config{
		Command: p.config.Command,
		Args:    append(slices.Clone(p.config.Args), args...),
		Dir:     p.config.Dir,
		Env:     p.config.Env,
		Timeout: p.config.Timeout,
		Logger:  p.logger,
	}
}

func (p *ProcessAnalyzer) invoke(ctx context.Context, ticker string, config *runner.Config) *Result {
	run, err := runner.Execute(ctx, config)
	if err != nil {
		p.logger.Error("analyzer invocation failed", zap.String("command", config.FullCommand()), zap.Error(err))
		return &Result{
			Kind:       KindProcessFailure,
			Ticker:     ticker,
			Command:    config.FullCommand(),
			ExitCode:   -1,
			Stderr:     err.Error(),
			StartError: err.Error(),
		}
	}
	return FromRun(ticker, run, config.Timeout)
}

// FromRun maps a finished runner execution onto an analyzer outcome.
func FromRun(ticker string, run *runner.Result, timeout time.Duration) *Result {
	result := &Result{
		Ticker:   ticker,
		Command:  run.Command,
		Duration: time.Duration(run.ExecutionTime) * time.Millisecond,
	}

	switch run.Status {
	case runner.StatusTimeout:
		result.Kind = KindTimeout
		result.Reason = ReasonDeadline
		result.Timeout = timeout
		result.ExitCode = -1
		return result
	case runner.StatusCanceled:
		result.Kind = KindTimeout
		result.Reason = ReasonCanceled
		result.Timeout = timeout
		result.ExitCode = -1
		return result
	case runner.StatusFailed:
		result.Kind = KindProcessFailure
		result.ExitCode = run.ExitCode
		result.Signal = run.Signal
		result.Stderr = string(run.Stderr)
		return result
	}

	return fromOutput(result, run.Stdout)
}
