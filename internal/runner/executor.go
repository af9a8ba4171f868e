package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Status is the terminal state of one execution.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusTimeout  Status = "timeout"
	StatusCanceled Status = "canceled"
)

// waitDelay bounds how long Wait keeps copying output after the process
// has exited or been killed, e.g. when a grandchild still holds the pipes.
const waitDelay = 2 * time.Second

// killGroup terminates the process and everything it spawned.
var killGroup = killProcess

type Config struct {
	Command string
	Args    []string
	Dir     string
	Env     []string // appended to the parent environment
	Timeout time.Duration
	Logger  *zap.Logger
}

// FullCommand returns the command line as a single space separated string.
func (c *Config) FullCommand() string {
	if len(c.Args) == 0 {
		return c.Command
	}
	return c.Command + " " + strings.Join(c.Args, " ")
}

type Result struct {
	Command       string
	Status        Status
	ExitCode      int // -1 when the process was killed
	Signal        int // signal that terminated the process, 0 if it exited
	Stdout        []byte
	Stderr        []byte
	ExecutionTime int64 // milliseconds
}

// Execute runs the command to completion, capturing stdout and stderr into
// separate buffers. Completion races process exit against the timeout and
// ctx: the first event to fire decides the result, and a timed out or
// canceled process is killed and reaped before Execute returns.
//
// An error is returned only when the process could not be started or waited on.
func Execute(ctx context.Context, config *Config) (*Result, error) {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	cmd := exec.Command(config.Command, config.Args...)
	cmd.Dir = config.Dir
	if len(config.Env) > 0 {
		cmd.Env = append(os.Environ(), config.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay
	configureProcessGroup(cmd)

	fullCommand := config.FullCommand()

	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start command: %w", err)
	}
	logger.Debug("process started",
		zap.String("command", fullCommand),
		zap.Int("pid", cmd.Process.Pid),
		zap.Duration("timeout", config.Timeout))

	done := newCompletion()
	reaped := make(chan struct{})
	var waitErr error

	go func() {
		waitErr = cmd.Wait()
		close(reaped)
		done.resolve(endExited)
	}()

	kill := func(reason ending) func() {
		return func() {
			if !done.resolve(reason) {
				return
			}
			if err := killGroup(cmd); err != nil {
				logger.Warn("failed to kill process group", zap.Int("pid", cmd.Process.Pid), zap.Error(err))
				// Kill on our own unreaped child only fails once it has
				// exited, in which case Wait is about to return anyway.
				if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
					logger.Error("failed to kill process", zap.Int("pid", cmd.Process.Pid), zap.Error(err))
				}
				return
			}
			logger.Debug("process killed", zap.Int("pid", cmd.Process.Pid), zap.Stringer("reason", reason))
		}
	}

	var timer *time.Timer
	if config.Timeout > 0 {
		timer = time.AfterFunc(config.Timeout, kill(endTimedOut))
	}
	stopCancel := context.AfterFunc(ctx, kill(endCanceled))

	end := done.wait()
	if timer != nil {
		timer.Stop()
	}
	stopCancel()

	// The killing path resolves before the process is gone; wait for the reap.
	<-reaped
	executionTime := time.Since(startTime).Milliseconds()

	result := &Result{
		Command:       fullCommand,
		Stdout:        stdout.Bytes(),
		Stderr:        stderr.Bytes(),
		ExecutionTime: executionTime,
	}

	switch end {
	case endTimedOut:
		result.Status = StatusTimeout
		result.ExitCode = -1
		return result, nil
	case endCanceled:
		result.Status = StatusCanceled
		result.ExitCode = -1
		return result, nil
	}

	exitCode := 0
	if waitErr != nil {
		var exitError *exec.ExitError
		switch {
		case errors.As(waitErr, &exitError):
			exitCode, result.Signal = exitStatus(exitError)
		case errors.Is(waitErr, exec.ErrWaitDelay):
			// exited, but a descendant kept the output pipes open
			exitCode = cmd.ProcessState.ExitCode()
		default:
			return nil, fmt.Errorf("failed to wait for command: %w", waitErr)
		}
	}

	result.ExitCode = exitCode
	if exitCode == 0 {
		result.Status = StatusSuccess
	} else {
		result.Status = StatusFailed
	}
	return result, nil
}

// exitStatus returns the exit code and, for a process terminated by a
// signal, the signal number. A signaled process has exit code -1.
func exitStatus(exitError *exec.ExitError) (int, int) {
	status, ok := exitError.Sys().(syscall.WaitStatus)
	if !ok {
		return 1, 0
	}
	if status.Signaled() {
		return -1, int(status.Signal())
	}
	return status.ExitStatus(), 0
}
