package runner

import (
	"fmt"
	"io"
)

// PrintPreExecution prints invocation details before the process starts
func PrintPreExecution(w io.Writer, config *Config, dryRun bool) {
	header := "Pulse Analyzer Invocation"
	if dryRun {
		header = "Pulse Analyzer Invocation (DRY RUN)"
	}

	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Command: %s\n", config.FullCommand())
	if config.Dir != "" {
		fmt.Fprintf(w, "Dir:     %s\n", config.Dir)
	}
	if config.Timeout > 0 {
		fmt.Fprintf(w, "Timeout: %s\n", config.Timeout)
	}
	fmt.Fprintln(w, "----------------------------------------")

	if dryRun {
		fmt.Fprintln(w, "[DRY RUN] Analyzer would be invoked here")
		fmt.Fprintln(w, "----------------------------------------")
	}
}

// PrintPostExecution prints the outcome after the process has finished
func PrintPostExecution(w io.Writer, status string, exitCode int, executionTime int64) {
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintln(w, "Execution Results:")
	fmt.Fprintln(w, "----------------------------------------")
	fmt.Fprintf(w, "Status:         %s\n", status)
	fmt.Fprintf(w, "Exit Code:      %d\n", exitCode)
	fmt.Fprintf(w, "Execution Time: %d ms\n", executionTime)
	fmt.Fprintln(w, "========================================")
}
