package helpers

import (
	"encoding/json"
	"fmt"
	"io"
)

// PrintContextInfo prints the record context in verbose/dry-run mode
func PrintContextInfo(w io.Writer, context any, dryRun bool) {
	if context == nil {
		return
	}

	header := "Context Configuration"
	if dryRun {
		header = "Context Configuration (DRY RUN)"
	}

	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "========================================")

	jsonBytes, err := json.MarshalIndent(context, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "  %v\n", context)
	} else {
		fmt.Fprintf(w, "%s\n", string(jsonBytes))
	}

	fmt.Fprintln(w, "----------------------------------------")
}

// PrintRemoteInvocation describes a remote analyzer call in place of the
// process banner.
func PrintRemoteInvocation(w io.Writer, url, target string, dryRun bool) {
	header := "Pulse Analyzer Invocation"
	if dryRun {
		header += " (DRY RUN)"
	}
	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Remote:  %s\n", url)
	fmt.Fprintf(w, "Target:  %s\n", target)
	fmt.Fprintln(w, "----------------------------------------")
}
