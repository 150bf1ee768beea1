package cpmm

import (
	"strings"
)

// anchorLogError is the structured part of an "AnchorError occurred" log line.
// Example: "Program log: AnchorError occurred. Error Code: AccountNotInitialized.
// Error Number: 3012. Error Message: The program expected this account to be
// already initialized."
type anchorLogError struct {
	Name    string
	Message string
}

// ClassifyExecutionLogs inspects the log output of a failed pool creation and
// buckets it into an actionable kind. hookProgram is the configured
// transfer-hook program; any failure attributed to it classifies as a hook
// rejection since the fix (whitelisting, extra metas setup) lies with the
// hook, not the pool program.
func ClassifyExecutionLogs(signature string, logs []string, hookProgram string) *OnChainExecutionError {
	execErr := &OnChainExecutionError{
		Kind:      ExecOther,
		Signature: signature,
		Logs:      logs,
	}

	hookActive := false
	for _, line := range logs {
		if hookProgram != "" && strings.Contains(line, hookProgram) {
			hookActive = true
		}

		if anchorErr := parseAnchorLogLine(line); anchorErr != nil {
			execErr.Summary = anchorErr.Name
			if anchorErr.Message != "" {
				execErr.Summary = anchorErr.Name + ": " + anchorErr.Message
			}
			switch {
			case isMissingAccountError(anchorErr.Name):
				execErr.Kind = ExecMissingAccount
				execErr.Address = extractAccountAddress(logs)
			case hookActive:
				execErr.Kind = ExecTransferHookRejected
			}
			return execErr
		}

		// Raw runtime errors that never reach Anchor's error reporter.
		if strings.Contains(line, "insufficient funds") {
			execErr.Kind = ExecOther
			execErr.Summary = "insufficient funds"
			return execErr
		}
		if strings.Contains(line, "An account required by the instruction is missing") {
			execErr.Kind = ExecMissingAccount
			execErr.Summary = "required account missing"
			execErr.Address = extractAccountAddress(logs)
			return execErr
		}
	}

	if hookActive {
		execErr.Kind = ExecTransferHookRejected
		execErr.Summary = "transfer hook program rejected the transfer"
		return execErr
	}

	execErr.Summary = "execution failed"
	return execErr
}

// parseAnchorLogLine extracts the name and message from an Anchor error log
// line, returning nil for ordinary log lines.
func parseAnchorLogLine(line string) *anchorLogError {
	if !strings.Contains(line, "AnchorError") {
		return nil
	}
	out := &anchorLogError{}
	if _, after, ok := strings.Cut(line, "Error Code:"); ok {
		if name, _, ok := strings.Cut(after, "."); ok {
			out.Name = strings.TrimSpace(name)
		}
	}
	if _, after, ok := strings.Cut(line, "Error Message:"); ok {
		out.Message = strings.TrimSuffix(strings.TrimSpace(after), ".")
	}
	if out.Name == "" && out.Message == "" {
		return nil
	}
	return out
}

func isMissingAccountError(name string) bool {
	switch name {
	case "AccountNotInitialized", "AccountNotFound", "AccountOwnedByWrongProgram":
		return true
	}
	return false
}

// extractAccountAddress scans for the account pubkey Anchor prints on the
// line following an account constraint failure. Returns "" when absent.
func extractAccountAddress(logs []string) string {
	const marker = "Left:"
	for i, line := range logs {
		idx := strings.Index(line, marker)
		if idx < 0 {
			continue
		}
		if rest := strings.TrimSpace(line[idx+len(marker):]); rest != "" {
			return rest
		}
		// Anchor prints the pubkey on the line after "Left:".
		if i+1 < len(logs) {
			next := strings.TrimPrefix(logs[i+1], "Program log:")
			return strings.TrimSpace(next)
		}
	}
	return ""
}
