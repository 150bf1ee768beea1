package cpmm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMissingAccount(t *testing.T) {
	logs := []string{
		"Program CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C invoke [1]",
		"Program log: Instruction: Initialize",
		"Program log: AnchorError occurred. Error Code: AccountNotInitialized. Error Number: 3012. Error Message: The program expected this account to be already initialized.",
		"Program log: Left:",
		"Program log: 7YttLkHDoNj9wyDur5pM1ejucfXC1jwfqNdHh1jSB6Ty",
		"Program CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C failed",
	}

	execErr := ClassifyExecutionLogs("sig1", logs, "")
	require.NotNil(t, execErr)
	assert.Equal(t, ExecMissingAccount, execErr.Kind)
	assert.Contains(t, execErr.Summary, "AccountNotInitialized")
	assert.Equal(t, "7YttLkHDoNj9wyDur5pM1ejucfXC1jwfqNdHh1jSB6Ty", execErr.Address)
	assert.Equal(t, "sig1", execErr.Signature)
	assert.Equal(t, logs, execErr.Logs)
}

func TestClassifyHookRejection(t *testing.T) {
	hookProgram := "9a9QrjcpTVBiQeTUznaBSgmsGdDeJyUABUAqgDAWujKp"
	logs := []string{
		"Program " + hookProgram + " invoke [2]",
		"Program log: AnchorError occurred. Error Code: TransferNotAllowed. Error Number: 6001. Error Message: Receiver is not on the whitelist.",
		"Program " + hookProgram + " failed",
	}

	execErr := ClassifyExecutionLogs("sig2", logs, hookProgram)
	assert.Equal(t, ExecTransferHookRejected, execErr.Kind)
	assert.Contains(t, execErr.Summary, "TransferNotAllowed")
}

func TestClassifyHookMentionWithoutAnchorError(t *testing.T) {
	hookProgram := "9a9QrjcpTVBiQeTUznaBSgmsGdDeJyUABUAqgDAWujKp"
	logs := []string{
		"Program " + hookProgram + " invoke [2]",
		"Program " + hookProgram + " failed: custom program error: 0x1771",
	}

	execErr := ClassifyExecutionLogs("sig3", logs, hookProgram)
	assert.Equal(t, ExecTransferHookRejected, execErr.Kind)
}

func TestClassifyRuntimeMissingAccount(t *testing.T) {
	logs := []string{
		"Program CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C invoke [1]",
		"An account required by the instruction is missing",
	}

	execErr := ClassifyExecutionLogs("sig4", logs, "")
	assert.Equal(t, ExecMissingAccount, execErr.Kind)
}

func TestClassifyFallsBackToOther(t *testing.T) {
	execErr := ClassifyExecutionLogs("sig5", []string{"Program X invoke [1]", "Program X failed"}, "")
	assert.Equal(t, ExecOther, execErr.Kind)
	assert.NotEmpty(t, execErr.Summary)

	// Empty logs still classify
	execErr = ClassifyExecutionLogs("sig6", nil, "")
	assert.Equal(t, ExecOther, execErr.Kind)
}

func TestParseAnchorLogLine(t *testing.T) {
	out := parseAnchorLogLine("Program log: AnchorError occurred. Error Code: InvalidFee. Error Number: 6002. Error Message: Fee rate too high.")
	require.NotNil(t, out)
	assert.Equal(t, "InvalidFee", out.Name)
	assert.Equal(t, "Fee rate too high", out.Message)

	assert.Nil(t, parseAnchorLogLine("Program log: Instruction: Initialize"))
}
