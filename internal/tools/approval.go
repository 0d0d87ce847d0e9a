package tools

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/serialagent/gateway/internal/store"
)

// ApprovalDecision is the outcome of a human-in-the-loop approval request.
type ApprovalDecision int

const (
	ApprovalAllow ApprovalDecision = iota
	ApprovalDeny
)

// CommandRisk classifies a shell command by how it should be gated.
type CommandRisk string

const (
	RiskAllow CommandRisk = "allow"
	RiskAsk   CommandRisk = "ask"
	RiskDeny  CommandRisk = "deny"
)

// riskPatterns flags commands that are not outright denied by the host
// denylist but are risky enough to require a human decision before running
// (spec §4.1 approval gate): shell redirects into /etc/, package installs
// and removals, and git push, hard reset and clean.
var riskPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(npm|pip|pip3|go)\s+(install|get)\b`),
	regexp.MustCompile(`\bgit\s+(push|reset\s+--hard|clean\s+-[fd]+)\b`),
	regexp.MustCompile(`\b(apt|apt-get|yum|brew)\s+(install|remove)\b`),
	regexp.MustCompile(`>\s*/etc/`),
}

// ExecApprovalManager classifies shell commands and, for risky ones, blocks
// the calling goroutine on a human decision delivered through the
// approval store's one-shot resolve channel.
type ExecApprovalManager struct {
	approvals store.ApprovalStore
	sessionID string
	runID     string
}

// NewExecApprovalManager wires an approval gate for the tool calls made
// within a single turn run.
func NewExecApprovalManager(approvals store.ApprovalStore, sessionID, runID string) *ExecApprovalManager {
	return &ExecApprovalManager{approvals: approvals, sessionID: sessionID, runID: runID}
}

// CheckCommand classifies a shell command without blocking.
func (m *ExecApprovalManager) CheckCommand(command string) CommandRisk {
	for _, p := range riskPatterns {
		if p.MatchString(command) {
			return RiskAsk
		}
	}
	return RiskAllow
}

// RequestApproval records a pending approval and blocks until it is
// resolved or the timeout elapses, in which case it is treated as a denial.
func (m *ExecApprovalManager) RequestApproval(command, agentID string, timeout time.Duration) (ApprovalDecision, error) {
	if m.approvals == nil {
		return ApprovalDeny, fmt.Errorf("approval required but no approval store configured")
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pending := &store.PendingApproval{
		ID:        fmt.Sprintf("appr_%s_%d", m.sessionID, time.Now().UnixNano()),
		SessionID: m.sessionID,
		RunID:     m.runID,
		ToolName:  "exec",
		Args:      map[string]interface{}{"command": command, "agent_id": agentID},
		Reason:    "command matches a risky-but-not-denied pattern",
		CreatedAt: time.Now(),
	}

	resolved, err := m.approvals.Create(ctx, pending)
	if err != nil {
		return ApprovalDeny, err
	}

	select {
	case approved, ok := <-resolved:
		if !ok || !approved {
			return ApprovalDeny, nil
		}
		return ApprovalAllow, nil
	case <-ctx.Done():
		return ApprovalDeny, fmt.Errorf("approval request timed out after %s", timeout)
	}
}
