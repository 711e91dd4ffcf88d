package agent

import (
	"fmt"

	"github.com/hupe1980/agentrun/core"
)

// ToolInvocation is one entry of a run's audit list: a tool the model
// requested, with its parsed arguments and the outcome.
type ToolInvocation struct {
	CallID    string         `json:"call_id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Error     string         `json:"error,omitempty"`
}

// RunResult captures the outcome of a completed agent run. It is created
// once per run and immutable afterward.
type RunResult struct {
	RunID           string           `json:"run_id"`
	FinalText       string           `json:"final_text"`
	Transcript      []core.Message   `json:"transcript"`
	ToolInvocations []ToolInvocation `json:"tool_invocations"`
	TurnsUsed       int              `json:"turns_used"`
}

// TurnLimitExceededError reports that a run did not converge within the
// configured turn budget. The partial transcript is surfaced for diagnostics
// rather than silently truncated.
type TurnLimitExceededError struct {
	RunID           string
	MaxTurns        int
	Transcript      []core.Message
	ToolInvocations []ToolInvocation
}

func (e *TurnLimitExceededError) Error() string {
	return fmt.Sprintf("run %s did not converge within %d turns", e.RunID, e.MaxTurns)
}

// RunError wraps a fatal backend failure together with the partial transcript
// accumulated before it occurred.
type RunError struct {
	RunID      string
	Turn       int
	Transcript []core.Message
	Err        error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed at turn %d: %v", e.RunID, e.Turn, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
