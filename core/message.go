package core

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a transcript message.
type Role string

const (
	// RoleSystem carries the system prompt seeding a run.
	RoleSystem Role = "system"
	// RoleUser carries caller-supplied input.
	RoleUser Role = "user"
	// RoleAssistant carries model output, possibly including tool calls.
	RoleAssistant Role = "assistant"
	// RoleTool carries the result of a dispatched tool call.
	RoleTool Role = "tool"
)

// ToolCall is a function invocation request surfaced by a model response.
// Unified across vendors so downstream logic does not need per-provider
// branching.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"` // JSON object of arguments
}

// ToolResult describes the outcome of dispatching a single ToolCall.
// Exactly one of Output / Error is meaningful; Error is set whenever the
// tool failed, timed out or was unknown.
type ToolResult struct {
	CallID string `json:"call_id"` // Matches the originating ToolCall ID
	Name   string `json:"name"`
	Output any    `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Failed reports whether the tool invocation produced an error.
func (r ToolResult) Failed() bool { return r.Error != "" }

// Content renders the result as the text fed back to the model. Errors are
// surfaced verbatim so the model can react (retry, answer without the tool).
func (r ToolResult) Content() string {
	if r.Error != "" {
		return fmt.Sprintf(`{"error":%q}`, r.Error)
	}
	switch v := r.Output.(type) {
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// Message is one turn in a transcript. Transcripts are append-only within a
// run; callers never mutate prior messages.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // Assistant messages only
	ToolCallID string     `json:"tool_call_id,omitempty"` // Tool messages only
	Name       string     `json:"name,omitempty"`         // Tool name on tool messages
}

// SystemMessage builds the system prompt message seeding a transcript.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage builds a user input message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage builds a plain assistant text message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolResultMessage converts a ToolResult into its transcript representation,
// preserving the call-id back-reference.
func ToolResultMessage(result ToolResult) Message {
	return Message{
		Role:       RoleTool,
		Content:    result.Content(),
		ToolCallID: result.CallID,
		Name:       result.Name,
	}
}

// ValidateTranscript checks the structural invariant of a transcript: every
// tool message references exactly one tool call issued by an earlier
// assistant message, and no call id is answered twice.
func ValidateTranscript(transcript []Message) error {
	pending := map[string]bool{}
	for i, msg := range transcript {
		for _, tc := range msg.ToolCalls {
			if tc.ID == "" {
				return fmt.Errorf("message %d: tool call %q has empty id", i, tc.Name)
			}
			if pending[tc.ID] {
				return fmt.Errorf("message %d: tool call id %q reused", i, tc.ID)
			}
			pending[tc.ID] = true
		}
		if msg.Role != RoleTool {
			continue
		}
		if msg.ToolCallID == "" {
			return fmt.Errorf("message %d: tool message without tool_call_id", i)
		}
		if !pending[msg.ToolCallID] {
			return fmt.Errorf("message %d: tool message references unknown or already answered call id %q", i, msg.ToolCallID)
		}
		delete(pending, msg.ToolCallID)
	}
	return nil
}
