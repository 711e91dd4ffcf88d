package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/agentrun/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the
// model. Parameters is a JSON Schema object (draft agnostic, minimal subset
// expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by the agent loop and
// the reflection controller.
type Request struct {
	Messages    []core.Message   `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"` // nil => provider default
	MaxTokens   int64            `json:"max_tokens,omitempty"`  // 0 => provider default
}

// TokenUsage captures token accounting for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the single assistant message produced by one backend call.
type Response struct {
	Message      core.Message `json:"message"`
	FinishReason string       `json:"finish_reason"` // "stop", "tool_calls", "length", ...
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "scripted", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation. Complete is a
// synchronous request/response exchange; it must return either a response or
// an error, never both.
type Model interface {
	Complete(ctx context.Context, req Request) (Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// BackendError wraps transport or decode failures from a model provider.
// It is fatal to the current turn or critique and is never retried by the
// core.
type BackendError struct {
	Provider string // Provider identifier ("openai", "anthropic", ...)
	Op       string // Logical operation that failed ("complete", "decode", ...)
	Err      error  // Underlying cause
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend error during %s: %v", e.Provider, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// NewBackendError constructs a BackendError for the given provider and operation.
func NewBackendError(provider, op string, err error) *BackendError {
	return &BackendError{Provider: provider, Op: op, Err: err}
}

// ScriptedModel is a deterministic in-memory Model useful for tests and
// examples. Responses are consumed in FIFO order; every request is recorded
// for later inspection.
type ScriptedModel struct {
	mu        sync.Mutex
	info      Info
	responses []Response
	errs      []error
	requests  []Request
}

// NewScriptedModel constructs a ScriptedModel with tool support enabled.
func NewScriptedModel(name string) *ScriptedModel {
	return &ScriptedModel{
		info: Info{Name: name, Provider: "scripted", SupportsTools: true},
	}
}

// Enqueue appends a canned response to the script.
func (m *ScriptedModel) Enqueue(resp Response) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
	m.errs = append(m.errs, nil)
	return m
}

// EnqueueText appends a terminal assistant text response.
func (m *ScriptedModel) EnqueueText(text string) *ScriptedModel {
	return m.Enqueue(Response{
		Message:      core.AssistantMessage(text),
		FinishReason: "stop",
	})
}

// EnqueueToolCalls appends an assistant response requesting the given tool calls.
func (m *ScriptedModel) EnqueueToolCalls(calls ...core.ToolCall) *ScriptedModel {
	return m.Enqueue(Response{
		Message:      core.Message{Role: core.RoleAssistant, ToolCalls: calls},
		FinishReason: "tool_calls",
	})
}

// EnqueueError appends a scripted backend failure.
func (m *ScriptedModel) EnqueueError(err error) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, Response{})
	m.errs = append(m.errs, err)
	return m
}

// Requests returns a copy of all requests seen so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

// Complete implements Model by replaying the next scripted response. Running
// past the end of the script is a test authoring mistake and yields a
// BackendError.
func (m *ScriptedModel) Complete(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, NewBackendError(m.info.Provider, "complete", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if len(m.responses) == 0 {
		return Response{}, NewBackendError(m.info.Provider, "complete", fmt.Errorf("script exhausted after %d requests", len(m.requests)))
	}

	resp, err := m.responses[0], m.errs[0]
	m.responses = m.responses[1:]
	m.errs = m.errs[1:]
	if err != nil {
		return Response{}, err
	}
	return resp, nil
}

// Info implements Model.
func (m *ScriptedModel) Info() Info { return m.info }
