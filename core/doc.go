// Package core provides the foundational conversation types shared by every
// layer of agentrun. It defines:
//
//   - Message / Role (one turn of a transcript)
//   - ToolCall (a model-issued function invocation request)
//   - ToolResult (the outcome of dispatching a ToolCall)
//   - Transcript validation helpers
//
// The package intentionally keeps implementation concerns (model providers,
// tool dispatch, loop control) out of scope so that higher layers can depend
// on a small, stable vocabulary of types.
package core
