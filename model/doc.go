// Package model defines the provider-agnostic abstraction for interacting
// with language model backends.
//
// Core goals:
//   - Keep request/response shapes minimal and transport independent
//   - Normalize tool / function declaration (ToolDefinition) across vendors
//   - Surface transport and decode failures as typed *BackendError values
//   - Facilitate deterministic testing via ScriptedModel
//
// Providers (e.g. OpenAI, Anthropic) implement the Model interface from this
// package so higher layers (agent loop, reflection controller) remain
// decoupled from vendor SDKs. The core never retries a failed backend call;
// retry policy belongs to the caller.
package model
