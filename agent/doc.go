// Package agent implements the bounded tool-calling turn loop that converges
// a transcript to a final natural-language answer.
//
// One run is a single logical thread of control: the loop synchronously
// exchanges the transcript with the model backend and dispatches any
// requested tool calls through a tool.Registry between exchanges. Tool calls
// within one turn are independent and execute in parallel (bounded), but
// their results are appended to the transcript in the order the model issued
// them so replay stays deterministic.
//
// Tool failures are recoverable and folded back into the transcript; backend
// failures and turn-limit exhaustion are fatal and surface the partial
// transcript for diagnostics.
package agent
