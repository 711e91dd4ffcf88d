package agent

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/logging"
	"github.com/hupe1980/agentrun/model"
	"github.com/hupe1980/agentrun/tool"
)

// DefaultMaxTurns bounds the tool-calling loop when no explicit budget is
// configured.
const DefaultMaxTurns = 5

// Options configure an Agent.
type Options struct {
	// Tools is the shared, read-only registry the loop dispatches through.
	// A nil registry means the model is never offered tools.
	Tools *tool.Registry

	// MaxTurns bounds the number of backend exchanges per run.
	MaxTurns int

	// Temperature overrides the provider default sampling temperature.
	Temperature *float64

	// MaxTokens caps the completion size (0 => provider default).
	MaxTokens int64

	// MaxParallelTools bounds tool execution concurrency within one turn.
	// 0 or less means one goroutine per requested call.
	MaxParallelTools int

	// Logger receives structured diagnostics.
	Logger logging.Logger
}

// Agent drives the bounded request/response/tool-dispatch cycle for one
// system prompt + model configuration. The configuration is immutable after
// construction; an Agent is safe for concurrent runs since each run owns its
// transcript.
type Agent struct {
	name         string
	systemPrompt string
	llm          model.Model
	opts         Options
}

// New constructs an Agent around a model backend.
//
// Example:
//
//	a := agent.New("researcher", systemPrompt, m, func(o *agent.Options) {
//	    o.Tools = registry
//	    o.MaxTurns = 8
//	})
func New(name, systemPrompt string, llm model.Model, optFns ...func(o *Options)) *Agent {
	opts := Options{
		MaxTurns: DefaultMaxTurns,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxTurns <= 0 {
		opts.MaxTurns = DefaultMaxTurns
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Agent{name: name, systemPrompt: systemPrompt, llm: llm, opts: opts}
}

// Name returns the agent identifier used in logs and workflow step reporting.
func (a *Agent) Name() string { return a.name }

// Run converges a fresh transcript seeded with the system prompt and the
// user input to a final answer, allowing the model zero or more tool
// round-trips.
//
// Fatal failures return *RunError (backend) or *TurnLimitExceededError
// (budget exhausted), both carrying the partial transcript. Tool failures
// are never fatal; they are recorded as tool-result messages so the model
// can react.
func (a *Agent) Run(ctx context.Context, userInput string) (*RunResult, error) {
	runID := uuid.NewString()

	transcript := []core.Message{
		core.SystemMessage(a.systemPrompt),
		core.UserMessage(userInput),
	}

	var defs []model.ToolDefinition
	if a.opts.Tools != nil {
		defs = a.opts.Tools.Definitions()
	}

	var invocations []ToolInvocation

	a.opts.Logger.Info("agent.run.start", "agent", a.name, "run_id", runID, "model", a.llm.Info().Name, "tools", len(defs))
	start := time.Now()

	for turn := 1; turn <= a.opts.MaxTurns; turn++ {
		// Runs abort between turns only; a dispatched batch always commits.
		select {
		case <-ctx.Done():
			return nil, &RunError{RunID: runID, Turn: turn, Transcript: transcript, Err: ctx.Err()}
		default:
		}

		resp, err := a.llm.Complete(ctx, model.Request{
			Messages:    transcript,
			Tools:       defs,
			Temperature: a.opts.Temperature,
			MaxTokens:   a.opts.MaxTokens,
		})
		if err != nil {
			a.opts.Logger.Error("agent.run.backend_error", "agent", a.name, "run_id", runID, "turn", turn, "error", err.Error())
			return nil, &RunError{RunID: runID, Turn: turn, Transcript: transcript, Err: err}
		}

		msg := resp.Message
		msg.Role = core.RoleAssistant
		for i := range msg.ToolCalls {
			if msg.ToolCalls[i].ID == "" {
				msg.ToolCalls[i].ID = uuid.NewString()
			}
		}
		transcript = append(transcript, msg)

		if len(msg.ToolCalls) == 0 {
			// Terminal state. Empty content is a valid empty answer.
			a.opts.Logger.Info("agent.run.complete",
				"agent", a.name,
				"run_id", runID,
				"turns_used", turn,
				"tool_invocations", len(invocations),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return &RunResult{
				RunID:           runID,
				FinalText:       msg.Content,
				Transcript:      transcript,
				ToolInvocations: invocations,
				TurnsUsed:       turn,
			}, nil
		}

		results := a.dispatchBatch(ctx, msg.ToolCalls)
		for i, res := range results {
			transcript = append(transcript, core.ToolResultMessage(res))
			invocations = append(invocations, ToolInvocation{
				CallID:    res.CallID,
				Name:      res.Name,
				Arguments: parseArguments(msg.ToolCalls[i].Arguments),
				Error:     res.Error,
			})
		}
	}

	a.opts.Logger.Error("agent.run.turn_limit", "agent", a.name, "run_id", runID, "max_turns", a.opts.MaxTurns)
	return nil, &TurnLimitExceededError{
		RunID:           runID,
		MaxTurns:        a.opts.MaxTurns,
		Transcript:      transcript,
		ToolInvocations: invocations,
	}
}

// dispatchBatch executes one turn's tool calls with bounded parallelism.
// Results are indexed by request position so the transcript append order
// follows the order the model issued the calls, not completion order. A
// failing call never aborts its siblings.
func (a *Agent) dispatchBatch(ctx context.Context, calls []core.ToolCall) []core.ToolResult {
	results := make([]core.ToolResult, len(calls))

	// No registry configured: every requested call is unknown by definition.
	if a.opts.Tools == nil {
		for i, call := range calls {
			results[i] = core.ToolResult{
				CallID: call.ID,
				Name:   call.Name,
				Error:  (&tool.UnknownToolError{Name: call.Name}).Error(),
			}
		}
		return results
	}

	// Fast path: single call, execute inline.
	if len(calls) == 1 {
		results[0] = a.opts.Tools.Dispatch(ctx, calls[0])
		return results
	}

	maxPar := a.opts.MaxParallelTools
	if maxPar <= 0 || maxPar > len(calls) {
		maxPar = len(calls)
	}
	sem := make(chan struct{}, maxPar)

	var wg sync.WaitGroup
	for i := range calls {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, call core.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx] = a.opts.Tools.Dispatch(ctx, call)
		}(i, calls[i])
	}
	wg.Wait()

	return results
}

// parseArguments decodes the raw argument payload for the audit list. A
// payload that does not decode still yields a usable audit entry with the
// raw text preserved.
func parseArguments(raw json.RawMessage) map[string]any {
	args := map[string]any{}
	if len(raw) == 0 {
		return args
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return map[string]any{"_raw": string(raw)}
	}
	return args
}
