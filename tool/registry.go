package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/logging"
	"github.com/hupe1980/agentrun/model"
)

// Registry maps tool names to implementations and produces the declarations
// the model needs to decide when to call a tool.
//
// A Registry is read-mostly after initialization and safe for shared use
// across concurrent runs. Dispatch converts every failure mode (unknown tool,
// malformed arguments, execution error, panic, timeout) into a ToolResult
// with Error set; it never propagates, so one failing tool cannot abort a run.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	timeout time.Duration
	logger  logging.Logger
}

// RegistryOption customizes Registry construction.
type RegistryOption func(*Registry)

// WithTimeout bounds every dispatched execution. A tool exceeding the bound
// degrades to a ToolResult error, the same path as any other tool failure.
func WithTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.timeout = d }
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger logging.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry creates an empty registry.
func NewRegistry(optFns ...RegistryOption) *Registry {
	r := &Registry{
		tools:  map[string]Tool{},
		logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(r)
	}
	return r
}

// Register adds a tool, failing with *DuplicateToolError when the name is
// already taken.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool is nil")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return &DuplicateToolError{Name: name}
	}
	r.tools[name] = t
	return nil
}

// MustRegister registers tools and panics on error. Intended for static
// setup code in examples and tests.
func (r *Registry) MustRegister(tools ...Tool) {
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
}

// Lookup fetches a tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions produces the tool declarations for the model, sorted by name
// for deterministic requests.
func (r *Registry) Definitions() []model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]model.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Function.Name < defs[j].Function.Name })
	return defs
}

// Dispatch resolves and executes a single model-issued tool call. The
// returned result always carries the originating call id; on any failure its
// Error field is set instead of an error being returned.
func (r *Registry) Dispatch(ctx context.Context, call core.ToolCall) core.ToolResult {
	result := core.ToolResult{CallID: call.ID, Name: call.Name}

	impl, ok := r.Lookup(call.Name)
	if !ok {
		err := &UnknownToolError{Name: call.Name}
		r.logger.Warn("tool.dispatch.unknown", "tool", call.Name, "call_id", call.ID)
		result.Error = err.Error()
		return result
	}

	args := map[string]any{}
	if len(call.Arguments) > 0 {
		if err := json.Unmarshal(call.Arguments, &args); err != nil {
			r.logger.Warn("tool.dispatch.bad_arguments", "tool", call.Name, "call_id", call.ID, "error", err.Error())
			result.Error = fmt.Sprintf("invalid arguments: %v", err)
			return result
		}
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	output, err := r.execute(ctx, impl, args)
	if err != nil {
		r.logger.Error("tool.dispatch.error", "tool", call.Name, "call_id", call.ID, "error", err.Error())
		result.Error = err.Error()
		return result
	}

	r.logger.Info("tool.dispatch.success", "tool", call.Name, "call_id", call.ID, "duration_ms", time.Since(start).Milliseconds())
	result.Output = output
	return result
}

// execute runs the tool in its own goroutine with panic recovery so a
// misbehaving implementation cannot take down the loop, and so a timeout can
// fire even when the tool ignores context cancellation.
func (r *Registry) execute(ctx context.Context, impl Tool, args map[string]any) (any, error) {
	type outcome struct {
		output any
		err    error
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("tool.dispatch.panic", "tool", impl.Name(), "recover", fmt.Sprintf("%v", rec), "stack", string(debug.Stack()))
				done <- outcome{err: fmt.Errorf("tool %s panicked: %v", impl.Name(), rec)}
			}
		}()
		output, err := impl.Execute(ctx, args)
		done <- outcome{output: output, err: err}
	}()

	select {
	case o := <-done:
		return o.output, o.err
	case <-ctx.Done():
		return nil, fmt.Errorf("tool %s aborted: %w", impl.Name(), ctx.Err())
	}
}
