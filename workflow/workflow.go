// Package workflow sequences multiple agent runs into a pipeline. Each step
// receives the prior step's result as additional context and produces its
// own result. The package defines no retry policy; a failed step surfaces
// which step failed together with the partial results of prior steps, and
// retries are left to the caller.
package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/agentrun/agent"
	"github.com/hupe1980/agentrun/logging"
)

// Step is one stage of a workflow. prior is nil for the first step.
type Step interface {
	Name() string
	Run(ctx context.Context, input string, prior *agent.RunResult) (*agent.RunResult, error)
}

// StepError reports a failed step along with the results of the steps that
// completed before it.
type StepError struct {
	Step    string
	Index   int
	Partial []*agent.RunResult
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("workflow step %d (%s) failed: %v", e.Index, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// InputBuilder projects the caller input and the prior step's result into the
// prompt for the next step.
type InputBuilder func(input string, prior *agent.RunResult) string

// agentStep adapts an *agent.Agent into a Step.
type agentStep struct {
	agent      *agent.Agent
	buildInput InputBuilder
}

// AgentStep wraps an agent as a workflow step. When buildInput is nil the
// prior step's final text is appended to the original input as context.
func AgentStep(a *agent.Agent, buildInput InputBuilder) Step {
	if buildInput == nil {
		buildInput = chainInput
	}
	return &agentStep{agent: a, buildInput: buildInput}
}

func (s *agentStep) Name() string { return s.agent.Name() }

func (s *agentStep) Run(ctx context.Context, input string, prior *agent.RunResult) (*agent.RunResult, error) {
	return s.agent.Run(ctx, s.buildInput(input, prior))
}

// chainInput is the default projection of a prior result into the next prompt.
func chainInput(input string, prior *agent.RunResult) string {
	if prior == nil {
		return input
	}
	return fmt.Sprintf("%s\n\nCONTEXT FROM PREVIOUS STEP:\n%s", input, prior.FinalText)
}

// Options configure a Workflow.
type Options struct {
	// Logger receives structured diagnostics.
	Logger logging.Logger
}

// Workflow is an ordered list of steps executed sequentially, each seeing the
// result of its predecessor.
type Workflow struct {
	name  string
	steps []Step
	opts  Options
}

// New constructs a workflow from ordered steps.
func New(name string, steps []Step, optFns ...func(o *Options)) *Workflow {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Workflow{name: name, steps: steps, opts: opts}
}

// Name returns the workflow identifier.
func (w *Workflow) Name() string { return w.name }

// Run executes all steps in order. On failure it returns the partial results
// wrapped in a *StepError identifying the failed step.
func (w *Workflow) Run(ctx context.Context, input string) ([]*agent.RunResult, error) {
	results := make([]*agent.RunResult, 0, len(w.steps))
	var prior *agent.RunResult

	start := time.Now()
	for i, step := range w.steps {
		w.opts.Logger.Info("workflow.step.start", "workflow", w.name, "step", step.Name(), "index", i)

		result, err := step.Run(ctx, input, prior)
		if err != nil {
			w.opts.Logger.Error("workflow.step.error", "workflow", w.name, "step", step.Name(), "index", i, "error", err.Error())
			return results, &StepError{Step: step.Name(), Index: i, Partial: results, Err: err}
		}

		results = append(results, result)
		prior = result
	}

	w.opts.Logger.Info("workflow.complete", "workflow", w.name, "steps", len(w.steps), "duration_ms", time.Since(start).Milliseconds())
	return results, nil
}
