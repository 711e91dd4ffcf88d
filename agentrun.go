// Package agentrun provides a high-level façade over the agent turn loop,
// the tool registry and the reflection controller. Most applications interact
// with this package by:
//  1. Creating a Runtime via New() around a model backend
//  2. Registering tools on the shared registry
//  3. Calling Run for a plain answer or RunWithReflection for a
//     quality-checked one
//
// The façade delegates the loop mechanics to the agent package and the
// critique cycle to the reflection package while keeping setup ergonomics
// concise. All defaults are safe for local development and testing.
package agentrun

import (
	"context"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/agentrun/agent"
	"github.com/hupe1980/agentrun/config"
	"github.com/hupe1980/agentrun/logging"
	"github.com/hupe1980/agentrun/model"
	anthropicmodel "github.com/hupe1980/agentrun/model/anthropic"
	openaimodel "github.com/hupe1980/agentrun/model/openai"
	"github.com/hupe1980/agentrun/reflection"
	"github.com/hupe1980/agentrun/tool"
)

// Options configure a Runtime.
type Options struct {
	// Tools is the registry shared by all agents created through the runtime.
	// Defaults to a fresh empty registry.
	Tools *tool.Registry

	// MaxTurns bounds each run's tool-calling loop.
	MaxTurns int

	// Temperature overrides the provider default for all calls.
	Temperature *float64

	// MaxTokens caps completion size on every call (0 => provider default).
	MaxTokens int64

	// MaxParallelTools bounds tool execution concurrency within one turn.
	MaxParallelTools int

	// Reflection loop bounds.
	MaxIterations    int
	QualityThreshold float64
	Criteria         []string

	// Logger (defaults to NoOp).
	Logger logging.Logger
}

// Runtime bundles a model backend, a shared tool registry and a reflection
// controller behind a small caller-facing API.
type Runtime struct {
	llm       model.Model
	tools     *tool.Registry
	reflector *reflection.Controller
	opts      Options
}

// ReflectedResult is the outcome of a run followed by the improve loop.
type ReflectedResult struct {
	Run        *agent.RunResult   `json:"run"`
	Output     string             `json:"output"`               // Final (possibly revised) text
	Reflection *reflection.Result `json:"reflection,omitempty"` // Last critique
	Iterations int                `json:"iterations"`           // Revisions applied
}

// New creates a Runtime around a model backend with optional overrides.
func New(llm model.Model, optFns ...func(o *Options)) (*Runtime, error) {
	opts := Options{
		MaxTurns:         agent.DefaultMaxTurns,
		MaxIterations:    reflection.DefaultMaxIterations,
		QualityThreshold: reflection.DefaultQualityThreshold,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Tools == nil {
		opts.Tools = tool.NewRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	reflector, err := reflection.New(llm, func(o *reflection.Options) {
		o.MaxIterations = opts.MaxIterations
		o.QualityThreshold = opts.QualityThreshold
		o.Criteria = opts.Criteria
		o.Temperature = opts.Temperature
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, fmt.Errorf("agentrun: %w", err)
	}

	return &Runtime{llm: llm, tools: opts.Tools, reflector: reflector, opts: opts}, nil
}

// Tools exposes the shared registry for registration during setup.
func (r *Runtime) Tools() *tool.Registry { return r.tools }

// Run executes one bounded tool-calling run with the given system prompt and
// user input.
func (r *Runtime) Run(ctx context.Context, systemPrompt, userInput string) (*agent.RunResult, error) {
	return r.newAgent(systemPrompt).Run(ctx, userInput)
}

// RunWithReflection executes a run and feeds the final answer through the
// critique/revise loop. The run's original text remains available on the
// embedded RunResult; callers wanting a safety floor can critique both and
// keep the higher-scoring output.
func (r *Runtime) RunWithReflection(ctx context.Context, systemPrompt, userInput string) (*ReflectedResult, error) {
	runResult, err := r.newAgent(systemPrompt).Run(ctx, userInput)
	if err != nil {
		return nil, err
	}

	// Improve returns a usable outcome even on failure, carrying the output
	// current at that point.
	outcome, err := r.reflector.Improve(ctx, runResult.FinalText)
	return &ReflectedResult{
		Run:        runResult,
		Output:     outcome.FinalOutput,
		Reflection: outcome.Last,
		Iterations: outcome.Iterations,
	}, err
}

func (r *Runtime) newAgent(systemPrompt string) *agent.Agent {
	return agent.New("runtime", systemPrompt, r.llm, func(o *agent.Options) {
		o.Tools = r.tools
		o.MaxTurns = r.opts.MaxTurns
		o.Temperature = r.opts.Temperature
		o.MaxTokens = r.opts.MaxTokens
		o.MaxParallelTools = r.opts.MaxParallelTools
		o.Logger = r.opts.Logger
	})
}

// ModelFromConfig selects a provider backend from the configured model id:
// ids starting with "claude" map to Anthropic, everything else to OpenAI.
// Configured API keys take precedence over the environment.
func ModelFromConfig(cfg config.Config) model.Model {
	if strings.HasPrefix(cfg.DefaultModel, "claude") {
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			o.Model = anthropicsdk.Model(cfg.DefaultModel)
			if cfg.AnthropicAPIKey != "" {
				o.APIKey = cfg.AnthropicAPIKey
			}
		})
	}
	return openaimodel.NewModel(func(o *openaimodel.Options) {
		o.Model = cfg.DefaultModel
		if cfg.OpenAIAPIKey != "" {
			o.APIKey = cfg.OpenAIAPIKey
		}
	})
}

// OptionsFromConfig maps loaded configuration onto runtime options. Compose
// caller overrides after it:
//
//	rt, err := agentrun.New(llm, agentrun.OptionsFromConfig(cfg), func(o *agentrun.Options) {
//	    o.Criteria = customCriteria
//	})
func OptionsFromConfig(cfg config.Config) func(o *Options) {
	return func(o *Options) {
		temperature := cfg.Temperature
		o.Temperature = &temperature
		o.MaxTokens = cfg.MaxTokens
		o.MaxTurns = cfg.MaxToolTurns
		o.MaxParallelTools = cfg.MaxParallelTools
		o.MaxIterations = cfg.MaxIterations
		o.QualityThreshold = cfg.QualityThreshold
		if cfg.Verbose {
			o.Logger = logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Format: "text"})
		}
	}
}

// NewFromConfig builds a Runtime entirely from loaded configuration: the
// backend is chosen via ModelFromConfig and all loop and reflection bounds
// come from the config, with optional overrides applied on top.
func NewFromConfig(cfg config.Config, optFns ...func(o *Options)) (*Runtime, error) {
	return New(ModelFromConfig(cfg), append([]func(o *Options){OptionsFromConfig(cfg)}, optFns...)...)
}
