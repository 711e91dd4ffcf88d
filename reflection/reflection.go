package reflection

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/agentrun/core"
	"github.com/hupe1980/agentrun/logging"
	"github.com/hupe1980/agentrun/model"
)

const (
	// DefaultMaxIterations bounds the improve loop when not configured.
	DefaultMaxIterations = 2

	// DefaultQualityThreshold is the acceptance score on the 0-10 scale.
	DefaultQualityThreshold = 9.0
)

const critiqueSystemPrompt = "You are a critical reviewer. Evaluate the " +
	"provided output honestly and rigorously against the given criteria. " +
	"Respond strictly in the requested format."

// DefaultCriteria returns the generic evaluation criteria used when the
// caller supplies none.
func DefaultCriteria() []string {
	return []string{
		"Accuracy and correctness",
		"Completeness of information",
		"Clarity and readability",
		"Relevance to the query",
		"Professional tone",
	}
}

// Result is the structured outcome of one critique call.
type Result struct {
	Score         float64  `json:"score"` // Overall quality on a 0-10 scale
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Improvements  []string `json:"improvements"`
	RevisedOutput string   `json:"revised_output,omitempty"` // Empty when no revision was proposed
	Raw           string   `json:"raw,omitempty"`            // Unparsed critique text
}

// Accepted reports whether the score meets the given threshold.
func (r *Result) Accepted(threshold float64) bool { return r.Score >= threshold }

// Outcome is the final state of an improve loop.
type Outcome struct {
	FinalOutput string  `json:"final_output"`
	Last        *Result `json:"reflection,omitempty"` // Last critique performed
	Iterations  int     `json:"iterations"`           // Number of revisions applied
}

// Options configure a Controller.
type Options struct {
	// Criteria the critique evaluates against (defaults to DefaultCriteria).
	Criteria []string

	// MaxIterations bounds the number of critique calls per Improve. It must
	// be positive; an omitted or non-positive bound is a construction error,
	// never an unbounded loop.
	MaxIterations int

	// QualityThreshold is the acceptance score (0-10 scale).
	QualityThreshold float64

	// Temperature overrides the provider default for critique calls.
	Temperature *float64

	// MaxTokens caps the critique completion size (0 => provider default).
	MaxTokens int64

	// Logger receives structured diagnostics.
	Logger logging.Logger
}

// Controller wraps a completed answer in a critique + optional-revision
// cycle. It is stateless across calls and safe for concurrent use.
type Controller struct {
	llm  model.Model
	opts Options
}

// New constructs a Controller. It fails when the iteration bound is not
// positive or the threshold falls outside the scoring scale.
func New(llm model.Model, optFns ...func(o *Options)) (*Controller, error) {
	opts := Options{
		Criteria:         DefaultCriteria(),
		MaxIterations:    DefaultMaxIterations,
		QualityThreshold: DefaultQualityThreshold,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations <= 0 {
		return nil, fmt.Errorf("reflection: max iterations must be positive, got %d", opts.MaxIterations)
	}
	if opts.QualityThreshold < 0 || opts.QualityThreshold > 10 {
		return nil, fmt.Errorf("reflection: quality threshold %.1f outside 0-10 scale", opts.QualityThreshold)
	}
	if len(opts.Criteria) == 0 {
		opts.Criteria = DefaultCriteria()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Controller{llm: llm, opts: opts}, nil
}

// Critique issues a single structured self-evaluation of output. It fails
// with the backend error or a *ParseError; it never substitutes a default
// score.
func (c *Controller) Critique(ctx context.Context, output string) (*Result, error) {
	resp, err := c.llm.Complete(ctx, model.Request{
		Messages: []core.Message{
			core.SystemMessage(critiqueSystemPrompt),
			core.UserMessage(buildCritiquePrompt(output, c.opts.Criteria)),
		},
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	result, err := parseCritique(resp.Message.Content)
	if err != nil {
		c.opts.Logger.Error("reflection.critique.parse_error", "error", err.Error())
		return nil, err
	}

	c.opts.Logger.Info("reflection.critique.done",
		"score", result.Score,
		"revised", result.RevisedOutput != "",
	)
	return result, nil
}

// Improve runs the critique/revise state machine:
//
//	Draft -> Critiqued -> {Accepted | Revised -> Critiqued -> ...}
//
// terminating on acceptance (score >= threshold), on a critique without a
// revision, or after MaxIterations critique calls. Outcome.Iterations counts
// the revisions actually applied.
//
// On a fatal critique failure the outcome carries the output current at that
// point, unchanged, alongside the error.
func (c *Controller) Improve(ctx context.Context, output string) (*Outcome, error) {
	current := output
	iterations := 0
	var last *Result

	for i := 0; i < c.opts.MaxIterations; i++ {
		result, err := c.Critique(ctx, current)
		if err != nil {
			return &Outcome{FinalOutput: current, Last: last, Iterations: iterations}, err
		}
		last = result

		if result.Accepted(c.opts.QualityThreshold) || result.RevisedOutput == "" {
			break
		}

		current = result.RevisedOutput
		iterations++
	}

	c.opts.Logger.Info("reflection.improve.done", "iterations", iterations, "score", last.Score)
	return &Outcome{FinalOutput: current, Last: last, Iterations: iterations}, nil
}

// buildCritiquePrompt renders the critique request in the line-oriented
// format parseCritique expects.
func buildCritiquePrompt(output string, criteria []string) string {
	var b strings.Builder
	b.WriteString("Reflect on the following output and provide a critical analysis:\n\n")
	b.WriteString("OUTPUT TO EVALUATE:\n")
	b.WriteString(output)
	b.WriteString("\n\nEVALUATION CRITERIA:\n")
	for i, criterion := range criteria {
		fmt.Fprintf(&b, "%d. %s\n", i+1, criterion)
	}
	b.WriteString(`
Please provide:
1. SCORE: Rate the overall quality (0-10)
2. STRENGTHS: What was done well (2-3 points)
3. WEAKNESSES: What could be improved (2-3 points)
4. IMPROVEMENTS: Specific suggestions for enhancement
5. REVISED OUTPUT: An improved version if significant changes are needed

Format your response as:
SCORE: [number]
STRENGTHS:
- [strength 1]
- [strength 2]
WEAKNESSES:
- [weakness 1]
- [weakness 2]
IMPROVEMENTS:
- [improvement 1]
- [improvement 2]
REVISED OUTPUT:
[improved version or "No major revisions needed"]
`)
	return b.String()
}
