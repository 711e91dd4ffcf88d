package reflection

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/agentrun/model"
)

func critiqueResponse(score float64, revised string) string {
	revisedSection := "No major revisions needed"
	if revised != "" {
		revisedSection = revised
	}
	return fmt.Sprintf(`SCORE: %g
STRENGTHS:
- clear structure
- correct facts
WEAKNESSES:
- too terse
IMPROVEMENTS:
- add examples
REVISED OUTPUT:
%s`, score, revisedSection)
}

// -------------------- Parser --------------------

func TestParseCritique(t *testing.T) {
	result, err := parseCritique(critiqueResponse(7.5, "better text"))
	assert.NoError(t, err)
	assert.Equal(t, 7.5, result.Score)
	assert.Equal(t, []string{"clear structure", "correct facts"}, result.Strengths)
	assert.Equal(t, []string{"too terse"}, result.Weaknesses)
	assert.Equal(t, []string{"add examples"}, result.Improvements)
	assert.Equal(t, "better text", result.RevisedOutput)
}

func TestParseCritique_NoRevisionSentinel(t *testing.T) {
	result, err := parseCritique(critiqueResponse(9, ""))
	assert.NoError(t, err)
	assert.Equal(t, 9.0, result.Score)
	assert.Empty(t, result.RevisedOutput)
}

func TestParseCritique_MissingScore(t *testing.T) {
	_, err := parseCritique("STRENGTHS:\n- something\n")
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Reason, "SCORE")
}

func TestParseCritique_ScoreOutOfScale(t *testing.T) {
	_, err := parseCritique("SCORE: 42\n")
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

// -------------------- Construction --------------------

func TestNew_RequiresPositiveIterationBound(t *testing.T) {
	m := model.NewScriptedModel("test")

	_, err := New(m, func(o *Options) { o.MaxIterations = 0 })
	assert.Error(t, err)

	_, err = New(m, func(o *Options) { o.MaxIterations = -3 })
	assert.Error(t, err)
}

func TestNew_RejectsThresholdOutsideScale(t *testing.T) {
	m := model.NewScriptedModel("test")
	_, err := New(m, func(o *Options) { o.QualityThreshold = 11 })
	assert.Error(t, err)
}

// -------------------- Critique --------------------

func TestCritique_SendsCriteria(t *testing.T) {
	m := model.NewScriptedModel("test").EnqueueText(critiqueResponse(8, ""))

	c, err := New(m, func(o *Options) {
		o.Criteria = []string{"Brevity", "Wit"}
	})
	assert.NoError(t, err)

	result, err := c.Critique(context.Background(), "draft")
	assert.NoError(t, err)
	assert.Equal(t, 8.0, result.Score)

	reqs := m.Requests()
	assert.Len(t, reqs, 1)
	prompt := reqs[0].Messages[1].Content
	assert.Contains(t, prompt, "draft")
	assert.Contains(t, prompt, "1. Brevity")
	assert.Contains(t, prompt, "2. Wit")
}

func TestCritique_ParseErrorNeverDefaultsScore(t *testing.T) {
	m := model.NewScriptedModel("test").EnqueueText("I refuse to follow formats.")

	c, err := New(m)
	assert.NoError(t, err)

	result, err := c.Critique(context.Background(), "draft")
	assert.Nil(t, result)
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
}

// -------------------- Improve Loop --------------------

func TestImprove_AcceptedOnFirstCritique(t *testing.T) {
	m := model.NewScriptedModel("test").EnqueueText(critiqueResponse(9.5, "should be ignored"))

	c, err := New(m) // threshold 9.0
	assert.NoError(t, err)

	outcome, err := c.Improve(context.Background(), "original")
	assert.NoError(t, err)
	assert.Equal(t, "original", outcome.FinalOutput)
	assert.Equal(t, 0, outcome.Iterations)
	assert.Len(t, m.Requests(), 1)
}

func TestImprove_StopsWhenNoRevisionOffered(t *testing.T) {
	m := model.NewScriptedModel("test").EnqueueText(critiqueResponse(4, ""))

	c, err := New(m, func(o *Options) { o.MaxIterations = 5 })
	assert.NoError(t, err)

	outcome, err := c.Improve(context.Background(), "original")
	assert.NoError(t, err)
	assert.Equal(t, "original", outcome.FinalOutput)
	assert.Equal(t, 0, outcome.Iterations)
	assert.Len(t, m.Requests(), 1)
}

func TestImprove_ExactlyKCritiquesWhenAlwaysBelowThreshold(t *testing.T) {
	const k = 3

	m := model.NewScriptedModel("test")
	for i := 1; i <= k+2; i++ { // extra script entries must never be consumed
		m.EnqueueText(critiqueResponse(5, fmt.Sprintf("revision %d", i)))
	}

	c, err := New(m, func(o *Options) { o.MaxIterations = k })
	assert.NoError(t, err)

	outcome, err := c.Improve(context.Background(), "original")
	assert.NoError(t, err)
	assert.Len(t, m.Requests(), k)
	assert.Equal(t, fmt.Sprintf("revision %d", k), outcome.FinalOutput)
	assert.Equal(t, k, outcome.Iterations)
}

func TestImprove_TwoCritiqueScenario(t *testing.T) {
	// Critique 1: score 6, revision "B". Critique 2: score 9, no revision.
	m := model.NewScriptedModel("test")
	m.EnqueueText(critiqueResponse(6, "B"))
	m.EnqueueText(critiqueResponse(9, ""))

	c, err := New(m, func(o *Options) {
		o.MaxIterations = 3
		o.QualityThreshold = 9
	})
	assert.NoError(t, err)

	outcome, err := c.Improve(context.Background(), "A")
	assert.NoError(t, err)
	assert.Len(t, m.Requests(), 2)
	assert.Equal(t, "B", outcome.FinalOutput)
	assert.Equal(t, 1, outcome.Iterations)
	assert.Equal(t, 9.0, outcome.Last.Score)
}

func TestImprove_ParseErrorReturnsCurrentOutputUnchanged(t *testing.T) {
	m := model.NewScriptedModel("test")
	m.EnqueueText(critiqueResponse(5, "B"))
	m.EnqueueText("garbage with no score")

	c, err := New(m, func(o *Options) { o.MaxIterations = 3 })
	assert.NoError(t, err)

	outcome, err := c.Improve(context.Background(), "A")
	var parseErr *ParseError
	assert.ErrorAs(t, err, &parseErr)
	// The revision from the successful first critique was applied; the
	// failing critique changed nothing.
	assert.Equal(t, "B", outcome.FinalOutput)
	assert.Equal(t, 1, outcome.Iterations)
}

func TestImprove_BackendErrorPropagates(t *testing.T) {
	m := model.NewScriptedModel("test")
	m.EnqueueError(model.NewBackendError("scripted", "complete", errors.New("down")))

	c, err := New(m)
	assert.NoError(t, err)

	outcome, err := c.Improve(context.Background(), "A")
	var backendErr *model.BackendError
	assert.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "A", outcome.FinalOutput)
	assert.Equal(t, 0, outcome.Iterations)
}
