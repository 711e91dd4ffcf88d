package reflection

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseError reports a critique response that could not be decoded into the
// expected structured shape. The raw response is preserved for diagnostics;
// a default score is never substituted.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("reflection response could not be parsed: %s", e.Reason)
}

// noRevisionSentinel marks a critique that found no significant changes needed.
const noRevisionSentinel = "no major revisions"

var (
	scoreRe        = regexp.MustCompile(`(?i)SCORE:\s*(\d+(?:\.\d+)?)`)
	strengthsRe    = regexp.MustCompile(`(?is)STRENGTHS?:(.*?)(?:WEAKNESSES?:|$)`)
	weaknessesRe   = regexp.MustCompile(`(?is)WEAKNESSES?:(.*?)(?:IMPROVEMENTS?:|$)`)
	improvementsRe = regexp.MustCompile(`(?is)IMPROVEMENTS?:(.*?)(?:REVISED OUTPUT:|$)`)
	revisedRe      = regexp.MustCompile(`(?is)REVISED OUTPUT:(.*)$`)
	bulletRe       = regexp.MustCompile(`(?m)^\s*[-*•]\s*(.+)$`)
)

// parseCritique decodes the line-oriented critique format:
//
//	SCORE: [number]
//	STRENGTHS:
//	- ...
//	WEAKNESSES:
//	- ...
//	IMPROVEMENTS:
//	- ...
//	REVISED OUTPUT:
//	[improved version or "No major revisions needed"]
//
// A missing or out-of-range score is a hard failure.
func parseCritique(raw string) (*Result, error) {
	m := scoreRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, &ParseError{Reason: "missing SCORE section", Raw: raw}
	}
	score, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid score %q", m[1]), Raw: raw}
	}
	if score < 0 || score > 10 {
		return nil, &ParseError{Reason: fmt.Sprintf("score %.1f outside 0-10 scale", score), Raw: raw}
	}

	result := &Result{
		Score:        score,
		Strengths:    bullets(strengthsRe, raw),
		Weaknesses:   bullets(weaknessesRe, raw),
		Improvements: bullets(improvementsRe, raw),
		Raw:          raw,
	}

	if m := revisedRe.FindStringSubmatch(raw); m != nil {
		revised := strings.TrimSpace(m[1])
		if revised != "" && !strings.Contains(strings.ToLower(revised), noRevisionSentinel) {
			result.RevisedOutput = revised
		}
	}

	return result, nil
}

func bullets(sectionRe *regexp.Regexp, raw string) []string {
	m := sectionRe.FindStringSubmatch(raw)
	if m == nil {
		return nil
	}
	var items []string
	for _, b := range bulletRe.FindAllStringSubmatch(m[1], -1) {
		if item := strings.TrimSpace(b[1]); item != "" {
			items = append(items, item)
		}
	}
	return items
}
