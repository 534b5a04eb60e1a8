// Package flow implements the AI operations of the study assistant. Each
// flow validates its input, renders a prompt, makes one model call,
// validates the output against its schema and applies deterministic
// post-processing. Flows hold no shared mutable state and may run
// concurrently; the only blocking point is the model call itself, bounded
// solely by the caller's context.
package flow

import (
	"context"
	"encoding/json"
	"time"

	"github.com/HRSPROJECT/studybuddy-ai/internal/llm"
	"github.com/HRSPROJECT/studybuddy-ai/internal/schema"
)

// ModelClient is the outbound boundary to the generative model.
type ModelClient interface {
	Complete(ctx context.Context, req llm.Request) (string, error)
}

// ScoringPolicy selects how AnalyzeTest combines objective and subjective
// results into an overall percentage.
type ScoringPolicy string

const (
	// ScoringBlended counts each objective question as 10 points (all or
	// nothing) and each subjective question as its suggested score out of
	// 10, scaled to a percentage.
	ScoringBlended ScoringPolicy = "blended"
	// ScoringObjectiveOnly scores only the objective questions; the overall
	// score is null when a test has none.
	ScoringObjectiveOnly ScoringPolicy = "objective-only"
)

// Valid reports whether p names a known policy.
func (p ScoringPolicy) Valid() bool {
	return p == ScoringBlended || p == ScoringObjectiveOnly
}

// instruction is the grading-prompt line that states the active policy.
func (p ScoringPolicy) instruction() string {
	if p == ScoringObjectiveOnly {
		return "Compute overallScore as the percentage of objective questions answered correctly; subjective questions do not affect the score. Set overallScore to null if there are no objective questions."
	}
	return "Compute overallScore as a percentage where each objective question is worth 10 points (all or nothing) and each subjective question is worth its suggested score out of 10."
}

// Engine runs the flows against a model client.
type Engine struct {
	model  ModelClient
	policy ScoringPolicy
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithScoringPolicy overrides the default blended scoring policy.
func WithScoringPolicy(p ScoringPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithClock overrides the wall clock, for tests and deterministic IDs.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates a flow engine.
func New(m ModelClient, opts ...Option) *Engine {
	e := &Engine{
		model:  m,
		policy: ScoringBlended,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// decodeOutput parses raw model output, validates it against s and decodes
// it into dst. Any failure is an *schema.OutputError: malformed output is
// rejected, never coerced.
func decodeOutput(raw string, s schema.Schema, dst any) error {
	var tree any
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		return &schema.OutputError{Fields: []schema.FieldError{
			{Path: "", Message: "response is not valid JSON: " + err.Error()},
		}}
	}
	if errs := s.Validate("", tree); len(errs) > 0 {
		schema.SortErrors(errs)
		return &schema.OutputError{Fields: errs}
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return &schema.OutputError{Fields: []schema.FieldError{
			{Path: "", Message: "response does not decode: " + err.Error()},
		}}
	}
	return nil
}
