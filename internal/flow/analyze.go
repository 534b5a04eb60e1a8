package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/HRSPROJECT/studybuddy-ai/internal/flow/prompts"
	"github.com/HRSPROJECT/studybuddy-ai/internal/llm"
	"github.com/HRSPROJECT/studybuddy-ai/internal/model"
	"github.com/HRSPROJECT/studybuddy-ai/internal/validate"
)

// AnalyzeTest grades a completed test attempt. Stored responses are resolved
// to display text before grading so the model compares answers, not option
// IDs. When the model is transiently unavailable the flow degrades to a
// deterministic basic report instead of failing; malformed model output and
// non-transient errors still propagate.
func (e *Engine) AnalyzeTest(ctx context.Context, req model.TestAnalysisRequest) (*model.TestAnalysisReport, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	questions := make([]prompts.AnalysisQuestion, 0, len(req.Questions))
	for i, q := range req.Questions {
		questions = append(questions, prompts.AnalysisQuestion{
			Index:             i + 1,
			ID:                q.ID,
			Type:              q.Type,
			QuestionText:      q.QuestionText,
			Options:           q.Options,
			CorrectAnswerText: correctAnswerText(q),
			UserAnswerText:    resolveUserAnswer(ctx, q, req.UserResponses),
		})
	}

	prompt, err := prompts.AnalyzeTest(prompts.AnalyzeTestData{
		TestTitle:         req.TestTitle,
		TestSubject:       req.TestSubject,
		TestDescription:   req.TestDescription,
		Questions:         questions,
		PolicyInstruction: e.policy.instruction(),
		Contract:          analyzeTestSchema.Describe(),
	})
	if err != nil {
		return nil, err
	}

	raw, err := e.model.Complete(ctx, llm.Request{
		Prompt:      prompt,
		JSON:        true,
		Temperature: 0.1,
	})
	if err != nil {
		var merr *llm.ModelError
		if errors.As(err, &merr) && merr.Transient() {
			report := basicReport(ctx, req)
			return &report, nil
		}
		return nil, fmt.Errorf("analyze test: %w", err)
	}

	var report model.TestAnalysisReport
	if err := decodeOutput(raw, analyzeTestSchema, &report); err != nil {
		return nil, err
	}
	return &report, nil
}
