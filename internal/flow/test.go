package flow

import (
	"context"
	"fmt"

	"github.com/HRSPROJECT/studybuddy-ai/internal/flow/prompts"
	"github.com/HRSPROJECT/studybuddy-ai/internal/llm"
	"github.com/HRSPROJECT/studybuddy-ai/internal/model"
	"github.com/HRSPROJECT/studybuddy-ai/internal/schema"
	"github.com/HRSPROJECT/studybuddy-ai/internal/validate"
)

// GenerateTest produces a test with the requested mix of objective and
// subjective questions. Question and option IDs the model omitted are
// backfilled deterministically; shape violations beyond that are rejected.
func (e *Engine) GenerateTest(ctx context.Context, req model.TestGenerationRequest) ([]model.TestQuestion, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	prompt, err := prompts.GenerateTest(prompts.GenerateTestData{
		Title:         req.Title,
		Subject:       req.Subject,
		Description:   req.Description,
		NumSubjective: req.NumSubjective,
		NumObjective:  req.NumObjective,
		Contract:      generateTestSchema.Describe(),
	})
	if err != nil {
		return nil, err
	}

	raw, err := e.model.Complete(ctx, llm.Request{
		Prompt:      prompt,
		JSON:        true,
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("generate test: %w", err)
	}

	var out struct {
		Questions []model.TestQuestion `json:"questions"`
	}
	if err := decodeOutput(raw, generateTestSchema, &out); err != nil {
		return nil, err
	}

	questions := backfillQuestionIDs(out.Questions, e.now().UnixMilli())
	questions, errs := normalizeQuestions(questions)
	if len(errs) > 0 {
		schema.SortErrors(errs)
		return nil, &schema.OutputError{Fields: errs}
	}
	return questions, nil
}
