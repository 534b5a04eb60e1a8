package flow

import (
	"context"
	"fmt"
	"strings"

	"github.com/HRSPROJECT/studybuddy-ai/internal/flow/prompts"
	"github.com/HRSPROJECT/studybuddy-ai/internal/llm"
	"github.com/HRSPROJECT/studybuddy-ai/internal/model"
	"github.com/HRSPROJECT/studybuddy-ai/internal/validate"
)

// ResolveQuestion answers a homework question, optionally grounded on an
// attached image supplied as a data URI. A model failure propagates; there
// are no retries.
func (e *Engine) ResolveQuestion(ctx context.Context, req model.QuestionAnswerRequest) (*model.QuestionAnswerResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	prompt, err := prompts.ResolveQuestion(prompts.ResolveQuestionData{
		QuestionText: req.QuestionText,
		HasImage:     req.ImageDataURI != "",
		Contract:     answerSchema.Describe(),
	})
	if err != nil {
		return nil, err
	}

	raw, err := e.model.Complete(ctx, llm.Request{
		Prompt:       prompt,
		ImageDataURI: req.ImageDataURI,
		JSON:         true,
		Temperature:  0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("resolve question: %w", err)
	}

	var res model.QuestionAnswerResult
	if err := decodeOutput(raw, answerSchema, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SummarizeConversation derives a short title from a conversation
// transcript. Callers must treat failure as non-fatal and fall back to a
// truncated raw-text title.
func (e *Engine) SummarizeConversation(ctx context.Context, history string) (string, error) {
	if strings.TrimSpace(history) == "" {
		return "", validate.NewInputError("history", "must not be empty")
	}

	prompt, err := prompts.Summarize(prompts.SummarizeData{
		History:  history,
		Contract: summarySchema.Describe(),
	})
	if err != nil {
		return "", err
	}

	raw, err := e.model.Complete(ctx, llm.Request{
		Prompt:      prompt,
		JSON:        true,
		Temperature: 0.3,
	})
	if err != nil {
		return "", fmt.Errorf("summarize conversation: %w", err)
	}

	var out struct {
		Summary string `json:"summary"`
	}
	if err := decodeOutput(raw, summarySchema, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Summary), nil
}
