package flow

import (
	"context"
	"fmt"

	"github.com/HRSPROJECT/studybuddy-ai/internal/flow/prompts"
	"github.com/HRSPROJECT/studybuddy-ai/internal/llm"
	"github.com/HRSPROJECT/studybuddy-ai/internal/model"
	"github.com/HRSPROJECT/studybuddy-ai/internal/validate"
)

// GenerateFlashcardAnswer writes the back of a single card.
func (e *Engine) GenerateFlashcardAnswer(ctx context.Context, questionText string) (string, error) {
	if questionText == "" {
		return "", validate.NewInputError("questionText", "must not be empty")
	}

	prompt, err := prompts.FlashcardAnswer(prompts.FlashcardAnswerData{
		QuestionText: questionText,
		Contract:     answerSchema.Describe(),
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
		return "", fmt.Errorf("generate flashcard answer: %w", err)
	}

	var out model.QuestionAnswerResult
	if err := decodeOutput(raw, answerSchema, &out); err != nil {
		return "", err
	}
	return out.AnswerText, nil
}

// GenerateFlashcards creates a deck of cards on a topic. The requested card
// count is clamped to the deck minimum of 5 before the model is asked,
// whatever the caller supplied.
func (e *Engine) GenerateFlashcards(ctx context.Context, req model.FlashcardBatchRequest) ([]model.FlashcardPair, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	count := clampCardCount(req.NumberOfCards)

	prompt, err := prompts.FlashcardBatch(prompts.FlashcardBatchData{
		Topic:    req.Topic,
		Count:    count,
		Contract: flashcardBatchSchema.Describe(),
	})
	if err != nil {
		return nil, err
	}

	raw, err := e.model.Complete(ctx, llm.Request{
		Prompt:      prompt,
		JSON:        true,
		Temperature: 0.5,
	})
	if err != nil {
		return nil, fmt.Errorf("generate flashcards: %w", err)
	}

	var out struct {
		Flashcards []model.FlashcardPair `json:"flashcards"`
	}
	if err := decodeOutput(raw, flashcardBatchSchema, &out); err != nil {
		return nil, err
	}
	return out.Flashcards, nil
}
