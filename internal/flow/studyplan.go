package flow

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/HRSPROJECT/studybuddy-ai/internal/flow/prompts"
	"github.com/HRSPROJECT/studybuddy-ai/internal/llm"
	"github.com/HRSPROJECT/studybuddy-ai/internal/model"
	"github.com/HRSPROJECT/studybuddy-ai/internal/validate"
)

// GenerateStudyPlan builds a dated schedule leading up to the given exams.
// The model is told today's date and asked never to schedule into the past;
// the returned plan is re-sorted by date and start time regardless of the
// order the model produced.
func (e *Engine) GenerateStudyPlan(ctx context.Context, req model.StudyPlanRequest) (*model.StudyPlanResult, error) {
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	exams := make([]model.Exam, len(req.Exams))
	copy(exams, req.Exams)
	for i := range exams {
		if exams[i].Type == "" {
			exams[i].Type = model.DefaultExamType
		}
	}

	data := prompts.StudyPlanData{
		Today:         e.now().Format("2006-01-02"),
		Exams:         exams,
		WeakAreas:     strings.Join(req.WeakAreas, ", "),
		LearningPace:  req.LearningPace,
		PreferredDays: strings.Join(req.PreferredStudyDays, ", "),
		Notes:         req.Notes,
		Contract:      studyPlanSchema.Describe(),
	}
	if req.StudyHoursPerWeek != nil {
		data.StudyHours = strconv.FormatFloat(*req.StudyHoursPerWeek, 'f', -1, 64)
	}

	prompt, err := prompts.StudyPlan(data)
	if err != nil {
		return nil, err
	}

	raw, err := e.model.Complete(ctx, llm.Request{
		Prompt:      prompt,
		JSON:        true,
		Temperature: 0.4,
	})
	if err != nil {
		return nil, fmt.Errorf("generate study plan: %w", err)
	}

	var plan model.StudyPlanResult
	if err := decodeOutput(raw, studyPlanSchema, &plan); err != nil {
		return nil, err
	}
	sortPlan(&plan)
	return &plan, nil
}
