package flow

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/HRSPROJECT/studybuddy-ai/internal/i18n"
	"github.com/HRSPROJECT/studybuddy-ai/internal/model"
	"github.com/HRSPROJECT/studybuddy-ai/internal/schema"
)

// minFlashcards is the smallest deck a batch request may produce.
const minFlashcards = 5

// parseClock12 converts a 12-hour clock string like "09:30 AM" to minutes
// since midnight.
func parseClock12(s string) (int, error) {
	t, err := time.Parse("3:04 PM", strings.ToUpper(strings.TrimSpace(s)))
	if err != nil {
		return 0, fmt.Errorf("parse 12-hour time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// sortPlan orders dailySessions ascending by date and each day's sessions
// ascending by parsed start time. The model is asked for this order but not
// trusted to produce it. Sessions with unparseable start times keep their
// relative order after the parseable ones; the sort is a guard, not a
// validator.
func sortPlan(p *model.StudyPlanResult) {
	sort.SliceStable(p.DailySessions, func(i, j int) bool {
		return p.DailySessions[i].Date < p.DailySessions[j].Date
	})
	for d := range p.DailySessions {
		sessions := p.DailySessions[d].Sessions
		sort.SliceStable(sessions, func(i, j int) bool {
			return sessionStart(sessions[i]) < sessionStart(sessions[j])
		})
	}
}

func sessionStart(s model.StudySession) int {
	m, err := parseClock12(s.StartTime)
	if err != nil {
		return 24 * 60
	}
	return m
}

// backfillQuestionIDs fills in any question or option IDs the model omitted.
// Question IDs derive from the given timestamp plus the question's position;
// option IDs derive from the parent question ID plus the option's position.
// IDs the model did provide are kept.
func backfillQuestionIDs(questions []model.TestQuestion, stamp int64) []model.TestQuestion {
	for i := range questions {
		q := &questions[i]
		if q.ID == "" {
			q.ID = fmt.Sprintf("q-%d-%d", stamp, i+1)
		}
		for j := range q.Options {
			if q.Options[j].ID == "" {
				q.Options[j].ID = fmt.Sprintf("%s-opt%d", q.ID, j+1)
			}
		}
	}
	return questions
}

// normalizeQuestions enforces the per-type shape of generated questions:
// subjective questions carry no options and no answer key; objective
// questions always carry a non-nil options slice and, when an answer key is
// present, it must reference exactly one of them. Shape violations beyond
// what ID backfilling can repair are reported, never patched.
func normalizeQuestions(questions []model.TestQuestion) ([]model.TestQuestion, []schema.FieldError) {
	var errs []schema.FieldError
	for i := range questions {
		q := &questions[i]
		switch q.Type {
		case model.QuestionSubjective:
			q.Options = nil
			q.CorrectAnswerKey = ""
		case model.QuestionObjective:
			if q.Options == nil {
				q.Options = []model.Option{}
			}
			if q.CorrectAnswerKey != "" {
				matches := 0
				for _, opt := range q.Options {
					if opt.ID == q.CorrectAnswerKey {
						matches++
					}
				}
				if matches != 1 {
					errs = append(errs, schema.FieldError{
						Path:    fmt.Sprintf("questions[%d].correctAnswerKey", i),
						Message: fmt.Sprintf("%q matches %d options, want exactly 1", q.CorrectAnswerKey, matches),
					})
				}
			}
		}
	}
	return questions, errs
}

// clampCardCount raises a requested flashcard count to the deck minimum.
func clampCardCount(n int) int {
	if n < minFlashcards {
		return minFlashcards
	}
	return n
}

// resolveUserAnswer turns a stored raw response into display text. For
// objective questions the stored value is an option ID; for subjective ones
// it is the answer itself. Missing and unmatchable responses resolve to
// localized markers rather than empty strings so both the grading prompt and
// the basic report show what actually happened.
func resolveUserAnswer(ctx context.Context, q model.TestQuestion, responses map[string]string) string {
	raw, ok := responses[q.ID]
	if q.Type == model.QuestionObjective {
		if !ok || raw == "" {
			return i18n.T(ctx, "flow.no_answer")
		}
		for _, opt := range q.Options {
			if opt.ID == raw {
				return opt.Text
			}
		}
		return i18n.T(ctx, "flow.invalid_option")
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return i18n.T(ctx, "flow.no_answer")
	}
	return raw
}

// correctAnswerText resolves the reference answer shown to the grader: the
// correct option's text for objective questions, the model answer otherwise.
func correctAnswerText(q model.TestQuestion) string {
	if q.Type == model.QuestionObjective && q.CorrectAnswerKey != "" {
		for _, opt := range q.Options {
			if opt.ID == q.CorrectAnswerKey {
				return opt.Text
			}
		}
	}
	return q.CorrectAnswerText
}

// basicReport grades a test without the model: objective questions are
// checked against the stored answer key, subjective ones get a placeholder
// and no score, and the overall percentage covers objective questions only.
// The limitation is stated in the overall feedback. This is the one defined
// degraded mode in the whole core.
func basicReport(ctx context.Context, req model.TestAnalysisRequest) model.TestAnalysisReport {
	analyses := make([]model.QuestionAnalysis, 0, len(req.Questions))
	objTotal, objCorrect := 0, 0

	for _, q := range req.Questions {
		qa := model.QuestionAnalysis{
			QuestionID:        q.ID,
			QuestionText:      q.QuestionText,
			UserAnswerText:    resolveUserAnswer(ctx, q, req.UserResponses),
			CorrectAnswerText: correctAnswerText(q),
		}
		if q.Type == model.QuestionObjective {
			objTotal++
			raw, ok := req.UserResponses[q.ID]
			qa.IsCorrect = ok && raw != "" && raw == q.CorrectAnswerKey
			if qa.IsCorrect {
				objCorrect++
				qa.Feedback = i18n.T(ctx, "flow.correct")
			} else {
				qa.Feedback = i18n.T(ctx, "flow.incorrect")
			}
		} else {
			qa.Feedback = i18n.T(ctx, "flow.ai_feedback_unavailable")
		}
		analyses = append(analyses, qa)
	}

	report := model.TestAnalysisReport{
		OverallFeedback:  i18n.T(ctx, "flow.basic_report_feedback"),
		QuestionAnalyses: analyses,
	}
	if objTotal > 0 {
		score := float64(objCorrect) / float64(objTotal) * 100
		report.OverallScore = &score
	}
	return report
}
