package flow

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/HRSPROJECT/studybuddy-ai/internal/llm"
	"github.com/HRSPROJECT/studybuddy-ai/internal/model"
	"github.com/HRSPROJECT/studybuddy-ai/internal/schema"
	"github.com/HRSPROJECT/studybuddy-ai/internal/validate"
)

type stubModel struct {
	response string
	err      error
	calls    int
	lastReq  llm.Request
}

func (s *stubModel) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.UnixMilli(1700000000000) }
}

func TestResolveQuestionPassesImage(t *testing.T) {
	stub := &stubModel{response: `{"answerText":"Because the angles sum to 180 degrees."}`}
	e := New(stub)

	res, err := e.ResolveQuestion(context.Background(), model.QuestionAnswerRequest{
		QuestionText: "Why do the angles of a triangle sum to 180?",
		ImageDataURI: "data:image/png;base64,AAAA",
	})
	if err != nil {
		t.Fatalf("ResolveQuestion: %v", err)
	}
	if res.AnswerText == "" {
		t.Error("empty answer text")
	}
	if stub.lastReq.ImageDataURI != "data:image/png;base64,AAAA" {
		t.Errorf("image not forwarded: %q", stub.lastReq.ImageDataURI)
	}
	if !stub.lastReq.JSON {
		t.Error("JSON mode not requested")
	}
	if !strings.Contains(stub.lastReq.Prompt, "answerText") {
		t.Error("prompt missing output contract")
	}
}

func TestResolveQuestionRejectsEmpty(t *testing.T) {
	stub := &stubModel{}
	e := New(stub)

	_, err := e.ResolveQuestion(context.Background(), model.QuestionAnswerRequest{})
	var ierr *validate.InputError
	if !errors.As(err, &ierr) {
		t.Fatalf("got %v, want InputError", err)
	}
	if stub.calls != 0 {
		t.Errorf("model called %d times for invalid input", stub.calls)
	}
}

func TestSummarizeConversation(t *testing.T) {
	t.Run("blank history rejected", func(t *testing.T) {
		stub := &stubModel{}
		e := New(stub)
		_, err := e.SummarizeConversation(context.Background(), "   ")
		var ierr *validate.InputError
		if !errors.As(err, &ierr) {
			t.Fatalf("got %v, want InputError", err)
		}
		if stub.calls != 0 {
			t.Errorf("model called %d times", stub.calls)
		}
	})

	t.Run("trims summary", func(t *testing.T) {
		stub := &stubModel{response: `{"summary":"  Quadratic equations  "}`}
		e := New(stub)
		got, err := e.SummarizeConversation(context.Background(), "user: help with x^2\nassistant: sure")
		if err != nil {
			t.Fatalf("SummarizeConversation: %v", err)
		}
		if got != "Quadratic equations" {
			t.Errorf("summary = %q", got)
		}
	})
}

func TestGenerateTest(t *testing.T) {
	t.Run("zero questions rejected without model call", func(t *testing.T) {
		stub := &stubModel{}
		e := New(stub)
		_, err := e.GenerateTest(context.Background(), model.TestGenerationRequest{Title: "Algebra"})
		var ierr *validate.InputError
		if !errors.As(err, &ierr) {
			t.Fatalf("got %v, want InputError", err)
		}
		if stub.calls != 0 {
			t.Errorf("model called %d times", stub.calls)
		}
	})

	t.Run("more than twenty rejected without model call", func(t *testing.T) {
		stub := &stubModel{}
		e := New(stub)
		_, err := e.GenerateTest(context.Background(), model.TestGenerationRequest{
			Title:         "Algebra",
			NumObjective:  15,
			NumSubjective: 6,
		})
		var ierr *validate.InputError
		if !errors.As(err, &ierr) {
			t.Fatalf("got %v, want InputError", err)
		}
		if stub.calls != 0 {
			t.Errorf("model called %d times", stub.calls)
		}
	})

	t.Run("backfills missing IDs", func(t *testing.T) {
		stub := &stubModel{response: `{"questions":[
			{"type":"objective","questionText":"Capital of France?",
			 "options":[{"text":"Paris"},{"text":"Lyon"}]},
			{"type":"subjective","questionText":"Explain osmosis."}
		]}`}
		e := New(stub, WithClock(fixedClock()))

		questions, err := e.GenerateTest(context.Background(), model.TestGenerationRequest{
			Title:        "Mixed",
			NumObjective: 1, NumSubjective: 1,
		})
		if err != nil {
			t.Fatalf("GenerateTest: %v", err)
		}
		if questions[0].ID != "q-1700000000000-1" {
			t.Errorf("question ID = %s", questions[0].ID)
		}
		if questions[0].Options[1].ID != "q-1700000000000-1-opt2" {
			t.Errorf("option ID = %s", questions[0].Options[1].ID)
		}
		if questions[1].Options != nil {
			t.Error("subjective question kept options")
		}
	})

	t.Run("dangling answer key rejected", func(t *testing.T) {
		stub := &stubModel{response: `{"questions":[
			{"id":"q1","type":"objective","questionText":"Capital of France?",
			 "options":[{"id":"a","text":"Paris"}],"correctAnswerKey":"z"}
		]}`}
		e := New(stub)

		_, err := e.GenerateTest(context.Background(), model.TestGenerationRequest{
			Title: "Broken", NumObjective: 1,
		})
		var oerr *schema.OutputError
		if !errors.As(err, &oerr) {
			t.Fatalf("got %v, want OutputError", err)
		}
	})

	t.Run("non-JSON output rejected", func(t *testing.T) {
		stub := &stubModel{response: "Here are your questions!"}
		e := New(stub)

		_, err := e.GenerateTest(context.Background(), model.TestGenerationRequest{
			Title: "Algebra", NumObjective: 2,
		})
		var oerr *schema.OutputError
		if !errors.As(err, &oerr) {
			t.Fatalf("got %v, want OutputError", err)
		}
	})
}

func TestGenerateStudyPlanSortsOutput(t *testing.T) {
	stub := &stubModel{response: `{"planTitle":"Exam prep","dailySessions":[
		{"date":"2026-09-02","sessions":[
			{"date":"2026-09-02","startTime":"02:00 PM","endTime":"03:00 PM","subject":"Math","activity":"review"}
		]},
		{"date":"2026-09-01","sessions":[
			{"date":"2026-09-01","startTime":"11:00 AM","endTime":"12:00 PM","subject":"Math","activity":"practice"},
			{"date":"2026-09-01","startTime":"09:00 AM","endTime":"10:00 AM","subject":"Math","activity":"read"}
		]}
	]}`}
	e := New(stub)

	hours := 10.0
	plan, err := e.GenerateStudyPlan(context.Background(), model.StudyPlanRequest{
		Exams:             []model.Exam{{Subject: "Math", Date: "2026-09-10"}},
		LearningPace:      "moderate",
		StudyHoursPerWeek: &hours,
		WeakAreas:         []string{"integrals", "limits"},
	})
	if err != nil {
		t.Fatalf("GenerateStudyPlan: %v", err)
	}
	if plan.DailySessions[0].Date != "2026-09-01" {
		t.Errorf("first day = %s", plan.DailySessions[0].Date)
	}
	if plan.DailySessions[0].Sessions[0].Activity != "read" {
		t.Errorf("first session = %s", plan.DailySessions[0].Sessions[0].Activity)
	}
	if !strings.Contains(stub.lastReq.Prompt, "integrals, limits") {
		t.Error("weak areas missing from prompt")
	}
	if !strings.Contains(stub.lastReq.Prompt, "10") {
		t.Error("study hours missing from prompt")
	}
}

func TestGenerateStudyPlanDefaultsExamType(t *testing.T) {
	stub := &stubModel{response: `{"dailySessions":[]}`}
	e := New(stub)

	req := model.StudyPlanRequest{
		Exams:        []model.Exam{{Subject: "History", Date: "2026-09-10"}},
		LearningPace: "relaxed",
	}
	if _, err := e.GenerateStudyPlan(context.Background(), req); err != nil {
		t.Fatalf("GenerateStudyPlan: %v", err)
	}
	if !strings.Contains(stub.lastReq.Prompt, model.DefaultExamType) {
		t.Error("default exam type missing from prompt")
	}
	if req.Exams[0].Type != "" {
		t.Error("caller's request mutated")
	}
}

func TestAnalyzeTest(t *testing.T) {
	req := model.TestAnalysisRequest{
		TestTitle: "Geography",
		Questions: []model.TestQuestion{
			{ID: "q1", Type: model.QuestionObjective, QuestionText: "Capital of France?",
				Options:          []model.Option{{ID: "q1-opt1", Text: "Paris"}, {ID: "q1-opt2", Text: "Lyon"}},
				CorrectAnswerKey: "q1-opt1"},
		},
		UserResponses: map[string]string{"q1": "q1-opt1"},
	}

	t.Run("resolves answers into prompt", func(t *testing.T) {
		stub := &stubModel{response: `{"overallScore":100,"overallFeedback":"Great work.","questionAnalyses":[
			{"questionId":"q1","questionText":"Capital of France?","userAnswerText":"Paris",
			 "correctAnswerText":"Paris","isCorrect":true,"feedback":"Correct."}
		]}`}
		e := New(stub)

		report, err := e.AnalyzeTest(context.Background(), req)
		if err != nil {
			t.Fatalf("AnalyzeTest: %v", err)
		}
		if report.OverallScore == nil || *report.OverallScore != 100 {
			t.Errorf("overall score = %v", report.OverallScore)
		}
		if !strings.Contains(stub.lastReq.Prompt, "Student's answer: Paris") {
			t.Error("resolved answer text missing from prompt")
		}
		if !strings.Contains(stub.lastReq.Prompt, "(id: q1)") {
			t.Error("question ID missing from prompt")
		}
	})

	t.Run("overloaded model falls back to basic report", func(t *testing.T) {
		stub := &stubModel{err: &llm.ModelError{
			Kind: llm.KindOverloaded,
			Err:  &openai.APIError{HTTPStatusCode: 503, Message: "overloaded"},
		}}
		e := New(stub)

		report, err := e.AnalyzeTest(context.Background(), req)
		if err != nil {
			t.Fatalf("AnalyzeTest: %v", err)
		}
		if stub.calls != 1 {
			t.Errorf("model called %d times", stub.calls)
		}
		if report.OverallScore == nil || *report.OverallScore != 100 {
			t.Errorf("fallback score = %v, want 100", report.OverallScore)
		}
		if !strings.Contains(report.OverallFeedback, "unavailable") {
			t.Errorf("fallback feedback = %q", report.OverallFeedback)
		}
	})

	t.Run("non-transient model error propagates", func(t *testing.T) {
		stub := &stubModel{err: &llm.ModelError{
			Kind: llm.KindOther,
			Err:  &openai.APIError{HTTPStatusCode: 400, Message: "bad request"},
		}}
		e := New(stub)

		_, err := e.AnalyzeTest(context.Background(), req)
		var merr *llm.ModelError
		if !errors.As(err, &merr) {
			t.Fatalf("got %v, want ModelError", err)
		}
		if merr.Kind != llm.KindOther {
			t.Errorf("kind = %v", merr.Kind)
		}
	})

	t.Run("malformed output is not silently downgraded", func(t *testing.T) {
		stub := &stubModel{response: `{"overallFeedback":""}`}
		e := New(stub)

		_, err := e.AnalyzeTest(context.Background(), req)
		var oerr *schema.OutputError
		if !errors.As(err, &oerr) {
			t.Fatalf("got %v, want OutputError", err)
		}
	})

	t.Run("scoring policy reaches the prompt", func(t *testing.T) {
		stub := &stubModel{response: `{"overallScore":null,"overallFeedback":"ok","questionAnalyses":[
			{"questionId":"q1","questionText":"Capital of France?","userAnswerText":"Paris",
			 "isCorrect":true,"feedback":"Correct."}
		]}`}
		e := New(stub, WithScoringPolicy(ScoringObjectiveOnly))

		if _, err := e.AnalyzeTest(context.Background(), req); err != nil {
			t.Fatalf("AnalyzeTest: %v", err)
		}
		if !strings.Contains(stub.lastReq.Prompt, "subjective questions do not affect the score") {
			t.Error("objective-only instruction missing from prompt")
		}
	})

	t.Run("empty questions rejected", func(t *testing.T) {
		stub := &stubModel{}
		e := New(stub)
		_, err := e.AnalyzeTest(context.Background(), model.TestAnalysisRequest{TestTitle: "Empty"})
		var ierr *validate.InputError
		if !errors.As(err, &ierr) {
			t.Fatalf("got %v, want InputError", err)
		}
		if stub.calls != 0 {
			t.Errorf("model called %d times", stub.calls)
		}
	})
}

func TestGenerateFlashcards(t *testing.T) {
	t.Run("count clamped to minimum", func(t *testing.T) {
		stub := &stubModel{response: `{"flashcards":[
			{"questionText":"q1","answerText":"a1"},
			{"questionText":"q2","answerText":"a2"},
			{"questionText":"q3","answerText":"a3"},
			{"questionText":"q4","answerText":"a4"},
			{"questionText":"q5","answerText":"a5"}
		]}`}
		e := New(stub)

		cards, err := e.GenerateFlashcards(context.Background(), model.FlashcardBatchRequest{
			Topic:         "Photosynthesis",
			NumberOfCards: 2,
		})
		if err != nil {
			t.Fatalf("GenerateFlashcards: %v", err)
		}
		if len(cards) != 5 {
			t.Errorf("got %d cards", len(cards))
		}
		if !strings.Contains(stub.lastReq.Prompt, "exactly 5 flashcards") {
			t.Error("clamped count missing from prompt")
		}
	})

	t.Run("missing topic rejected", func(t *testing.T) {
		stub := &stubModel{}
		e := New(stub)
		_, err := e.GenerateFlashcards(context.Background(), model.FlashcardBatchRequest{})
		var ierr *validate.InputError
		if !errors.As(err, &ierr) {
			t.Fatalf("got %v, want InputError", err)
		}
	})
}

func TestGenerateFlashcardAnswer(t *testing.T) {
	stub := &stubModel{response: `{"answerText":"An organelle that produces ATP."}`}
	e := New(stub)

	got, err := e.GenerateFlashcardAnswer(context.Background(), "What is a mitochondrion?")
	if err != nil {
		t.Fatalf("GenerateFlashcardAnswer: %v", err)
	}
	if got != "An organelle that produces ATP." {
		t.Errorf("answer = %q", got)
	}
}
