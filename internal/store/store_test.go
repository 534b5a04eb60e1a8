package store

import (
	"errors"
	"testing"

	"github.com/HRSPROJECT/studybuddy-ai/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConversationLifecycle(t *testing.T) {
	s := newTestStore(t)

	c, err := s.CreateConversation("user-1", "Algebra homework")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if c.ID == "" {
		t.Fatal("empty conversation ID")
	}

	got, err := s.GetConversation("user-1", c.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if got.Title != "Algebra homework" {
		t.Errorf("title = %q", got.Title)
	}

	if err := s.UpdateConversationTitle("user-1", c.ID, "Quadratics"); err != nil {
		t.Fatalf("UpdateConversationTitle: %v", err)
	}
	got, err = s.GetConversation("user-1", c.ID)
	if err != nil {
		t.Fatalf("GetConversation after rename: %v", err)
	}
	if got.Title != "Quadratics" {
		t.Errorf("title after rename = %q", got.Title)
	}

	if err := s.DeleteConversation("user-1", c.ID); err != nil {
		t.Fatalf("DeleteConversation: %v", err)
	}
	if _, err := s.GetConversation("user-1", c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: got %v, want ErrNotFound", err)
	}
}

func TestConversationOwnerIsolation(t *testing.T) {
	s := newTestStore(t)

	c, err := s.CreateConversation("user-1", "Mine")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}

	if _, err := s.GetConversation("user-2", c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner get: got %v, want ErrNotFound", err)
	}
	if err := s.DeleteConversation("user-2", c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner delete: got %v, want ErrNotFound", err)
	}
	if _, err := s.AddMessage("user-2", c.ID, model.RoleUser, "hi", ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner add message: got %v, want ErrNotFound", err)
	}

	list, err := s.ListConversations("user-2")
	if err != nil {
		t.Fatalf("ListConversations: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("user-2 sees %d conversations", len(list))
	}
}

func TestMessagesKeepOrder(t *testing.T) {
	s := newTestStore(t)

	c, err := s.CreateConversation("user-1", "Chat")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	for _, content := range []string{"first", "second", "third"} {
		if _, err := s.AddMessage("user-1", c.ID, model.RoleUser, content, ""); err != nil {
			t.Fatalf("AddMessage(%s): %v", content, err)
		}
	}

	messages, err := s.GetMessages("user-1", c.ID)
	if err != nil {
		t.Fatalf("GetMessages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("got %d messages", len(messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		if messages[i].Content != want {
			t.Errorf("message %d = %q, want %q", i, messages[i].Content, want)
		}
	}
}

func TestSavedTestsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	questions := []model.TestQuestion{
		{
			ID:               "q1",
			Type:             model.QuestionObjective,
			QuestionText:     "Capital of France?",
			Options:          []model.Option{{ID: "q1-opt1", Text: "Paris"}, {ID: "q1-opt2", Text: "Lyon"}},
			CorrectAnswerKey: "q1-opt1",
		},
		{ID: "q2", Type: model.QuestionSubjective, QuestionText: "Explain osmosis.", CorrectAnswerText: "Diffusion of water."},
	}

	saved, err := s.SaveTest("user-1", "Mixed", "Science", "", questions)
	if err != nil {
		t.Fatalf("SaveTest: %v", err)
	}

	got, err := s.GetTest("user-1", saved.ID)
	if err != nil {
		t.Fatalf("GetTest: %v", err)
	}
	if len(got.Questions) != 2 {
		t.Fatalf("got %d questions", len(got.Questions))
	}
	if got.Questions[0].CorrectAnswerKey != "q1-opt1" {
		t.Errorf("answer key = %q", got.Questions[0].CorrectAnswerKey)
	}
	if got.Questions[1].CorrectAnswerText != "Diffusion of water." {
		t.Errorf("answer text = %q", got.Questions[1].CorrectAnswerText)
	}

	if _, err := s.GetTest("user-2", saved.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-owner get: got %v, want ErrNotFound", err)
	}
}

func TestDeleteTestRemovesResults(t *testing.T) {
	s := newTestStore(t)

	saved, err := s.SaveTest("user-1", "Quiz", "", "", []model.TestQuestion{
		{ID: "q1", Type: model.QuestionSubjective, QuestionText: "Why?"},
	})
	if err != nil {
		t.Fatalf("SaveTest: %v", err)
	}
	if _, err := s.SaveTestResult("user-1", saved.ID, model.TestAnalysisReport{OverallFeedback: "ok"}); err != nil {
		t.Fatalf("SaveTestResult: %v", err)
	}

	if err := s.DeleteTest("user-1", saved.ID); err != nil {
		t.Fatalf("DeleteTest: %v", err)
	}
	results, err := s.ListTestResults("user-1", saved.ID)
	if err != nil {
		t.Fatalf("ListTestResults: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results survived test deletion: %d", len(results))
	}
}

func TestTestResultReportRoundTrip(t *testing.T) {
	s := newTestStore(t)

	saved, err := s.SaveTest("user-1", "Quiz", "", "", []model.TestQuestion{
		{ID: "q1", Type: model.QuestionObjective, QuestionText: "1+1?"},
	})
	if err != nil {
		t.Fatalf("SaveTest: %v", err)
	}

	score := 75.0
	report := model.TestAnalysisReport{
		OverallScore:    &score,
		OverallFeedback: "Solid attempt.",
		QuestionAnalyses: []model.QuestionAnalysis{
			{QuestionID: "q1", QuestionText: "1+1?", UserAnswerText: "2", IsCorrect: true, Feedback: "Correct."},
		},
	}
	if _, err := s.SaveTestResult("user-1", saved.ID, report); err != nil {
		t.Fatalf("SaveTestResult: %v", err)
	}

	results, err := s.ListTestResults("user-1", saved.ID)
	if err != nil {
		t.Fatalf("ListTestResults: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	got := results[0].Report
	if got.OverallScore == nil || *got.OverallScore != 75 {
		t.Errorf("overall score = %v", got.OverallScore)
	}
	if len(got.QuestionAnalyses) != 1 || !got.QuestionAnalyses[0].IsCorrect {
		t.Errorf("question analyses = %+v", got.QuestionAnalyses)
	}
}

func TestPlansRoundTrip(t *testing.T) {
	s := newTestStore(t)

	plan := model.StudyPlanResult{
		PlanTitle: "Finals prep",
		DailySessions: []model.DailySessions{
			{Date: "2026-09-01", Sessions: []model.StudySession{
				{Date: "2026-09-01", StartTime: "09:00 AM", EndTime: "10:00 AM", Subject: "Math", Activity: "review"},
			}},
		},
	}
	saved, err := s.SavePlan("user-1", "Finals prep", plan)
	if err != nil {
		t.Fatalf("SavePlan: %v", err)
	}

	got, err := s.GetPlan("user-1", saved.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if got.Plan.DailySessions[0].Sessions[0].StartTime != "09:00 AM" {
		t.Errorf("start time = %q", got.Plan.DailySessions[0].Sessions[0].StartTime)
	}

	if err := s.DeletePlan("user-1", saved.ID); err != nil {
		t.Fatalf("DeletePlan: %v", err)
	}
	if _, err := s.GetPlan("user-1", saved.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("after delete: got %v, want ErrNotFound", err)
	}
}

func TestFlashcardsBatch(t *testing.T) {
	s := newTestStore(t)

	cards := []model.FlashcardPair{
		{QuestionText: "q1", AnswerText: "a1"},
		{QuestionText: "q2", AnswerText: "a2"},
	}
	saved, err := s.SaveFlashcards("user-1", "Biology", cards)
	if err != nil {
		t.Fatalf("SaveFlashcards: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("saved %d cards", len(saved))
	}

	list, err := s.ListFlashcards("user-1")
	if err != nil {
		t.Fatalf("ListFlashcards: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("listed %d cards", len(list))
	}
	for _, f := range list {
		if f.Topic != "Biology" {
			t.Errorf("topic = %q", f.Topic)
		}
	}

	if err := s.DeleteFlashcard("user-1", saved[0].ID); err != nil {
		t.Fatalf("DeleteFlashcard: %v", err)
	}
	if err := s.DeleteFlashcard("user-1", saved[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestCounterCompareAndSwap(t *testing.T) {
	s := newTestStore(t)

	value, err := s.IncrementCounter("user-1", "tests_taken", 1, 0)
	if err != nil {
		t.Fatalf("first increment: %v", err)
	}
	if value != 1 {
		t.Errorf("value = %d, want 1", value)
	}

	_, version, err := s.GetCounter("user-1", "tests_taken")
	if err != nil {
		t.Fatalf("GetCounter: %v", err)
	}
	value, err = s.IncrementCounter("user-1", "tests_taken", 2, version)
	if err != nil {
		t.Fatalf("second increment: %v", err)
	}
	if value != 3 {
		t.Errorf("value = %d, want 3", value)
	}

	if _, err := s.IncrementCounter("user-1", "tests_taken", 1, version); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("stale version: got %v, want ErrVersionConflict", err)
	}
	if _, err := s.IncrementCounter("user-1", "tests_taken", 1, 0); !errors.Is(err, ErrVersionConflict) {
		t.Errorf("zero version on existing counter: got %v, want ErrVersionConflict", err)
	}

	value, _, err = s.GetCounter("user-1", "tests_taken")
	if err != nil {
		t.Fatalf("GetCounter after conflict: %v", err)
	}
	if value != 3 {
		t.Errorf("conflicting write changed value to %d", value)
	}
}

func TestExportOwner(t *testing.T) {
	s := newTestStore(t)

	c, err := s.CreateConversation("user-1", "Chat")
	if err != nil {
		t.Fatalf("CreateConversation: %v", err)
	}
	if _, err := s.AddMessage("user-1", c.ID, model.RoleUser, "hello", ""); err != nil {
		t.Fatalf("AddMessage: %v", err)
	}
	savedTest, err := s.SaveTest("user-1", "Quiz", "", "", []model.TestQuestion{
		{ID: "q1", Type: model.QuestionSubjective, QuestionText: "Why?"},
	})
	if err != nil {
		t.Fatalf("SaveTest: %v", err)
	}
	if _, err := s.SaveTestResult("user-1", savedTest.ID, model.TestAnalysisReport{OverallFeedback: "ok"}); err != nil {
		t.Fatalf("SaveTestResult: %v", err)
	}
	if _, err := s.SavePlan("user-1", "Plan", model.StudyPlanResult{}); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	if _, err := s.SaveFlashcards("user-1", "Topic", []model.FlashcardPair{{QuestionText: "q", AnswerText: "a"}}); err != nil {
		t.Fatalf("SaveFlashcards: %v", err)
	}
	if _, err := s.CreateConversation("user-2", "Not mine"); err != nil {
		t.Fatalf("CreateConversation other owner: %v", err)
	}

	export, err := s.ExportOwner("user-1")
	if err != nil {
		t.Fatalf("ExportOwner: %v", err)
	}
	if export.OwnerID != "user-1" {
		t.Errorf("owner = %q", export.OwnerID)
	}
	if len(export.Conversations) != 1 || len(export.Conversations[0].Messages) != 1 {
		t.Errorf("conversations = %+v", export.Conversations)
	}
	if len(export.Tests) != 1 || len(export.Results) != 1 || len(export.Plans) != 1 || len(export.Flashcards) != 1 {
		t.Errorf("export counts: tests=%d results=%d plans=%d cards=%d",
			len(export.Tests), len(export.Results), len(export.Plans), len(export.Flashcards))
	}
}
