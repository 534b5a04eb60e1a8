package model

import (
	"context"
	"time"
)

// LearningPace describes how aggressively a study plan schedules work.
type LearningPace string

const (
	PaceRelaxed   LearningPace = "relaxed"
	PaceModerate  LearningPace = "moderate"
	PaceIntensive LearningPace = "intensive"
)

// QuestionType distinguishes free-text questions from multiple-choice ones.
type QuestionType string

const (
	QuestionSubjective QuestionType = "subjective"
	QuestionObjective  QuestionType = "objective"
)

// ChatRole represents a chat message role.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// DefaultExamType is used when an exam carries no explicit type label.
const DefaultExamType = "Exam"

type ownerCtxKey struct{}

// ContextWithOwner stores the authenticated owner ID in the request context.
// The ID is an opaque string issued by the external identity provider.
func ContextWithOwner(ctx context.Context, ownerID string) context.Context {
	return context.WithValue(ctx, ownerCtxKey{}, ownerID)
}

// OwnerFromContext retrieves the owner ID from context (empty if not set).
func OwnerFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ownerCtxKey{}).(string)
	return id
}

// Exam is an upcoming exam used as study-plan generation input.
type Exam struct {
	ID      string `json:"id"`
	Subject string `json:"subject" validate:"required"`
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	Type    string `json:"type"`
}

// StudyPlanRequest carries everything the planner needs to build a schedule.
type StudyPlanRequest struct {
	Exams              []Exam   `json:"exams" validate:"required,min=1,dive"`
	WeakAreas          []string `json:"weakAreas"`
	LearningPace       string   `json:"learningPace" validate:"required,oneof=relaxed moderate intensive"`
	StudyHoursPerWeek  *float64 `json:"studyHoursPerWeek" validate:"omitempty,gte=1,lte=70"`
	PreferredStudyDays []string `json:"preferredStudyDays" validate:"omitempty,dive,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	Notes              string   `json:"notes"`
}

// StudySession is a single scheduled block within a study plan.
// Times are 12-hour clock strings like "09:30 AM".
type StudySession struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Subject   string `json:"subject"`
	Activity  string `json:"activity"`
	IsBreak   bool   `json:"isBreak"`
}

// DailySessions groups the sessions scheduled for one calendar date.
type DailySessions struct {
	Date     string         `json:"date"`
	Sessions []StudySession `json:"sessions"`
}

// StudyPlanResult is the generated plan. DailySessions is sorted ascending by
// date and each day's sessions ascending by start time.
type StudyPlanResult struct {
	PlanTitle     string          `json:"planTitle,omitempty"`
	DailySessions []DailySessions `json:"dailySessions"`
	SummaryNotes  string          `json:"summaryNotes,omitempty"`
}

// Option is one answer choice of an objective question.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// TestQuestion is a generated test question. Objective questions carry
// options and a correctAnswerKey referencing one option; subjective
// questions carry neither.
type TestQuestion struct {
	ID                string       `json:"id"`
	Type              QuestionType `json:"type"`
	QuestionText      string       `json:"questionText"`
	Options           []Option     `json:"options,omitempty"`
	CorrectAnswerKey  string       `json:"correctAnswerKey,omitempty"`
	CorrectAnswerText string       `json:"correctAnswerText,omitempty"`
}

// TestGenerationRequest asks for a test with the given question mix.
// The total question count must be between 1 and 20; the bound is enforced
// before any model call.
type TestGenerationRequest struct {
	Title         string `json:"title" validate:"required"`
	Subject       string `json:"subject"`
	Description   string `json:"description"`
	NumSubjective int    `json:"numSubjective" validate:"gte=0"`
	NumObjective  int    `json:"numObjective" validate:"gte=0"`
}

// TestAnalysisRequest asks for grading of a completed test attempt.
// UserResponses maps question IDs to the raw stored answer: an option ID for
// objective questions, free text for subjective ones.
type TestAnalysisRequest struct {
	TestTitle       string            `json:"testTitle" validate:"required"`
	TestSubject     string            `json:"testSubject"`
	TestDescription string            `json:"testDescription"`
	Questions       []TestQuestion    `json:"questions" validate:"required,min=1"`
	UserResponses   map[string]string `json:"userResponses"`
}

// QuestionAnalysis is the per-question portion of a graded report.
type QuestionAnalysis struct {
	QuestionID             string   `json:"questionId"`
	QuestionText           string   `json:"questionText"`
	UserAnswerText         string   `json:"userAnswerText"`
	CorrectAnswerText      string   `json:"correctAnswerText,omitempty"`
	IsCorrect              bool     `json:"isCorrect"`
	Feedback               string   `json:"feedback"`
	SuggestedScoreOutOfTen *float64 `json:"suggestedScoreOutOfTen,omitempty"`
}

// TestAnalysisReport is the graded result of a test attempt.
// OverallScore is a percentage in [0,100], or nil when no score could be
// computed.
type TestAnalysisReport struct {
	OverallScore     *float64           `json:"overallScore"`
	OverallFeedback  string             `json:"overallFeedback"`
	QuestionAnalyses []QuestionAnalysis `json:"questionAnalyses"`
}

// FlashcardPair is one generated question/answer card.
type FlashcardPair struct {
	QuestionText string `json:"questionText"`
	AnswerText   string `json:"answerText"`
}

// QuestionAnswerRequest asks the assistant to resolve a homework question.
// ImageDataURI optionally attaches a picture of the problem as a data URI.
type QuestionAnswerRequest struct {
	QuestionText string `json:"questionText" validate:"required"`
	ImageDataURI string `json:"imageDataUri"`
}

// QuestionAnswerResult is the assistant's generated explanation.
type QuestionAnswerResult struct {
	AnswerText string `json:"answerText"`
}

// FlashcardBatchRequest asks for a set of flashcards on a topic.
// NumberOfCards is clamped to a minimum of 5 before generation.
type FlashcardBatchRequest struct {
	Topic         string `json:"topic" validate:"required"`
	NumberOfCards int    `json:"numberOfCards" validate:"gte=0"`
}

// Conversation is a stored homework-assistant chat.
type Conversation struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ChatMessage is one stored message within a conversation.
type ChatMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Role           ChatRole  `json:"role"`
	Content        string    `json:"content"`
	ImageURL       string    `json:"imageUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// SavedTest is a generated test persisted for later attempts.
type SavedTest struct {
	ID          string         `json:"id"`
	OwnerID     string         `json:"ownerId"`
	Title       string         `json:"title"`
	Subject     string         `json:"subject,omitempty"`
	Description string         `json:"description,omitempty"`
	Questions   []TestQuestion `json:"questions"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// TestResult is a stored graded attempt at a saved test.
type TestResult struct {
	ID        string             `json:"id"`
	OwnerID   string             `json:"ownerId"`
	TestID    string             `json:"testId"`
	Report    TestAnalysisReport `json:"report"`
	CreatedAt time.Time          `json:"createdAt"`
}

// SavedPlan is a stored generated study plan.
type SavedPlan struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"ownerId"`
	Title     string          `json:"title"`
	Plan      StudyPlanResult `json:"plan"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Flashcard is one stored card.
type Flashcard struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"ownerId"`
	Topic        string    `json:"topic"`
	QuestionText string    `json:"questionText"`
	AnswerText   string    `json:"answerText"`
	CreatedAt    time.Time `json:"createdAt"`
}
