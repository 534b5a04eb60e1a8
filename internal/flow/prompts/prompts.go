// Package prompts renders the natural-language instruction text sent to the
// model, one template per flow. Rendering is pure: a typed context in,
// request text out, no I/O beyond the embedded template files.
package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/HRSPROJECT/studybuddy-ai/internal/model"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[string]*template.Template
)

func load() error {
	loadOnce.Do(func() {
		templates = make(map[string]*template.Template)
		entries, err := templateFS.ReadDir("templates")
		if err != nil {
			loadErr = fmt.Errorf("read templates dir: %w", err)
			return
		}
		for _, e := range entries {
			name := strings.TrimSuffix(e.Name(), ".tmpl")
			content, err := templateFS.ReadFile("templates/" + e.Name())
			if err != nil {
				loadErr = fmt.Errorf("read template %s: %w", e.Name(), err)
				return
			}
			tmpl, err := template.New(name).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse template %s: %w", e.Name(), err)
				return
			}
			templates[name] = tmpl
		}
	})
	return loadErr
}

func render(name string, data any) (string, error) {
	if err := load(); err != nil {
		return "", err
	}
	tmpl, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt %s: %w", name, err)
	}
	return buf.String(), nil
}

// ResolveQuestionData feeds the homework-question template.
type ResolveQuestionData struct {
	QuestionText string
	HasImage     bool
	Contract     string
}

// ResolveQuestion renders the homework-question prompt.
func ResolveQuestion(d ResolveQuestionData) (string, error) {
	return render("resolve_question", d)
}

// SummarizeData feeds the conversation-title template.
type SummarizeData struct {
	History  string
	Contract string
}

// Summarize renders the conversation-title prompt.
func Summarize(d SummarizeData) (string, error) {
	return render("summarize", d)
}

// StudyPlanData feeds the study-plan template. WeakAreas, StudyHours and
// PreferredDays are pre-rendered strings; empty means the section is omitted.
type StudyPlanData struct {
	Today         string
	Exams         []model.Exam
	WeakAreas     string
	LearningPace  string
	StudyHours    string
	PreferredDays string
	Notes         string
	Contract      string
}

// StudyPlan renders the study-plan prompt.
func StudyPlan(d StudyPlanData) (string, error) {
	return render("study_plan", d)
}

// GenerateTestData feeds the test-generation template.
type GenerateTestData struct {
	Title         string
	Subject       string
	Description   string
	NumSubjective int
	NumObjective  int
	Contract      string
}

// GenerateTest renders the test-generation prompt.
func GenerateTest(d GenerateTestData) (string, error) {
	return render("generate_test", d)
}

// AnalysisQuestion is one question as shown to the grader, with the
// student's stored response already resolved to display text and a 1-based
// display index for prompt readability.
type AnalysisQuestion struct {
	Index             int
	ID                string
	Type              model.QuestionType
	QuestionText      string
	Options           []model.Option
	CorrectAnswerText string
	UserAnswerText    string
}

// AnalyzeTestData feeds the grading template.
type AnalyzeTestData struct {
	TestTitle         string
	TestSubject       string
	TestDescription   string
	Questions         []AnalysisQuestion
	PolicyInstruction string
	Contract          string
}

// AnalyzeTest renders the grading prompt.
func AnalyzeTest(d AnalyzeTestData) (string, error) {
	return render("analyze_test", d)
}

// FlashcardAnswerData feeds the single-card answer template.
type FlashcardAnswerData struct {
	QuestionText string
	Contract     string
}

// FlashcardAnswer renders the single-card answer prompt.
func FlashcardAnswer(d FlashcardAnswerData) (string, error) {
	return render("flashcard_answer", d)
}

// FlashcardBatchData feeds the deck-generation template.
type FlashcardBatchData struct {
	Topic    string
	Count    int
	Contract string
}

// FlashcardBatch renders the deck-generation prompt.
func FlashcardBatch(d FlashcardBatchData) (string, error) {
	return render("flashcard_batch", d)
}
