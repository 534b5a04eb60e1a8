// Package handler exposes the JSON API. Every /api route is scoped to the
// owner named by the X-User-ID header; the header value is an opaque ID
// issued by the external identity provider and is trusted as-is.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/HRSPROJECT/studybuddy-ai/internal/i18n"
	"github.com/HRSPROJECT/studybuddy-ai/internal/model"
	"github.com/HRSPROJECT/studybuddy-ai/internal/store"
)

// maxTitleLen bounds fallback conversation titles derived from raw text.
const maxTitleLen = 60

// FlowEngine is the AI-flow surface the handlers call.
type FlowEngine interface {
	ResolveQuestion(ctx context.Context, req model.QuestionAnswerRequest) (*model.QuestionAnswerResult, error)
	SummarizeConversation(ctx context.Context, history string) (string, error)
	GenerateStudyPlan(ctx context.Context, req model.StudyPlanRequest) (*model.StudyPlanResult, error)
	GenerateTest(ctx context.Context, req model.TestGenerationRequest) ([]model.TestQuestion, error)
	AnalyzeTest(ctx context.Context, req model.TestAnalysisRequest) (*model.TestAnalysisReport, error)
	GenerateFlashcardAnswer(ctx context.Context, questionText string) (string, error)
	GenerateFlashcards(ctx context.Context, req model.FlashcardBatchRequest) ([]model.FlashcardPair, error)
}

// Pinger reports whether the model endpoint is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store *store.Store
	flows FlowEngine
	model Pinger
}

// New creates a new Handler.
func New(s *store.Store, flows FlowEngine, model Pinger) *Handler {
	return &Handler{store: s, flows: flows, model: model}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(h.requireOwner)

		r.Post("/questions/resolve", h.handleResolveQuestion)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", h.handleCreateConversation)
			r.Get("/", h.handleListConversations)
			r.Get("/{id}", h.handleGetConversation)
			r.Delete("/{id}", h.handleDeleteConversation)
			r.Post("/{id}/messages", h.handlePostMessage)
		})

		r.Route("/tests", func(r chi.Router) {
			r.Post("/generate", h.handleGenerateTest)
			r.Get("/", h.handleListTests)
			r.Get("/{id}", h.handleGetTest)
			r.Delete("/{id}", h.handleDeleteTest)
			r.Post("/{id}/analyze", h.handleAnalyzeTest)
			r.Get("/{id}/results", h.handleListResults)
		})

		r.Route("/plans", func(r chi.Router) {
			r.Post("/generate", h.handleGeneratePlan)
			r.Get("/", h.handleListPlans)
			r.Get("/{id}", h.handleGetPlan)
			r.Delete("/{id}", h.handleDeletePlan)
		})

		r.Route("/flashcards", func(r chi.Router) {
			r.Post("/answer", h.handleFlashcardAnswer)
			r.Post("/generate", h.handleGenerateFlashcards)
			r.Get("/", h.handleListFlashcards)
			r.Delete("/{id}", h.handleDeleteFlashcard)
		})
	})
}

func (h *Handler) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ownerID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		if ownerID == "" {
			writeJSON(w, http.StatusUnauthorized, response{
				Code:    http.StatusUnauthorized,
				Message: i18n.T(r.Context(), "api.unauthorized"),
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(model.ContextWithOwner(r.Context(), ownerID)))
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.model.Ping(r.Context()); err != nil {
		slog.Warn("model ping failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, response{
			Code:    http.StatusServiceUnavailable,
			Message: "degraded",
		})
		return
	}
	respondOK(w, map[string]string{"status": "ok"})
}

func (h *Handler) handleResolveQuestion(w http.ResponseWriter, r *http.Request) {
	var req model.QuestionAnswerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.flows.ResolveQuestion(r.Context(), req)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondOK(w, res)
}

func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	c, err := h.store.CreateConversation(model.OwnerFromContext(r.Context()), req.Title)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondCreated(w, c)
}

func (h *Handler) handleListConversations(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListConversations(model.OwnerFromContext(r.Context()))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondOK(w, list)
}

func (h *Handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	ownerID := model.OwnerFromContext(r.Context())
	id := chi.URLParam(r, "id")

	c, err := h.store.GetConversation(ownerID, id)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	messages, err := h.store.GetMessages(ownerID, id)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondOK(w, model.ConversationExport{Conversation: c, Messages: messages})
}

func (h *Handler) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteConversation(model.OwnerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondOK(w, nil)
}

// handlePostMessage runs one turn of the homework assistant: persist the
// user's message, resolve it, persist the assistant's reply, and retitle the
// conversation after its first exchange. A failed summary never fails the
// request; the title falls back to the truncated question text.
func (h *Handler) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	ownerID := model.OwnerFromContext(r.Context())
	conversationID := chi.URLParam(r, "id")

	var req model.QuestionAnswerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	c, err := h.store.GetConversation(ownerID, conversationID)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	res, err := h.flows.ResolveQuestion(r.Context(), req)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	if _, err := h.store.AddMessage(ownerID, conversationID, model.RoleUser, req.QuestionText, req.ImageDataURI); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	reply, err := h.store.AddMessage(ownerID, conversationID, model.RoleAssistant, res.AnswerText, "")
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	if c.Title == "" {
		title := h.conversationTitle(r.Context(), ownerID, conversationID, req.QuestionText)
		if err := h.store.UpdateConversationTitle(ownerID, conversationID, title); err != nil {
			slog.Warn("update conversation title", "error", err)
		}
	}

	respondOK(w, reply)
}

func (h *Handler) conversationTitle(ctx context.Context, ownerID, conversationID, questionText string) string {
	messages, err := h.store.GetMessages(ownerID, conversationID)
	if err == nil {
		var b strings.Builder
		for _, m := range messages {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		title, err := h.flows.SummarizeConversation(ctx, b.String())
		if err == nil && title != "" {
			return truncateTitle(title)
		}
		slog.Warn("summarize conversation", "error", err)
	}
	return truncateTitle(questionText)
}

func truncateTitle(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= maxTitleLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxTitleLen-1]) + "…"
}

func (h *Handler) handleGenerateTest(w http.ResponseWriter, r *http.Request) {
	var req model.TestGenerationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	questions, err := h.flows.GenerateTest(r.Context(), req)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	saved, err := h.store.SaveTest(model.OwnerFromContext(r.Context()), req.Title, req.Subject, req.Description, questions)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondCreated(w, saved)
}

func (h *Handler) handleListTests(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListTests(model.OwnerFromContext(r.Context()))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondOK(w, list)
}

func (h *Handler) handleGetTest(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.GetTest(model.OwnerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondOK(w, t)
}

func (h *Handler) handleDeleteTest(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteTest(model.OwnerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondOK(w, nil)
}

// handleAnalyzeTest grades an attempt at a saved test. The questions come
// from the stored test, never from the request body, so a client cannot
// grade against a tampered answer key.
func (h *Handler) handleAnalyzeTest(w http.ResponseWriter, r *http.Request) {
	ownerID := model.OwnerFromContext(r.Context())

	var req struct {
		UserResponses map[string]string `json:"userResponses"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	t, err := h.store.GetTest(ownerID, chi.URLParam(r, "id"))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	report, err := h.flows.AnalyzeTest(r.Context(), model.TestAnalysisRequest{
		TestTitle:       t.Title,
		TestSubject:     t.Subject,
		TestDescription: t.Description,
		Questions:       t.Questions,
		UserResponses:   req.UserResponses,
	})
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	result, err := h.store.SaveTestResult(ownerID, t.ID, *report)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondCreated(w, result)
}

func (h *Handler) handleListResults(w http.ResponseWriter, r *http.Request) {
	ownerID := model.OwnerFromContext(r.Context())
	testID := chi.URLParam(r, "id")

	if _, err := h.store.GetTest(ownerID, testID); err != nil {
		respondError(r.Context(), w, err)
		return
	}
	results, err := h.store.ListTestResults(ownerID, testID)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondOK(w, results)
}

func (h *Handler) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req model.StudyPlanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	plan, err := h.flows.GenerateStudyPlan(r.Context(), req)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}

	title := plan.PlanTitle
	if title == "" {
		title = "Study plan"
	}
	saved, err := h.store.SavePlan(model.OwnerFromContext(r.Context()), title, *plan)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondCreated(w, saved)
}

func (h *Handler) handleListPlans(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListPlans(model.OwnerFromContext(r.Context()))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondOK(w, list)
}

func (h *Handler) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.GetPlan(model.OwnerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondOK(w, p)
}

func (h *Handler) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeletePlan(model.OwnerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondOK(w, nil)
}

func (h *Handler) handleFlashcardAnswer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		QuestionText string `json:"questionText"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	answer, err := h.flows.GenerateFlashcardAnswer(r.Context(), req.QuestionText)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondOK(w, model.FlashcardPair{QuestionText: req.QuestionText, AnswerText: answer})
}

func (h *Handler) handleGenerateFlashcards(w http.ResponseWriter, r *http.Request) {
	var req model.FlashcardBatchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cards, err := h.flows.GenerateFlashcards(r.Context(), req)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	saved, err := h.store.SaveFlashcards(model.OwnerFromContext(r.Context()), req.Topic, cards)
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondCreated(w, saved)
}

func (h *Handler) handleListFlashcards(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListFlashcards(model.OwnerFromContext(r.Context()))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondOK(w, list)
}

func (h *Handler) handleDeleteFlashcard(w http.ResponseWriter, r *http.Request) {
	err := h.store.DeleteFlashcard(model.OwnerFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(r.Context(), w, err)
		return
	}
	respondOK(w, nil)
}
