package model

import "time"

// OwnerExport is the top-level JSON structure for a per-owner data export.
type OwnerExport struct {
	OwnerID       string               `json:"owner_id"`
	ExportedAt    time.Time            `json:"exported_at"`
	Conversations []ConversationExport `json:"conversations"`
	Tests         []SavedTest          `json:"tests"`
	Results       []TestResult         `json:"results"`
	Plans         []SavedPlan          `json:"plans"`
	Flashcards    []Flashcard          `json:"flashcards"`
}

// ConversationExport holds one conversation with its messages for export.
type ConversationExport struct {
	Conversation Conversation  `json:"conversation"`
	Messages     []ChatMessage `json:"messages"`
}
