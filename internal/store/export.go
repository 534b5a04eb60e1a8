package store

import (
	"time"

	"github.com/HRSPROJECT/studybuddy-ai/internal/model"
)

// ExportOwner builds a complete JSON-ready dump of one owner's data.
func (s *Store) ExportOwner(ownerID string) (*model.OwnerExport, error) {
	export := &model.OwnerExport{
		OwnerID:    ownerID,
		ExportedAt: time.Now().UTC(),
	}

	conversations, err := s.ListConversations(ownerID)
	if err != nil {
		return nil, err
	}
	for _, c := range conversations {
		messages, err := s.GetMessages(ownerID, c.ID)
		if err != nil {
			return nil, err
		}
		export.Conversations = append(export.Conversations, model.ConversationExport{
			Conversation: c,
			Messages:     messages,
		})
	}

	if export.Tests, err = s.ListTests(ownerID); err != nil {
		return nil, err
	}
	if export.Results, err = s.listAllTestResults(ownerID); err != nil {
		return nil, err
	}
	if export.Plans, err = s.ListPlans(ownerID); err != nil {
		return nil, err
	}
	if export.Flashcards, err = s.ListFlashcards(ownerID); err != nil {
		return nil, err
	}
	return export, nil
}

func (s *Store) listAllTestResults(ownerID string) ([]model.TestResult, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, test_id, report, created_at FROM test_results WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTestResults(rows)
}
