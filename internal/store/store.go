// Package store persists per-user records in sqlite. Every record is keyed
// by an opaque owner ID issued by the external identity provider; no query
// crosses owners.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/HRSPROJECT/studybuddy-ai/internal/model"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist or belongs to a
// different owner. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("record not found")

// ErrVersionConflict is returned by IncrementCounter when the expected
// version no longer matches the stored one.
var ErrVersionConflict = errors.New("counter version conflict")

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_owner ON conversations(owner_id);

	CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		image_url TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id)
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);

	CREATE TABLE IF NOT EXISTS tests (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		questions TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tests_owner ON tests(owner_id);

	CREATE TABLE IF NOT EXISTS test_results (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		test_id TEXT NOT NULL,
		report TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (test_id) REFERENCES tests(id)
	);
	CREATE INDEX IF NOT EXISTS idx_test_results_owner ON test_results(owner_id);

	CREATE TABLE IF NOT EXISTS study_plans (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		plan TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_study_plans_owner ON study_plans(owner_id);

	CREATE TABLE IF NOT EXISTS flashcards (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		topic TEXT NOT NULL DEFAULT '',
		question_text TEXT NOT NULL,
		answer_text TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_flashcards_owner ON flashcards(owner_id);

	CREATE TABLE IF NOT EXISTS counters (
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		value INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (owner_id, name)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateConversation starts a new conversation for an owner.
func (s *Store) CreateConversation(ownerID, title string) (model.Conversation, error) {
	now := time.Now().UTC()
	c := model.Conversation{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.Exec(
		`INSERT INTO conversations (id, owner_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Title, c.CreatedAt, c.UpdatedAt,
	)
	return c, err
}

// GetConversation returns one of the owner's conversations.
func (s *Store) GetConversation(ownerID, id string) (model.Conversation, error) {
	var c model.Conversation
	err := s.db.QueryRow(
		`SELECT id, owner_id, title, created_at, updated_at FROM conversations WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	).Scan(&c.ID, &c.OwnerID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrNotFound
	}
	return c, err
}

// ListConversations returns the owner's conversations, most recent first.
func (s *Store) ListConversations(ownerID string) ([]model.Conversation, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, title, created_at, updated_at FROM conversations WHERE owner_id = ? ORDER BY updated_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var conversations []model.Conversation
	for rows.Next() {
		var c model.Conversation
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// UpdateConversationTitle renames one of the owner's conversations.
func (s *Store) UpdateConversationTitle(ownerID, id, title string) error {
	res, err := s.db.Exec(
		`UPDATE conversations SET title = ?, updated_at = ? WHERE id = ? AND owner_id = ?`,
		title, time.Now().UTC(), id, ownerID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteConversation removes a conversation and its messages.
func (s *Store) DeleteConversation(ownerID, id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM conversations WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// AddMessage appends a message to one of the owner's conversations and
// bumps the conversation's updated_at.
func (s *Store) AddMessage(ownerID, conversationID string, role model.ChatRole, content, imageURL string) (model.ChatMessage, error) {
	m := model.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		ImageURL:       imageURL,
		CreatedAt:      time.Now().UTC(),
	}

	tx, err := s.db.Begin()
	if err != nil {
		return m, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE conversations SET updated_at = ? WHERE id = ? AND owner_id = ?`,
		m.CreatedAt, conversationID, ownerID,
	)
	if err != nil {
		return m, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return m, err
	}
	if n == 0 {
		return m, ErrNotFound
	}

	_, err = tx.Exec(
		`INSERT INTO messages (id, conversation_id, role, content, image_url, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.ConversationID, m.Role, m.Content, m.ImageURL, m.CreatedAt,
	)
	if err != nil {
		return m, err
	}
	return m, tx.Commit()
}

// GetMessages returns a conversation's messages in insertion order.
func (s *Store) GetMessages(ownerID, conversationID string) ([]model.ChatMessage, error) {
	if _, err := s.GetConversation(ownerID, conversationID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT id, conversation_id, role, content, image_url, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at, id`,
		conversationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var messages []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.ImageURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// SaveTest stores a generated test. Questions are serialized as JSON.
func (s *Store) SaveTest(ownerID, title, subject, description string, questions []model.TestQuestion) (model.SavedTest, error) {
	t := model.SavedTest{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Subject:     subject,
		Description: description,
		Questions:   questions,
		CreatedAt:   time.Now().UTC(),
	}
	blob, err := json.Marshal(questions)
	if err != nil {
		return t, fmt.Errorf("marshal questions: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO tests (id, owner_id, title, subject, description, questions, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Title, t.Subject, t.Description, string(blob), t.CreatedAt,
	)
	return t, err
}

// GetTest returns one of the owner's saved tests.
func (s *Store) GetTest(ownerID, id string) (model.SavedTest, error) {
	var t model.SavedTest
	var blob string
	err := s.db.QueryRow(
		`SELECT id, owner_id, title, subject, description, questions, created_at FROM tests WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	).Scan(&t.ID, &t.OwnerID, &t.Title, &t.Subject, &t.Description, &blob, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	if err := json.Unmarshal([]byte(blob), &t.Questions); err != nil {
		return t, fmt.Errorf("unmarshal questions: %w", err)
	}
	return t, nil
}

// ListTests returns the owner's saved tests, most recent first.
func (s *Store) ListTests(ownerID string) ([]model.SavedTest, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, title, subject, description, questions, created_at FROM tests WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tests []model.SavedTest
	for rows.Next() {
		var t model.SavedTest
		var blob string
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Subject, &t.Description, &blob, &t.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(blob), &t.Questions); err != nil {
			return nil, fmt.Errorf("unmarshal questions: %w", err)
		}
		tests = append(tests, t)
	}
	return tests, rows.Err()
}

// DeleteTest removes one of the owner's saved tests and its results.
func (s *Store) DeleteTest(ownerID, id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM tests WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM test_results WHERE test_id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveTestResult stores a graded attempt at a saved test.
func (s *Store) SaveTestResult(ownerID, testID string, report model.TestAnalysisReport) (model.TestResult, error) {
	r := model.TestResult{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		TestID:    testID,
		Report:    report,
		CreatedAt: time.Now().UTC(),
	}
	blob, err := json.Marshal(report)
	if err != nil {
		return r, fmt.Errorf("marshal report: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO test_results (id, owner_id, test_id, report, created_at) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.OwnerID, r.TestID, string(blob), r.CreatedAt,
	)
	return r, err
}

// ListTestResults returns the owner's graded attempts at one test, most
// recent first.
func (s *Store) ListTestResults(ownerID, testID string) ([]model.TestResult, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, test_id, report, created_at FROM test_results WHERE owner_id = ? AND test_id = ? ORDER BY created_at DESC`,
		ownerID, testID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTestResults(rows)
}

func scanTestResults(rows *sql.Rows) ([]model.TestResult, error) {
	var results []model.TestResult
	for rows.Next() {
		var r model.TestResult
		var blob string
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.TestID, &blob, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(blob), &r.Report); err != nil {
			return nil, fmt.Errorf("unmarshal report: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// SavePlan stores a generated study plan.
func (s *Store) SavePlan(ownerID, title string, plan model.StudyPlanResult) (model.SavedPlan, error) {
	p := model.SavedPlan{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     title,
		Plan:      plan,
		CreatedAt: time.Now().UTC(),
	}
	blob, err := json.Marshal(plan)
	if err != nil {
		return p, fmt.Errorf("marshal plan: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO study_plans (id, owner_id, title, plan, created_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.OwnerID, p.Title, string(blob), p.CreatedAt,
	)
	return p, err
}

// GetPlan returns one of the owner's saved study plans.
func (s *Store) GetPlan(ownerID, id string) (model.SavedPlan, error) {
	var p model.SavedPlan
	var blob string
	err := s.db.QueryRow(
		`SELECT id, owner_id, title, plan, created_at FROM study_plans WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	).Scan(&p.ID, &p.OwnerID, &p.Title, &blob, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(blob), &p.Plan); err != nil {
		return p, fmt.Errorf("unmarshal plan: %w", err)
	}
	return p, nil
}

// ListPlans returns the owner's saved study plans, most recent first.
func (s *Store) ListPlans(ownerID string) ([]model.SavedPlan, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, title, plan, created_at FROM study_plans WHERE owner_id = ? ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var plans []model.SavedPlan
	for rows.Next() {
		var p model.SavedPlan
		var blob string
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Title, &blob, &p.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(blob), &p.Plan); err != nil {
			return nil, fmt.Errorf("unmarshal plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// DeletePlan removes one of the owner's saved study plans.
func (s *Store) DeletePlan(ownerID, id string) error {
	res, err := s.db.Exec(`DELETE FROM study_plans WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveFlashcards stores a batch of cards under one topic.
func (s *Store) SaveFlashcards(ownerID, topic string, cards []model.FlashcardPair) ([]model.Flashcard, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	saved := make([]model.Flashcard, 0, len(cards))
	for _, card := range cards {
		f := model.Flashcard{
			ID:           uuid.NewString(),
			OwnerID:      ownerID,
			Topic:        topic,
			QuestionText: card.QuestionText,
			AnswerText:   card.AnswerText,
			CreatedAt:    now,
		}
		_, err := tx.Exec(
			`INSERT INTO flashcards (id, owner_id, topic, question_text, answer_text, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			f.ID, f.OwnerID, f.Topic, f.QuestionText, f.AnswerText, f.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		saved = append(saved, f)
	}
	return saved, tx.Commit()
}

// ListFlashcards returns the owner's cards, most recent first.
func (s *Store) ListFlashcards(ownerID string) ([]model.Flashcard, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, topic, question_text, answer_text, created_at FROM flashcards WHERE owner_id = ? ORDER BY created_at DESC, id`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cards []model.Flashcard
	for rows.Next() {
		var f model.Flashcard
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.Topic, &f.QuestionText, &f.AnswerText, &f.CreatedAt); err != nil {
			return nil, err
		}
		cards = append(cards, f)
	}
	return cards, rows.Err()
}

// DeleteFlashcard removes one of the owner's cards.
func (s *Store) DeleteFlashcard(ownerID, id string) error {
	res, err := s.db.Exec(`DELETE FROM flashcards WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetCounter returns a named counter's value and version, zero if unset.
func (s *Store) GetCounter(ownerID, name string) (value int64, version int64, err error) {
	err = s.db.QueryRow(
		`SELECT value, version FROM counters WHERE owner_id = ? AND name = ?`,
		ownerID, name,
	).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, nil
	}
	return value, version, err
}

// IncrementCounter adds delta to a named counter using compare-and-swap on
// the version. Callers pass the version they last read; a stale version
// yields ErrVersionConflict and no change.
func (s *Store) IncrementCounter(ownerID, name string, delta, expectedVersion int64) (int64, error) {
	if expectedVersion == 0 {
		res, err := s.db.Exec(
			`INSERT INTO counters (owner_id, name, value, version) VALUES (?, ?, ?, 1)
			 ON CONFLICT(owner_id, name) DO NOTHING`,
			ownerID, name, delta,
		)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, ErrVersionConflict
		}
		return delta, nil
	}

	res, err := s.db.Exec(
		`UPDATE counters SET value = value + ?, version = version + 1 WHERE owner_id = ? AND name = ? AND version = ?`,
		delta, ownerID, name, expectedVersion,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrVersionConflict
	}
	value, _, err := s.GetCounter(ownerID, name)
	return value, err
}
