package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"coincoach/backend-go/internal/models"
)

// QuizStore keeps quiz sessions between the start of a quiz and its submission.
type QuizStore interface {
	Create(ctx context.Context, questions []models.QuizQuestion, source string) (models.QuizSession, error)
	Get(ctx context.Context, id string) (models.QuizSession, error)
	Answer(ctx context.Context, id string, index int, answer *int) (models.QuizSession, error)
	Complete(ctx context.Context, id string, score models.ScoreResponse) (models.QuizSession, error)
	Backend() string
	Close() error
}

func newSession(questions []models.QuizQuestion, source string) models.QuizSession {
	return models.QuizSession{
		ID:          ulid.Make().String(),
		Questions:   questions,
		UserAnswers: make([]*int, len(questions)),
		Source:      source,
		CreatedAt:   time.Now().UTC(),
	}
}

func applyAnswer(s *models.QuizSession, index int, answer *int) error {
	if s.Completed {
		return ErrSessionCompleted
	}
	if index < 0 || index >= len(s.Questions) {
		return fmt.Errorf("%w: question index %d out of range", ErrInvalidAnswer, index)
	}
	if answer != nil && (*answer < 0 || *answer >= len(s.Questions[index].Options)) {
		return fmt.Errorf("%w: option %d out of range", ErrInvalidAnswer, *answer)
	}
	if len(s.UserAnswers) < len(s.Questions) {
		padded := make([]*int, len(s.Questions))
		copy(padded, s.UserAnswers)
		s.UserAnswers = padded
	}
	s.UserAnswers[index] = answer
	return nil
}

// SQLiteQuizStore persists sessions in a single table, with questions and
// answers as JSON columns.
type SQLiteQuizStore struct {
	db *sql.DB
}

func NewSQLiteQuizStore(path string) (*SQLiteQuizStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create quiz db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if err = createQuizTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteQuizStore{db: db}, nil
}

func createQuizTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS quiz_sessions (
			id TEXT PRIMARY KEY,
			questions TEXT NOT NULL,
			user_answers TEXT NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			passed BOOLEAN NOT NULL DEFAULT 0,
			completed BOOLEAN NOT NULL DEFAULT 0,
			source TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			completed_at INTEGER
		)
	`)
	return err
}

func (s *SQLiteQuizStore) Backend() string { return "sqlite" }

func (s *SQLiteQuizStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteQuizStore) Create(ctx context.Context, questions []models.QuizQuestion, source string) (models.QuizSession, error) {
	sess := newSession(questions, source)
	qs, err := json.Marshal(sess.Questions)
	if err != nil {
		return models.QuizSession{}, err
	}
	as, err := json.Marshal(sess.UserAnswers)
	if err != nil {
		return models.QuizSession{}, err
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO quiz_sessions (id, questions, user_answers, source, created_at) VALUES (?, ?, ?, ?, ?)",
		sess.ID, string(qs), string(as), sess.Source, sess.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return models.QuizSession{}, fmt.Errorf("insert quiz session: %w", err)
	}
	return sess, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (models.QuizSession, error) {
	var (
		sess        models.QuizSession
		qs, as      string
		createdAt   int64
		completedAt sql.NullInt64
	)
	err := row.Scan(&sess.ID, &qs, &as, &sess.Score, &sess.Passed, &sess.Completed, &sess.Source, &createdAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.QuizSession{}, ErrSessionNotFound
	}
	if err != nil {
		return models.QuizSession{}, err
	}
	if err := json.Unmarshal([]byte(qs), &sess.Questions); err != nil {
		return models.QuizSession{}, fmt.Errorf("decode questions: %w", err)
	}
	if err := json.Unmarshal([]byte(as), &sess.UserAnswers); err != nil {
		return models.QuizSession{}, fmt.Errorf("decode answers: %w", err)
	}
	sess.CreatedAt = time.UnixMilli(createdAt).UTC()
	if completedAt.Valid {
		t := time.UnixMilli(completedAt.Int64).UTC()
		sess.CompletedAt = &t
	}
	return sess, nil
}

const selectSession = "SELECT id, questions, user_answers, score, passed, completed, source, created_at, completed_at FROM quiz_sessions WHERE id = ?"

func (s *SQLiteQuizStore) Get(ctx context.Context, id string) (models.QuizSession, error) {
	return scanSession(s.db.QueryRowContext(ctx, selectSession, id))
}

func (s *SQLiteQuizStore) Answer(ctx context.Context, id string, index int, answer *int) (models.QuizSession, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.QuizSession{}, err
	}
	defer tx.Rollback()

	sess, err := scanSession(tx.QueryRowContext(ctx, selectSession, id))
	if err != nil {
		return models.QuizSession{}, err
	}
	if err := applyAnswer(&sess, index, answer); err != nil {
		return models.QuizSession{}, err
	}
	as, err := json.Marshal(sess.UserAnswers)
	if err != nil {
		return models.QuizSession{}, err
	}
	if _, err := tx.ExecContext(ctx, "UPDATE quiz_sessions SET user_answers = ? WHERE id = ?", string(as), id); err != nil {
		return models.QuizSession{}, fmt.Errorf("update answers: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.QuizSession{}, err
	}
	return sess, nil
}

// Complete finalizes a session once; later calls return ErrSessionCompleted.
func (s *SQLiteQuizStore) Complete(ctx context.Context, id string, score models.ScoreResponse) (models.QuizSession, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"UPDATE quiz_sessions SET score = ?, passed = ?, completed = 1, completed_at = ? WHERE id = ? AND completed = 0",
		score.Score, score.Passed, now.UnixMilli(), id,
	)
	if err != nil {
		return models.QuizSession{}, fmt.Errorf("complete quiz session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.QuizSession{}, err
	}
	if n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return models.QuizSession{}, err
		}
		return models.QuizSession{}, ErrSessionCompleted
	}
	return s.Get(ctx, id)
}

// MemoryQuizStore keeps at most max sessions, dropping the oldest.
type MemoryQuizStore struct {
	mu       sync.Mutex
	sessions map[string]models.QuizSession
	max      int
}

func NewMemoryQuizStore(max int) *MemoryQuizStore {
	return &MemoryQuizStore{sessions: make(map[string]models.QuizSession), max: max}
}

func (m *MemoryQuizStore) Backend() string { return "memory" }

func (m *MemoryQuizStore) Close() error { return nil }

func (m *MemoryQuizStore) Create(ctx context.Context, questions []models.QuizQuestion, source string) (models.QuizSession, error) {
	sess := newSession(questions, source)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.max > 0 && len(m.sessions) >= m.max {
		m.evictLocked()
	}
	m.sessions[sess.ID] = sess
	return copySession(sess), nil
}

func (m *MemoryQuizStore) evictLocked() {
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	// ULIDs sort by creation time.
	sort.Strings(ids)
	for _, id := range ids[:len(ids)-m.max+1] {
		delete(m.sessions, id)
	}
}

func (m *MemoryQuizStore) Get(ctx context.Context, id string) (models.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return models.QuizSession{}, ErrSessionNotFound
	}
	return copySession(sess), nil
}

func (m *MemoryQuizStore) Answer(ctx context.Context, id string, index int, answer *int) (models.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return models.QuizSession{}, ErrSessionNotFound
	}
	sess = copySession(sess)
	if err := applyAnswer(&sess, index, answer); err != nil {
		return models.QuizSession{}, err
	}
	m.sessions[id] = sess
	return copySession(sess), nil
}

func (m *MemoryQuizStore) Complete(ctx context.Context, id string, score models.ScoreResponse) (models.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return models.QuizSession{}, ErrSessionNotFound
	}
	if sess.Completed {
		return models.QuizSession{}, ErrSessionCompleted
	}
	now := time.Now().UTC()
	sess.Score = score.Score
	sess.Passed = score.Passed
	sess.Completed = true
	sess.CompletedAt = &now
	m.sessions[id] = sess
	return copySession(sess), nil
}

func copySession(s models.QuizSession) models.QuizSession {
	answers := make([]*int, len(s.UserAnswers))
	for i, a := range s.UserAnswers {
		if a != nil {
			v := *a
			answers[i] = &v
		}
	}
	s.UserAnswers = answers
	return s
}

// QuizSessions runs the start, answer and submit lifecycle over a store.
type QuizSessions struct {
	quiz  *QuizService
	store QuizStore
}

func NewQuizSessions(quiz *QuizService, store QuizStore) *QuizSessions {
	return &QuizSessions{quiz: quiz, store: store}
}

func (q *QuizSessions) Start(ctx context.Context) (models.QuizSession, error) {
	questions, source := q.quiz.Generate(ctx)
	return q.store.Create(ctx, questions, source)
}

func (q *QuizSessions) Get(ctx context.Context, id string) (models.QuizSession, error) {
	return q.store.Get(ctx, id)
}

func (q *QuizSessions) Answer(ctx context.Context, id string, index int, answer *int) (models.QuizSession, error) {
	return q.store.Answer(ctx, id, index, answer)
}

// Submit scores the recorded answers and closes the session.
func (q *QuizSessions) Submit(ctx context.Context, id string) (models.QuizSession, error) {
	sess, err := q.store.Get(ctx, id)
	if err != nil {
		return models.QuizSession{}, err
	}
	if sess.Completed {
		return models.QuizSession{}, ErrSessionCompleted
	}
	return q.store.Complete(ctx, id, CalculateScore(sess.Questions, sess.UserAnswers))
}

func (q *QuizSessions) Backend() string {
	return q.store.Backend()
}
