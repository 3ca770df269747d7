package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/sjlee-edu/mathtutor/internal/model"

	_ "modernc.org/sqlite"
)

// Store holds login sessions. Everything else this system persists lives in
// the spreadsheet; the local database only maps cookie tokens to students.
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
	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		page TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreateSession creates a session for a student and returns its token.
// Sessions have no expiry; they last until logout.
func (s *Store) CreateSession(studentID string) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (token, student_id, page, created_at) VALUES (?, ?, '', ?)`,
		token, studentID, time.Now(),
	)
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetSession returns the session for the given token, or nil if not found.
func (s *Store) GetSession(token string) (*model.Session, error) {
	var sess model.Session
	err := s.db.QueryRow(
		`SELECT token, student_id, page, created_at FROM sessions WHERE token = ?`, token,
	).Scan(&sess.Token, &sess.StudentID, &sess.Page, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// SetPage records which page the session is on.
func (s *Store) SetPage(token string, page model.Page) error {
	if !page.Valid() {
		return fmt.Errorf("invalid page %q", page)
	}
	_, err := s.db.Exec(`UPDATE sessions SET page = ? WHERE token = ?`, string(page), token)
	return err
}

// DeleteSession removes a session token (logout).
func (s *Store) DeleteSession(token string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// SessionCount returns the number of live sessions.
func (s *Store) SessionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count)
	return count, err
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
