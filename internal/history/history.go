package history

// Package history provides SQLite-based persistence for chat messages.
// If opening the DB or executing queries fails, the store falls back to
// in-memory storage so a broken path never blocks a conversation.

import (
	"database/sql"
	"sync"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/friday-go/internal/logger"
)

const schema = `CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT,
    role TEXT,
    content TEXT,
    created_at DATETIME
);`

// Store keeps conversational history. Messages are mirrored in memory
// and, when the database is healthy, persisted to SQLite.
type Store struct {
	db *sql.DB

	mu       sync.Mutex
	messages []Message
}

// Open creates a store backed by the SQLite database at path, creating
// the file and the messages table as needed. Open never fails: on any
// database error it logs a warning and returns a memory-only store.
func Open(path string) *Store {
	s := &Store{}
	db, err := sql.Open("sqlite", "file:"+path+"?_busy_timeout=10000&_fk=1")
	if err != nil {
		logger.L.Warn("sqlite open failed; using in-memory history", "error", err)
		return s
	}
	if _, err := db.Exec(schema); err != nil {
		logger.L.Warn("sqlite table creation failed; using in-memory history", "error", err)
		_ = db.Close()
		return s
	}
	s.db = db
	logger.L.Info("sqlite history initialized", "path", path)
	return s
}

// InMemory returns a store that never touches the filesystem.
func InMemory() *Store {
	return &Store{}
}

// Save persists a message to SQLite when available and always keeps an
// in-memory copy as fallback.
func (s *Store) Save(msg Message) {
	if s.db != nil {
		_, err := s.db.Exec(`INSERT INTO messages (session_id, role, content, created_at) VALUES (?,?,?,?);`,
			msg.SessionID, msg.Role, msg.Content, msg.CreatedAt)
		if err != nil {
			logger.L.Error("failed to store message in sqlite; falling back to memory", "error", err)
		}
	}

	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}

// List returns all messages of a session in chronological order.
func (s *Store) List(sessionID string) []Message {
	var out []Message
	if s.db != nil {
		rows, err := s.db.Query(`SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY id ASC;`, sessionID)
		if err == nil {
			defer rows.Close()
			for rows.Next() {
				var m Message
				if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err == nil {
					out = append(out, m)
				}
			}
			return out
		}
		logger.L.Error("failed to read messages from sqlite; falling back to memory", "error", err)
	}

	s.mu.Lock()
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	s.mu.Unlock()
	return out
}

// Close releases the underlying database, if any.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
