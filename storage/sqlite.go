// Package storage provides SQLite thread storage.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema and migration details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/feedsage/model"
)

// SqliteStorage implements ThreadStorage using SQLite.
type SqliteStorage struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStorage, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	return newSqliteStorage(db)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStorage, error) {
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every pooled connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	return newSqliteStorage(db)
}

func newSqliteStorage(db *sql.DB) (*SqliteStorage, error) {
	storage := &SqliteStorage{db: db}
	if err := storage.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return storage, nil
}

// Close closes the database connection.
func (s *SqliteStorage) Close() error {
	return s.db.Close()
}

func (s *SqliteStorage) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			summary TEXT NOT NULL DEFAULT '',
			summarized INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			thread_id TEXT NOT NULL,
			message_index INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			FOREIGN KEY (thread_id) REFERENCES threads(thread_id) ON DELETE CASCADE,
			UNIQUE(thread_id, message_index)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_thread
		ON messages(thread_id, message_index);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveThread replaces the stored thread in a single transaction.
func (s *SqliteStorage) SaveThread(ctx context.Context, thread model.Thread) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// defer tx.Rollback() is safe even after Commit() - it becomes a no-op
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO threads (thread_id, summary, summarized, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			summary = excluded.summary,
			summarized = excluded.summarized,
			updated_at = excluded.updated_at`,
		thread.ID, thread.Summary, thread.Summarized, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert thread: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE thread_id = ?", thread.ID); err != nil {
		return fmt.Errorf("failed to clear old messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO messages (thread_id, message_index, role, content, created_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, msg := range thread.History {
		if _, err := stmt.ExecContext(ctx, thread.ID, i, string(msg.Role), msg.Content, msg.Timestamp.UnixNano()); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadThread loads a thread with its messages in order.
func (s *SqliteStorage) LoadThread(ctx context.Context, threadID string) (model.Thread, bool, error) {
	thread := model.Thread{ID: threadID, History: []model.Message{}}

	err := s.db.QueryRowContext(ctx,
		"SELECT summary, summarized FROM threads WHERE thread_id = ?", threadID,
	).Scan(&thread.Summary, &thread.Summarized)
	if errors.Is(err, sql.ErrNoRows) {
		return thread, false, nil
	}
	if err != nil {
		return thread, false, fmt.Errorf("failed to load thread: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, content, created_at FROM messages WHERE thread_id = ? ORDER BY message_index",
		threadID)
	if err != nil {
		return thread, false, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			role    string
			msg     model.Message
			created int64
		)
		if err := rows.Scan(&role, &msg.Content, &created); err != nil {
			return thread, false, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = model.Role(role)
		msg.Timestamp = time.Unix(0, created)
		thread.History = append(thread.History, msg)
	}
	if err := rows.Err(); err != nil {
		return thread, false, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return thread, true, nil
}

// DeleteThread deletes a thread; messages cascade.
func (s *SqliteStorage) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM threads WHERE thread_id = ?", threadID); err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	return nil
}

// ListThreads lists thread ids, most recently updated first.
func (s *SqliteStorage) ListThreads(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT thread_id FROM threads ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan thread id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ ThreadStorage = (*SqliteStorage)(nil)
