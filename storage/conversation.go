// Package storage provides durable storage for conversation threads.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory and SQLite without API changes
// - Each storage implementation encapsulates its own data structures

package storage

import (
	"context"

	"github.com/richinex/feedsage/model"
)

// ThreadStorage persists conversation threads. The in-process conversation
// store remains the source of truth; storage is written through after every
// committed turn and read once when a thread is first referenced.
type ThreadStorage interface {
	// SaveThread replaces the stored copy of a thread.
	SaveThread(ctx context.Context, thread model.Thread) error

	// LoadThread loads a thread. The boolean is false when the thread has
	// never been saved; the error is reserved for storage failures.
	LoadThread(ctx context.Context, threadID string) (model.Thread, bool, error)

	// DeleteThread removes a thread and its messages.
	DeleteThread(ctx context.Context, threadID string) error

	// ListThreads lists all stored thread ids, most recently updated first.
	ListThreads(ctx context.Context) ([]string, error)
}
