// Package storage provides in-memory thread storage.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral sessions

package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/richinex/feedsage/model"
)

type storedThread struct {
	thread  model.Thread
	updated time.Time
}

// InMemoryStorage implements ThreadStorage using an in-memory map.
// Data is lost when process terminates.
type InMemoryStorage struct {
	mu      sync.RWMutex
	threads map[string]storedThread
}

// NewInMemoryStorage creates a new in-memory storage.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{
		threads: make(map[string]storedThread),
	}
}

// SaveThread saves a copy of the thread.
func (s *InMemoryStorage) SaveThread(_ context.Context, thread model.Thread) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.threads[thread.ID] = storedThread{thread: copyThread(thread), updated: time.Now()}
	return nil
}

// LoadThread returns a copy of the stored thread.
func (s *InMemoryStorage) LoadThread(_ context.Context, threadID string) (model.Thread, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.threads[threadID]
	if !ok {
		return model.Thread{ID: threadID, History: []model.Message{}}, false, nil
	}
	return copyThread(stored.thread), true, nil
}

// DeleteThread deletes a thread.
func (s *InMemoryStorage) DeleteThread(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.threads, threadID)
	return nil
}

// ListThreads lists thread ids, most recently updated first.
func (s *InMemoryStorage) ListThreads(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.threads))
	for id := range s.threads {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.threads[ids[i]].updated.After(s.threads[ids[j]].updated)
	})
	return ids, nil
}

func copyThread(thread model.Thread) model.Thread {
	history := make([]model.Message, len(thread.History))
	copy(history, thread.History)
	thread.History = history
	return thread
}

var _ ThreadStorage = (*InMemoryStorage)(nil)
