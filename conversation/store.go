// Package conversation holds per-thread conversation state for the process.
//
// Information Hiding:
// - Thread map layout and locking hidden
// - FIFO eviction and summary cursor bookkeeping hidden
// - Optional write-through persistence hidden
package conversation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/richinex/feedsage/model"
	"github.com/richinex/feedsage/storage"
)

// DefaultMaxHistory is the per-thread message cap.
const DefaultMaxHistory = 50

// persistTimeout bounds a single storage write or load.
const persistTimeout = 5 * time.Second

// SummaryUpdate replaces a thread's rolling summary and records how many
// pending messages the new summary covers.
type SummaryUpdate struct {
	Summary string
	Folded  int
}

type threadState struct {
	// turn serializes read, run and append for one thread id.
	turn sync.Mutex
	// save orders commits and their storage writes for one thread id.
	save sync.Mutex
	data model.Thread
}

// Store is the in-process conversation store. Reads and writes never fail;
// a missing thread reads as empty and is created on first write or lock.
type Store struct {
	mu         sync.RWMutex
	threads    map[string]*threadState
	maxHistory int
	storage    storage.ThreadStorage
	logger     zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxHistory overrides the per-thread message cap.
func WithMaxHistory(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxHistory = n
		}
	}
}

// WithStorage enables write-through persistence. Threads are loaded from
// storage the first time they are referenced.
func WithStorage(ts storage.ThreadStorage) Option {
	return func(s *Store) { s.storage = ts }
}

// WithLogger sets the logger used for persistence failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		threads:    make(map[string]*threadState),
		maxHistory: DefaultMaxHistory,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxHistory returns the per-thread message cap.
func (s *Store) MaxHistory() int {
	return s.maxHistory
}

// History returns up to limit of the most recent messages, oldest first.
// A limit of zero or less returns the whole history.
func (s *Store) History(threadID string, limit int) []model.Message {
	history := s.Snapshot(threadID).History
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}

// Snapshot returns a copy of the thread. Reading an unknown thread does not
// create it.
func (s *Store) Snapshot(threadID string) model.Thread {
	s.mu.RLock()
	st, ok := s.threads[threadID]
	if ok {
		defer s.mu.RUnlock()
		return cloneThread(st.data)
	}
	s.mu.RUnlock()

	loaded, found := s.load(threadID)
	if !found {
		return loaded
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.threads[threadID]; ok {
		return cloneThread(st.data)
	}
	s.threads[threadID] = &threadState{data: loaded}
	return cloneThread(loaded)
}

// Append adds one message, evicting the oldest beyond the cap.
func (s *Store) Append(threadID string, msg model.Message) {
	s.Commit(threadID, []model.Message{msg}, nil)
}

// Commit appends the turn's messages and, when update is non-nil, replaces
// the summary and advances the summary cursor. All changes become visible
// together. Commits on one thread reach storage in the order they were
// applied.
func (s *Store) Commit(threadID string, msgs []model.Message, update *SummaryUpdate) {
	st := s.thread(threadID)
	st.save.Lock()
	defer st.save.Unlock()

	s.mu.Lock()
	data := &st.data
	if update != nil {
		data.Summary = update.Summary
		data.Summarized += update.Folded
	}
	data.History = append(data.History, msgs...)
	if over := len(data.History) - s.maxHistory; over > 0 {
		trimmed := make([]model.Message, s.maxHistory)
		copy(trimmed, data.History[over:])
		data.History = trimmed
		data.Summarized -= over
	}
	data.Summarized = clamp(data.Summarized, 0, len(data.History))
	saved := cloneThread(*data)
	s.mu.Unlock()

	s.persist(saved)
}

// Lock acquires the turn lock for a thread and returns its release func.
// Turns on distinct threads proceed concurrently.
func (s *Store) Lock(threadID string) (unlock func()) {
	st := s.thread(threadID)
	st.turn.Lock()
	return st.turn.Unlock
}

// Threads lists known thread ids in sorted order.
func (s *Store) Threads() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.threads))
	for id := range s.threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// thread returns the state for threadID, creating it lazily.
func (s *Store) thread(threadID string) *threadState {
	s.mu.RLock()
	st, ok := s.threads[threadID]
	s.mu.RUnlock()
	if ok {
		return st
	}

	loaded, _ := s.load(threadID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.threads[threadID]; ok {
		return st
	}
	st = &threadState{data: loaded}
	s.threads[threadID] = st
	return st
}

// load reads a thread from storage. found is false when there is no stored
// thread or the read failed.
func (s *Store) load(threadID string) (thread model.Thread, found bool) {
	empty := model.Thread{ID: threadID, History: []model.Message{}}
	if s.storage == nil {
		return empty, false
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	thread, found, err := s.storage.LoadThread(ctx, threadID)
	if err != nil {
		s.logger.Warn().Err(err).Str("thread_id", threadID).Msg("failed to load thread, starting empty")
		return empty, false
	}
	if !found {
		return empty, false
	}

	thread.ID = threadID
	if over := len(thread.History) - s.maxHistory; over > 0 {
		thread.History = thread.History[over:]
		thread.Summarized -= over
	}
	thread.Summarized = clamp(thread.Summarized, 0, len(thread.History))
	return thread, true
}

func (s *Store) persist(thread model.Thread) {
	if s.storage == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := s.storage.SaveThread(ctx, thread); err != nil {
		s.logger.Warn().Err(err).Str("thread_id", thread.ID).Msg("failed to persist thread")
	}
}

func cloneThread(t model.Thread) model.Thread {
	history := make([]model.Message, len(t.History))
	copy(history, t.History)
	t.History = history
	return t
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
