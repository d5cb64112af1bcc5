package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/travela2a/concierge/backend/internal/analysis/entity"
	"github.com/travela2a/concierge/backend/internal/analysis/intent"
	"github.com/travela2a/concierge/backend/internal/model/agent"
	"github.com/travela2a/concierge/backend/internal/model/chat"
)

var ErrSessionRequired = errors.New("session id is required")

// State is the full mutable record of one session.
type State struct {
	ID            string         `json:"id"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	Messages      []chat.Message `json:"messages"`
	Entities      entity.Set     `json:"entities"`
	ActiveAgent   agent.Key      `json:"activeAgent,omitempty"`
	PreviousAgent agent.Key      `json:"previousAgent,omitempty"`
	ActiveIntent  intent.Intent  `json:"activeIntent,omitempty"`
}

func (st State) clone() State {
	out := st
	out.Messages = append([]chat.Message(nil), st.Messages...)
	out.Entities = st.Entities.Clone()
	return out
}

type entry struct {
	mu    sync.Mutex
	state State
}

// Store keeps session state in memory. The map lock only guards membership;
// each entry has its own mutex so sessions never contend with each other.
// Operations on an unknown id create the session first.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
	// evicting holds sessions removed from memory whose archive save is still
	// running. Lookups wait on the channel so they restore the saved state.
	evicting map[string]chan struct{}
	archive  Archive
	now      func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithArchive restores sessions from and saves evicted sessions to a.
func WithArchive(a Archive) Option {
	return func(s *Store) { s.archive = a }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore bootstraps an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		entries:  make(map[string]*entry),
		evicting: make(map[string]chan struct{}),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create provisions the session if needed and returns it. Calling it for an
// existing id is a no-op.
func (s *Store) Create(ctx context.Context, id string) (chat.Session, error) {
	e, err := s.entry(ctx, id)
	if err != nil {
		return chat.Session{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return chat.Session{ID: e.state.ID, CreatedAt: e.state.CreatedAt}, nil
}

// Exists reports whether id is currently held in memory.
func (s *Store) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[id]
	return ok
}

// AppendMessage stores msg at the end of the history and returns it with its
// id, session and timestamp filled in.
func (s *Store) AppendMessage(ctx context.Context, id string, msg chat.Message) (chat.Message, error) {
	e, err := s.entry(ctx, id)
	if err != nil {
		return chat.Message{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	msg.ID = uuid.NewString()
	msg.SessionID = id
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	e.state.Messages = append(e.state.Messages, msg)
	e.state.UpdatedAt = s.now()
	return msg, nil
}

// MergeEntities folds set into the session entities, last value wins, and
// returns a copy of the result.
func (s *Store) MergeEntities(ctx context.Context, id string, set entity.Set) (entity.Set, error) {
	e, err := s.entry(ctx, id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Entities = e.state.Entities.Merge(set)
	e.state.UpdatedAt = s.now()
	return e.state.Entities.Clone(), nil
}

// SetActiveAgent records the agent and intent that served the latest turn.
// The prior agent is kept as PreviousAgent when the agent changes.
func (s *Store) SetActiveAgent(ctx context.Context, id string, key agent.Key, in intent.Intent) error {
	e, err := s.entry(ctx, id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state.ActiveAgent != "" && e.state.ActiveAgent != key {
		e.state.PreviousAgent = e.state.ActiveAgent
	}
	e.state.ActiveAgent = key
	e.state.ActiveIntent = in
	e.state.UpdatedAt = s.now()
	return nil
}

// Snapshot returns a read-only projection holding the last window messages.
// A window of zero or less keeps the full history.
func (s *Store) Snapshot(ctx context.Context, id string, window int) (Context, error) {
	e, err := s.entry(ctx, id)
	if err != nil {
		return Context{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	msgs := e.state.Messages
	if window > 0 && len(msgs) > window {
		msgs = msgs[len(msgs)-window:]
	}
	return Context{
		SessionID:     id,
		Recent:        append([]chat.Message(nil), msgs...),
		Entities:      e.state.Entities.Clone(),
		ActiveAgent:   e.state.ActiveAgent,
		PreviousAgent: e.state.PreviousAgent,
		ActiveIntent:  e.state.ActiveIntent,
		MessageCount:  len(e.state.Messages),
		UpdatedAt:     e.state.UpdatedAt,
	}, nil
}

// Transcript returns every stored message in conversation order.
func (s *Store) Transcript(ctx context.Context, id string) ([]chat.Message, error) {
	snap, err := s.Snapshot(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	return snap.Recent, nil
}

// Evict drops the session from memory, saving it to the archive first when
// one is configured. Operations on id made while the save runs wait for it and
// then see the restored session.
func (s *Store) Evict(ctx context.Context, id string) error {
	s.mu.Lock()
	e, done := s.takeLocked(id)
	s.mu.Unlock()
	return s.archiveEntry(ctx, id, e, done)
}

// Discard drops the session from memory and from the archive.
func (s *Store) Discard(ctx context.Context, id string) error {
	if err := s.waitEvicted(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()

	if s.archive == nil {
		return nil
	}
	return s.archive.Delete(ctx, id)
}

// Sweep evicts sessions untouched for longer than idle for which live reports
// false. The liveness check and the removal happen under the store lock, so a
// session cannot become live between them. It returns the number of evicted
// sessions.
func (s *Store) Sweep(ctx context.Context, idle time.Duration, live func(id string) bool) int {
	cutoff := s.now().Add(-idle)

	type victim struct {
		id   string
		e    *entry
		done chan struct{}
	}
	var stale []victim

	s.mu.Lock()
	for id, e := range s.entries {
		e.mu.Lock()
		updated := e.state.UpdatedAt
		e.mu.Unlock()
		if !updated.Before(cutoff) || (live != nil && live(id)) {
			continue
		}
		taken, done := s.takeLocked(id)
		stale = append(stale, victim{id: id, e: taken, done: done})
	}
	s.mu.Unlock()

	for _, v := range stale {
		if err := s.archiveEntry(ctx, v.id, v.e, v.done); err != nil {
			log.Printf("[session] sweep evict session=%s: %v", v.id, err)
		}
	}
	if len(stale) > 0 {
		log.Printf("[session] swept %d idle sessions", len(stale))
	}
	return len(stale)
}

// Len returns the number of sessions held in memory.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// takeLocked removes id from memory. When an archive is configured the id is
// marked as evicting until archiveEntry closes the returned channel. s.mu must
// be held for writing.
func (s *Store) takeLocked(id string) (*entry, chan struct{}) {
	e, ok := s.entries[id]
	if !ok {
		return nil, nil
	}
	delete(s.entries, id)
	if s.archive == nil {
		return e, nil
	}
	done := make(chan struct{})
	s.evicting[id] = done
	return e, done
}

func (s *Store) archiveEntry(ctx context.Context, id string, e *entry, done chan struct{}) error {
	if e == nil || done == nil {
		return nil
	}
	defer func() {
		s.mu.Lock()
		delete(s.evicting, id)
		s.mu.Unlock()
		close(done)
	}()

	e.mu.Lock()
	state := e.state.clone()
	e.mu.Unlock()

	if err := s.archive.Save(ctx, state); err != nil {
		log.Printf("[session] archive save failed session=%s: %v", id, err)
		return err
	}
	return nil
}

func (s *Store) waitEvicted(ctx context.Context, id string) error {
	for {
		s.mu.RLock()
		wait, ok := s.evicting[id]
		s.mu.RUnlock()
		if !ok {
			return nil
		}
		select {
		case <-wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// entry returns the record for id, creating it (restored from the archive when
// possible) if it is not in memory.
func (s *Store) entry(ctx context.Context, id string) (*entry, error) {
	if id == "" {
		return nil, ErrSessionRequired
	}

	for {
		s.mu.RLock()
		e, ok := s.entries[id]
		s.mu.RUnlock()
		if ok {
			return e, nil
		}
		if err := s.waitEvicted(ctx, id); err != nil {
			return nil, err
		}

		fresh := &entry{state: s.restore(ctx, id)}

		s.mu.Lock()
		if e, ok := s.entries[id]; ok {
			s.mu.Unlock()
			return e, nil
		}
		if _, busy := s.evicting[id]; busy {
			// Created and evicted again while restoring; fresh is stale.
			s.mu.Unlock()
			continue
		}
		s.entries[id] = fresh
		s.mu.Unlock()
		return fresh, nil
	}
}

func (s *Store) restore(ctx context.Context, id string) State {
	now := s.now()
	if s.archive != nil {
		state, found, err := s.archive.Load(ctx, id)
		switch {
		case err != nil:
			log.Printf("[session] archive load failed session=%s: %v", id, err)
		case found:
			log.Printf("[session] restored session=%s messages=%d", id, len(state.Messages))
			state.ID = id
			state.UpdatedAt = now
			if state.ActiveIntent != "" {
				state.ActiveIntent = intent.Parse(string(state.ActiveIntent))
			}
			if state.Entities == nil {
				state.Entities = entity.Set{}
			}
			return state
		}
	}
	return State{ID: id, CreatedAt: now, UpdatedAt: now, Entities: entity.Set{}}
}
