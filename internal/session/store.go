package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
)

// Blob is the persistence contract consumed by the Store: an opaque store for
// one serialized string payload. Load returns "" when no payload exists yet.
// Following Go convention the interface is defined here, by the consumer;
// implementations live in internal/storage.
type Blob interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, data string) error
}

// Store owns the ordered session collection and the active-session pointer.
//
// Ordering is most-recent-first: CreateSession inserts at the front. Every
// mutation is mirrored to the Blob before notifications fire; a failed mirror
// write is logged and otherwise ignored.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	blob   Blob
	logger *slog.Logger

	mu       sync.Mutex
	sessions []*Session
	activeID string
	loaded   bool

	nextSub     int
	sessionSubs map[int]func([]*Session)
	activeSubs  map[int]func(string)
}

// NewStore creates a Store backed by the given Blob.
// Load must be called before any other operation.
func NewStore(blob Blob, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		blob:        blob,
		logger:      logger,
		sessionSubs: make(map[int]func([]*Session)),
		activeSubs:  make(map[int]func(string)),
	}
}

// Load restores the persisted collection, or falls back to a single fresh
// session when nothing usable is stored. It runs once per process lifetime;
// a second call returns ErrAlreadyLoaded.
//
// Missing or corrupt data is a recoverable condition: it is logged and the
// fresh-session fallback applies. Load itself never overwrites stored data;
// the fallback session reaches persistence only through its own create
// mutation, after the load attempt has definitively failed or found nothing.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.loaded {
		s.mu.Unlock()
		return ErrAlreadyLoaded
	}

	raw, err := s.blob.Load(ctx)
	if err != nil {
		s.logger.Warn("loading persisted sessions failed, starting fresh", "error", err)
		raw = ""
	}

	if raw != "" {
		var sessions []*Session
		if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
			s.logger.Warn("persisted sessions corrupt, starting fresh", "error", err)
		} else if len(sessions) > 0 {
			s.sessions = sessions
			s.activeID = sessions[0].ID
			s.loaded = true
			s.logger.Debug("restored sessions", "count", len(sessions), "active", s.activeID)
			notify := s.stageNotifyLocked(true)
			s.mu.Unlock()
			notify()
			return nil
		}
	}

	s.loaded = true
	s.createSessionLocked(ctx)
	notify := s.stageNotifyLocked(true)
	s.mu.Unlock()
	notify()
	return nil
}

// CreateSession builds a new session with a generated id, the default title
// and the seeded greeting, inserts it at the front of the collection and
// makes it active. Returns the new session id.
func (s *Store) CreateSession(ctx context.Context) (string, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return "", ErrNotLoaded
	}
	id := s.createSessionLocked(ctx)
	notify := s.stageNotifyLocked(true)
	s.mu.Unlock()
	notify()
	return id, nil
}

// createSessionLocked performs the insert and the write-through persist.
// Caller holds s.mu.
func (s *Store) createSessionLocked(ctx context.Context) string {
	sess := newSession()
	s.sessions = append([]*Session{sess}, s.sessions...)
	s.activeID = sess.ID
	s.persistLocked(ctx)
	s.logger.Debug("created session", "id", sess.ID)
	return sess.ID
}

// SelectSession makes the session with the given id active.
// Returns ErrSessionNotFound if no such session exists.
func (s *Store) SelectSession(id string) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	if s.indexLocked(id) < 0 {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	s.activeID = id
	notify := s.stageNotifyActiveLocked()
	s.mu.Unlock()
	notify()
	return nil
}

// DeleteSession removes the session with the given id. If it was active,
// activity falls to the first remaining session, or to a freshly created one
// when the collection would become empty. The collection is never empty.
//
// User confirmation is a presentation concern and is expected to have
// happened before this call.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrSessionNotFound
	}

	s.sessions = append(s.sessions[:idx], s.sessions[idx+1:]...)

	if s.activeID == id {
		if len(s.sessions) > 0 {
			s.activeID = s.sessions[0].ID
			s.persistLocked(ctx)
		} else {
			// createSessionLocked persists the replacement collection.
			s.createSessionLocked(ctx)
		}
	} else {
		s.persistLocked(ctx)
	}
	s.logger.Debug("deleted session", "id", id, "remaining", len(s.sessions))

	notify := s.stageNotifyLocked(true)
	s.mu.Unlock()
	notify()
	return nil
}

// AppendMessage appends msg to the named session. Appending to a session that
// no longer exists is a silent no-op: the session may legitimately have been
// deleted while a turn targeting it was in flight.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg Message) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	idx := s.indexLocked(sessionID)
	if idx < 0 {
		s.mu.Unlock()
		s.logger.Debug("dropping message for missing session", "session_id", sessionID, "role", msg.Role)
		return nil
	}

	s.sessions[idx].Messages = append(s.sessions[idx].Messages, msg)
	s.persistLocked(ctx)

	notify := s.stageNotifyLocked(false)
	s.mu.Unlock()
	notify()
	return nil
}

// RenameIfFirstUserTurn sets the session title from the first user turn:
// it applies only while the session holds exactly its seeded greeting and
// only when text is non-blank after trimming. The title is the first 30
// runes of text. Any later call is a no-op; titles are renamed at most once.
// A missing session is a silent no-op, mirroring AppendMessage.
func (s *Store) RenameIfFirstUserTurn(ctx context.Context, sessionID, text string) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	idx := s.indexLocked(sessionID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	sess := s.sessions[idx]
	if len(sess.Messages) != 1 || strings.TrimSpace(text) == "" {
		s.mu.Unlock()
		return nil
	}

	sess.Title = truncateTitle(text)
	s.persistLocked(ctx)
	s.logger.Debug("renamed session", "id", sessionID, "title", sess.Title)

	notify := s.stageNotifyLocked(false)
	s.mu.Unlock()
	notify()
	return nil
}

// Sessions returns a deep copy of the collection in most-recent-first order.
func (s *Store) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ActiveID returns the id of the active session ("" before Load).
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Active returns a deep copy of the active session, or nil before Load.
func (s *Store) Active() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(s.activeID); idx >= 0 {
		return s.sessions[idx].Clone()
	}
	return nil
}

// Get returns a deep copy of the session with the given id.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.sessions[idx].Clone(), nil
	}
	return nil, ErrSessionNotFound
}

// OnSessionsChanged registers fn to run after every collection change with a
// snapshot of the new collection. The returned func unsubscribes.
func (s *Store) OnSessionsChanged(fn func([]*Session)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.sessionSubs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.sessionSubs, id)
	}
}

// OnActiveChanged registers fn to run whenever the active session id changes.
// The returned func unsubscribes.
func (s *Store) OnActiveChanged(fn func(string)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.activeSubs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.activeSubs, id)
	}
}

// persistLocked mirrors the full collection to the Blob. Failures are logged
// and swallowed: in-memory state stays the source of truth. Never writes
// before the first Load completes. Caller holds s.mu.
func (s *Store) persistLocked(ctx context.Context) {
	if !s.loaded {
		return
	}
	data, err := json.Marshal(s.sessions)
	if err != nil {
		s.logger.Error("serializing sessions failed", "error", err)
		return
	}
	if err := s.blob.Save(ctx, string(data)); err != nil {
		s.logger.Warn("persisting sessions failed, continuing with in-memory state", "error", err)
	}
}

// indexLocked returns the position of id in the collection, or -1.
// Caller holds s.mu.
func (s *Store) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, sess := range s.sessions {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

// snapshotLocked deep-copies the collection. Caller holds s.mu.
func (s *Store) snapshotLocked() []*Session {
	out := make([]*Session, len(s.sessions))
	for i, sess := range s.sessions {
		out[i] = sess.Clone()
	}
	return out
}

// stageNotifyLocked captures the subscribers and a snapshot under the lock
// and returns a func that fires them once the lock is released. Subscribers
// may therefore call back into the Store. withActive additionally notifies
// active-session subscribers. Caller holds s.mu.
func (s *Store) stageNotifyLocked(withActive bool) func() {
	snapshot := s.snapshotLocked()
	active := s.activeID

	sessionFns := make([]func([]*Session), 0, len(s.sessionSubs))
	for _, fn := range s.sessionSubs {
		sessionFns = append(sessionFns, fn)
	}
	var activeFns []func(string)
	if withActive {
		activeFns = make([]func(string), 0, len(s.activeSubs))
		for _, fn := range s.activeSubs {
			activeFns = append(activeFns, fn)
		}
	}

	return func() {
		for _, fn := range sessionFns {
			fn(snapshot)
		}
		for _, fn := range activeFns {
			fn(active)
		}
	}
}

// stageNotifyActiveLocked is stageNotifyLocked for selection changes, which
// touch only the active pointer. Caller holds s.mu.
func (s *Store) stageNotifyActiveLocked() func() {
	active := s.activeID
	fns := make([]func(string), 0, len(s.activeSubs))
	for _, fn := range s.activeSubs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(active)
		}
	}
}
