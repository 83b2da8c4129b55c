package storage

import (
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"imgedit-backend/pkg/logger"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long a session may stay idle before it is swept.
const DefaultSessionTTL = 5 * time.Minute

type MemoryOption func(*MemoryStorage)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *MemoryStorage) {
		m.now = now
	}
}

// WithRemover replaces os.Remove for temp file deletion.
func WithRemover(remove func(path string) error) MemoryOption {
	return func(m *MemoryStorage) {
		m.remove = remove
	}
}

// MemoryStorage is the in-process session registry. Expired sessions are
// swept lazily on access rather than by a background goroutine.
type MemoryStorage struct {
	sessions map[string]*Session
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	remove   func(path string) error
}

func NewMemoryStorage(ttl time.Duration, opts ...MemoryOption) *MemoryStorage {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	m := &MemoryStorage{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
		remove:   os.Remove,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func newSessionID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

func (m *MemoryStorage) Create(width, height int, mode string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := newSessionID()
	for m.sessions[id] != nil {
		id = newSessionID()
	}

	session := &Session{
		ID:         id,
		Width:      width,
		Height:     height,
		Mode:       mode,
		LastActive: m.now(),
	}
	m.sessions[id] = session

	logger.Debugf("session %s created (%dx%d %s)", id, width, height, mode)
	return session.snapshot()
}

// Get refreshes the session's activity time before sweeping, so the session
// being accessed is never evicted by its own lookup.
func (m *MemoryStorage) Get(sessionID string) (Session, error) {
	m.mu.Lock()
	session, exists := m.sessions[sessionID]
	if !exists {
		m.mu.Unlock()
		return Session{}, ErrSessionNotFound
	}
	session.LastActive = m.now()
	m.mu.Unlock()

	m.Sweep()

	m.mu.Lock()
	defer m.mu.Unlock()
	// A concurrent Get elsewhere may still have swept it after a long stall.
	if session, exists = m.sessions[sessionID]; !exists {
		return Session{}, ErrSessionNotFound
	}
	return session.snapshot(), nil
}

func (m *MemoryStorage) AddTempFile(sessionID, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return ErrSessionNotFound
	}
	session.TempFiles = append(session.TempFiles, path)
	return nil
}

// Sweep evicts every session idle for longer than the TTL and deletes its
// temp files. Entries leave the map under the lock; files are removed after
// it is released, and a failed deletion never stops the sweep.
func (m *MemoryStorage) Sweep() int {
	m.mu.Lock()
	now := m.now()
	var expired []*Session
	for id, session := range m.sessions {
		if now.Sub(session.LastActive) > m.ttl {
			expired = append(expired, session)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, session := range expired {
		for _, path := range session.TempFiles {
			if err := m.remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logger.WithFields(map[string]interface{}{
					"session_id": session.ID,
					"path":       path,
				}).Warnf("failed to delete temp file: %v", err)
			}
		}
		logger.Debugf("session %s expired, %d temp files released", session.ID, len(session.TempFiles))
	}

	return len(expired)
}

func (m *MemoryStorage) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (s *Session) snapshot() Session {
	out := *s
	out.TempFiles = append([]string(nil), s.TempFiles...)
	return out
}
