package supabase

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StorageKey is the fixed key under which the serialized session is kept.
const StorageKey = "supabase_session"

// SessionStorage is durable storage for the serialized session. Load returns
// (nil, nil) when no entry exists.
type SessionStorage interface {
	Load() ([]byte, error)
	Save(data []byte) error
	Delete() error
}

// =============================================================================
// Storage Implementations
// =============================================================================

// FileStorage persists the session to a single JSON file.
type FileStorage struct {
	Path string
}

// NewFileStorage creates file-backed session storage rooted at dir.
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{Path: filepath.Join(dir, StorageKey+".json")}
}

func (f *FileStorage) Load() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	return data, nil
}

func (f *FileStorage) Save(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (f *FileStorage) Delete() error {
	if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// MemoryStorage keeps the session in memory only.
type MemoryStorage struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryStorage() *MemoryStorage { return &MemoryStorage{} }

func (m *MemoryStorage) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *MemoryStorage) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make([]byte, len(data))
	copy(m.data, data)
	return nil
}

func (m *MemoryStorage) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

// =============================================================================
// Session Store
// =============================================================================

// AuthEvent identifies a session state transition delivered to listeners.
type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
)

// AuthListener receives session state transitions. The session is nil for
// SIGNED_OUT.
type AuthListener func(event AuthEvent, session *Session)

// SessionStore is the single source of truth for the current auth session.
// Every request reads the token through it at call time, so there is no
// process-wide mutable Authorization header to race against.
type SessionStore struct {
	mu        sync.RWMutex
	storage   SessionStorage
	current   *Session
	listeners []AuthListener
	now       func() time.Time
}

// NewSessionStore creates a session store over the given storage.
func NewSessionStore(storage SessionStorage) *SessionStore {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	return &SessionStore{storage: storage, now: time.Now}
}

// Save persists the session durably and makes it the active one.
func (s *SessionStore) Save(session *Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.storage.Save(data); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = session
	listeners := append([]AuthListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		if l != nil {
			l(EventSignedIn, session)
		}
	}
	return nil
}

// Load reads durable storage and restores the session when it is still valid.
// An expired or absent entry yields (nil, nil); the stale entry is left in
// place and simply stops being honored.
func (s *SessionStore) Load() (*Session, error) {
	s.mu.RLock()
	if s.current != nil && !s.expired(s.current) {
		current := s.current
		s.mu.RUnlock()
		return current, nil
	}
	s.mu.RUnlock()

	data, err := s.storage.Load()
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("parse stored session: %w", err)
	}
	if s.expired(&session) {
		return nil, nil
	}

	s.mu.Lock()
	s.current = &session
	s.mu.Unlock()
	return &session, nil
}

// Clear removes the durable entry and resets the in-memory session. After
// Clear every request falls back to the anonymous key.
func (s *SessionStore) Clear() error {
	if err := s.storage.Delete(); err != nil {
		return err
	}

	s.mu.Lock()
	s.current = nil
	listeners := append([]AuthListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, l := range listeners {
		if l != nil {
			l(EventSignedOut, nil)
		}
	}
	return nil
}

// Current returns the in-memory session without touching storage. It returns
// nil once the session has expired.
func (s *SessionStore) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil || s.expired(s.current) {
		return nil
	}
	return s.current
}

// Token returns the bearer token for the live session, or "" when no session
// is active.
func (s *SessionStore) Token() string {
	if session := s.Current(); session != nil {
		return session.AccessToken
	}
	return ""
}

// OnChange registers a listener for session transitions and immediately
// delivers INITIAL_SESSION when a valid session already exists. The returned
// func unregisters the listener.
func (s *SessionStore) OnChange(listener AuthListener) func() {
	session, _ := s.Load()
	if session != nil {
		listener(EventInitialSession, session)
	}

	s.mu.Lock()
	s.listeners = append(s.listeners, listener)
	idx := len(s.listeners) - 1
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < len(s.listeners) {
			s.listeners[idx] = nil
		}
	}
}

// expired reports whether the session's expiry is in the past. When the
// session carries no expires_at, the exp claim of the access token is used.
func (s *SessionStore) expired(session *Session) bool {
	expiresAt := session.ExpiresAt
	if expiresAt == 0 {
		expiresAt = tokenExpiry(session.AccessToken)
	}
	if expiresAt == 0 {
		return false
	}
	return time.Unix(expiresAt, 0).Before(s.now())
}

// tokenExpiry extracts the exp claim from a JWT without verifying the
// signature. Verification belongs to the backend; the client only needs the
// timestamp.
func tokenExpiry(token string) int64 {
	if token == "" {
		return 0
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return 0
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return exp.Unix()
}
