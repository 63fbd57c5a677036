package session

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/mondrian-blocks/game/catalog"
	"github.com/wricardo/mondrian-blocks/game/engine"
	"github.com/wricardo/mondrian-blocks/game/replay"
	"github.com/wricardo/mondrian-blocks/game/service"
)

var (
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyExists = errors.New("session already exists")
	ErrNoSessionID          = errors.New("no free session id")
	// ErrInvalidCatalog is the catalog manager's sentinel
	ErrInvalidCatalog = catalog.ErrInvalidCatalog
)

// maxIDAttempts bounds the search for an unused 4-hex id
const maxIDAttempts = 1024

// Option configures a Manager
type Option func(*Manager)

// WithReplayDelay sets the tick delay of replay controllers created for new
// sessions
func WithReplayDelay(d time.Duration) Option {
	return func(m *Manager) {
		m.replayDelay = d
	}
}

// WithLogger sets the manager logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// Manager handles board session lifecycle
type Manager struct {
	sessions    map[string]*service.Session
	replayDelay time.Duration
	logger      *slog.Logger
	idSource    io.Reader
	mu          sync.RWMutex
}

// NewManager creates a new session manager
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions:    make(map[string]*service.Session),
		replayDelay: replay.DefaultDelay,
		logger:      slog.Default(),
		idSource:    rand.Reader,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Create creates a new session with the given ID holding every block of the
// catalog. An empty id generates one.
func (m *Manager) Create(id, catalogID string, catalog *engine.Catalog) (*service.Session, error) {
	if err := engine.ValidateCatalog(catalog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		var err error
		if id, err = m.uniqueSessionID(); err != nil {
			return nil, err
		}
	}

	// Check if session already exists (case-insensitive)
	if _, exists := m.sessions[strings.ToLower(id)]; exists {
		return nil, ErrSessionAlreadyExists
	}

	now := time.Now()
	sess := &service.Session{
		ID:        id,
		CatalogID: catalogID,
		Catalog:   catalog,
		State:     engine.NewState(catalog),
		Replay:    replay.NewController(m.replayDelay),
		CreatedAt: now,
	}
	sess.Touch(now)

	m.sessions[strings.ToLower(id)] = sess
	return sess, nil
}

// Get retrieves a session by ID (case-insensitive)
func (m *Manager) Get(id string) (*service.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// List returns all active sessions
func (m *Manager) List() []*service.Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*service.Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		result = append(result, sess)
	}
	return result
}

// Delete removes a session and cancels its replay
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(id)
	sess, exists := m.sessions[key]
	if !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, key)
	sess.Replay.Cancel()
	return nil
}

// UpdateLastAccessed updates the last accessed time for a session
func (m *Manager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, exists := m.sessions[strings.ToLower(id)]
	if !exists {
		return ErrSessionNotFound
	}
	sess.Touch(time.Now())
	return nil
}

// CleanupExpiredSessions removes sessions that haven't been accessed in the
// given duration, cancelling their replays
func (m *Manager) CleanupExpiredSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for key, sess := range m.sessions {
		if sess.LastAccessed().Before(cutoff) {
			sess.Replay.Cancel()
			delete(m.sessions, key)
			removed++
		}
	}

	if removed > 0 {
		m.logger.Info("expired sessions removed", "count", removed, "max_age", maxAge)
	}
	return removed
}

// Count returns the number of active sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// uniqueSessionID generates a 4-character id not yet in use. Callers hold m.mu.
func (m *Manager) uniqueSessionID() (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := generateSessionID(m.idSource)
		if err != nil {
			return "", err
		}
		if _, exists := m.sessions[id]; !exists {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrNoSessionID, maxIDAttempts)
}

// generateSessionID reads a random 4-character session ID from r
func generateSessionID(r io.Reader) (string, error) {
	// 2 random bytes (4 hex characters)
	bytes := make([]byte, 2)
	if _, err := io.ReadFull(r, bytes); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
