package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/mondrian-blocks/game/engine"
	"github.com/wricardo/mondrian-blocks/game/replay"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrBusy              = errors.New("session is busy solving or replaying")
	ErrNoSolution        = errors.New("no solution found")
	ErrSolverUnavailable = errors.New("solver unavailable")
)

// GameService defines all board operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, catalogID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Board Operations
	GetBoard(ctx context.Context, sessionID string) (*BoardView, error)
	Place(ctx context.Context, sessionID string, blockID, x, y int) (*PlacementResult, error)
	Remove(ctx context.Context, sessionID string, blockID int) (*PlacementResult, error)
	Rotate(ctx context.Context, sessionID string, blockID int) (*PlacementResult, error)
	Reset(ctx context.Context, sessionID string) (*BoardView, error)

	// Solving and Replay
	Solve(ctx context.Context, sessionID string) (*SolveResult, error)
	GetReplay(ctx context.Context, sessionID string) (*replay.Progress, error)
	CancelReplay(ctx context.Context, sessionID string) (*replay.Progress, error)

	// Catalogs
	ListCatalogs(ctx context.Context) ([]*CatalogInfo, error)
	LoadCatalog(ctx context.Context, catalogID string) (*engine.Catalog, error)
	SaveCatalog(ctx context.Context, catalogID string, catalog *engine.Catalog) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, catalogID string, catalog *engine.Catalog) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
}

// CatalogManager handles block catalog loading
type CatalogManager interface {
	LoadCatalog(name string) (*engine.Catalog, error)
	ListCatalogs() ([]*CatalogInfo, error)
	GetDefault() (string, *engine.Catalog)
	SaveCatalog(name string, catalog *engine.Catalog) error
}

// Solver computes a placement sequence completing the board described by req.
// An empty solution means the puzzle has no solution.
type Solver interface {
	Solve(ctx context.Context, req *engine.SolveRequest) (engine.Solution, error)
}

// Broadcaster pushes events to renderers watching a session.
type Broadcaster interface {
	BroadcastEvent(sessionID string, event string, data interface{})
}

// Session represents an active board
type Session struct {
	ID        string
	CatalogID string
	Catalog   *engine.Catalog
	State     engine.State
	Replay    *replay.Controller
	Solving   bool
	CreatedAt time.Time

	accessMu     sync.Mutex
	lastAccessed time.Time
}

// Touch records an access at t. Safe for concurrent use.
func (s *Session) Touch(t time.Time) {
	s.accessMu.Lock()
	s.lastAccessed = t
	s.accessMu.Unlock()
}

// LastAccessed returns the time of the latest Touch.
func (s *Session) LastAccessed() time.Time {
	s.accessMu.Lock()
	defer s.accessMu.Unlock()
	return s.lastAccessed
}

// Busy reports whether a solve request or replay is in flight.
func (s *Session) Busy() bool {
	return s.Solving || (s.Replay != nil && s.Replay.Running())
}
