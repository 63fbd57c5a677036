package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wricardo/mondrian-blocks/game/engine"
	"github.com/wricardo/mondrian-blocks/game/replay"
)

// Option configures the game service
type Option func(*gameServiceImpl)

// WithLogger sets the service logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *gameServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBroadcaster sets where replay events are pushed
func WithBroadcaster(b Broadcaster) Option {
	return func(s *gameServiceImpl) {
		s.broadcaster = b
	}
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions    SessionManager
	catalogs    CatalogManager
	solver      Solver
	broadcaster Broadcaster
	logger      *slog.Logger
	mu          sync.RWMutex
}

// NewGameService creates a new game service instance. solver may be nil, in
// which case Solve reports ErrSolverUnavailable.
func NewGameService(sessions SessionManager, catalogs CatalogManager, solver Solver, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		catalogs: catalogs,
		solver:   solver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new board from the named catalog, or the default
// catalog when catalogID is empty
func (s *gameServiceImpl) CreateSession(ctx context.Context, catalogID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var catalog *engine.Catalog
	if catalogID == "" {
		catalogID, catalog = s.catalogs.GetDefault()
	} else {
		var err error
		catalog, err = s.catalogs.LoadCatalog(catalogID)
		if err != nil {
			return nil, s.catalogLoadError(catalogID, err)
		}
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create("", catalogID, catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Info("session created", "session", sess.ID, "catalog", catalogID, "blocks", len(catalog.Blocks))
	return sessionInfo(sess), nil
}

// catalogLoadError adds the available catalog ids to a not-found error
func (s *gameServiceImpl) catalogLoadError(catalogID string, err error) error {
	available, listErr := s.catalogs.ListCatalogs()
	if listErr != nil || len(available) == 0 {
		return fmt.Errorf("failed to load catalog %s: %w", catalogID, err)
	}
	ids := make([]string, 0, len(available))
	for _, c := range available {
		ids = append(ids, c.CatalogID)
	}
	return fmt.Errorf("failed to load catalog %s (available: %v): %w", catalogID, ids, err)
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sessionInfo(sess), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session, abandoning any replay in progress
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionNotFound, err)
	}
	s.logger.Info("session deleted", "session", sessionID)
	return nil
}

// GetBoard returns the current board of a session
func (s *gameServiceImpl) GetBoard(ctx context.Context, sessionID string) (*BoardView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return boardView(sess), nil
}

// Place puts a block on the board with its top-left cell at (x, y)
func (s *gameServiceImpl) Place(ctx context.Context, sessionID string, blockID, x, y int) (*PlacementResult, error) {
	return s.interact(sessionID, OpPlace, blockID, func(st engine.State) engine.Rejection {
		return st.CheckPlace(blockID, x, y)
	}, func(st engine.State) (engine.State, bool) {
		return st.Place(blockID, x, y)
	})
}

// Remove takes a block off the board
func (s *gameServiceImpl) Remove(ctx context.Context, sessionID string, blockID int) (*PlacementResult, error) {
	return s.interact(sessionID, OpRemove, blockID, func(st engine.State) engine.Rejection {
		return st.CheckRemove(blockID)
	}, func(st engine.State) (engine.State, bool) {
		return st.Remove(blockID)
	})
}

// Rotate swaps a block's width and height
func (s *gameServiceImpl) Rotate(ctx context.Context, sessionID string, blockID int) (*PlacementResult, error) {
	return s.interact(sessionID, OpRotate, blockID, func(st engine.State) engine.Rejection {
		return st.CheckRotate(blockID)
	}, func(st engine.State) (engine.State, bool) {
		return st.Rotate(blockID)
	})
}

func (s *gameServiceImpl) interact(
	sessionID, op string,
	blockID int,
	check func(engine.State) engine.Rejection,
	apply func(engine.State) (engine.State, bool),
) (*PlacementResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Busy() {
		return nil, ErrBusy
	}

	result := &PlacementResult{Operation: op, BlockID: blockID}
	if reason := check(sess.State); reason != engine.Accepted {
		result.Reason = reason
		result.Message = rejectionMessage(op, blockID, reason)
		result.Board = boardView(sess)
		s.logger.Debug("operation rejected", "session", sessionID, "op", op, "block", blockID, "reason", reason)
		return result, nil
	}

	next, ok := apply(sess.State)
	if !ok {
		// check and apply disagree only if the engine changed underneath us
		return nil, fmt.Errorf("%s block %d: operation not applied", op, blockID)
	}
	sess.State = next

	result.Applied = true
	result.Message = fmt.Sprintf("%s block %d: ok", op, blockID)
	result.Board = boardView(sess)
	s.logger.Debug("operation applied", "session", sessionID, "op", op, "block", blockID)
	return result, nil
}

// Reset empties the board
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*BoardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Busy() {
		return nil, ErrBusy
	}

	sess.State = sess.State.Reset()
	s.logger.Debug("board reset", "session", sessionID)
	return boardView(sess), nil
}

// Solve asks the solver to complete the board and starts replaying its
// answer. The board is left untouched when the solver fails or finds no
// solution.
func (s *gameServiceImpl) Solve(ctx context.Context, sessionID string) (*SolveResult, error) {
	s.mu.Lock()
	sess, err := s.session(sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if sess.Busy() {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	if s.solver == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no solver configured", ErrSolverUnavailable)
	}
	sess.Solving = true
	req := sess.State.SolveRequest()
	s.mu.Unlock()

	s.logger.Info("solve requested", "session", sessionID, "blocks", len(req.Blocks), "pre_placed", len(req.PrePlaced))
	solution, solveErr := s.solver.Solve(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	sess.Solving = false

	if solveErr != nil {
		s.logger.Warn("solver request failed", "session", sessionID, "error", solveErr)
		return nil, fmt.Errorf("%w: %v", ErrSolverUnavailable, solveErr)
	}
	if len(solution) == 0 {
		s.logger.Info("no solution found", "session", sessionID)
		return nil, ErrNoSolution
	}
	if _, err := s.sessions.Get(sessionID); err != nil {
		// deleted while the solver was working
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	runID, err := sess.Replay.Start(context.WithoutCancel(ctx), solution, replay.Hooks{
		OnStep: func(step int, p engine.Placement) { s.replayStep(sess, step, p) },
		OnDone: func(p replay.Progress, err error) { s.replayDone(sess, p, err) },
	})
	if err != nil {
		if errors.Is(err, replay.ErrRunning) {
			return nil, ErrBusy
		}
		return nil, fmt.Errorf("failed to start replay: %w", err)
	}

	s.logger.Info("replay started", "session", sessionID, "run", runID, "steps", len(solution))
	return &SolveResult{
		RunID:    runID,
		Steps:    len(solution),
		Solution: solution,
		Replay:   sess.Replay.Progress(),
	}, nil
}

func (s *gameServiceImpl) replayStep(sess *Session, step int, p engine.Placement) {
	s.mu.Lock()
	sess.State, _ = sess.State.Apply(p)
	view := boardView(sess)
	s.mu.Unlock()

	progress := sess.Replay.Progress()
	s.logger.Debug("replay step", "session", sess.ID, "run", progress.RunID, "step", step, "block", p.ID)
	s.broadcast(sess.ID, EventReplayStep, &ReplayStep{
		RunID:     progress.RunID,
		Step:      step,
		Total:     progress.Total,
		Placement: p,
		Board:     view,
	})
}

func (s *gameServiceImpl) replayDone(sess *Session, p replay.Progress, err error) {
	s.mu.RLock()
	view := boardView(sess)
	s.mu.RUnlock()

	cancelled := err != nil
	s.logger.Info("replay finished", "session", sess.ID, "run", p.RunID, "steps", p.Step, "total", p.Total, "cancelled", cancelled)
	s.broadcast(sess.ID, EventReplayDone, &ReplayDone{
		Progress:  p,
		Cancelled: cancelled,
		Board:     view,
	})
}

func (s *gameServiceImpl) broadcast(sessionID, event string, data interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastEvent(sessionID, event, data)
	}
}

// GetReplay returns the replay progress of a session
func (s *gameServiceImpl) GetReplay(ctx context.Context, sessionID string) (*replay.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	p := sess.Replay.Progress()
	return &p, nil
}

// CancelReplay stops a running replay. Placements already applied are kept.
func (s *gameServiceImpl) CancelReplay(ctx context.Context, sessionID string) (*replay.Progress, error) {
	s.mu.RLock()
	sess, err := s.session(sessionID)
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	// Wait must run without the service lock: the replay goroutine takes it
	// on every tick.
	sess.Replay.Cancel()
	sess.Replay.Wait()

	p := sess.Replay.Progress()
	s.logger.Info("replay cancelled", "session", sessionID, "run", p.RunID, "step", p.Step)
	return &p, nil
}

// ListCatalogs returns all available catalogs
func (s *gameServiceImpl) ListCatalogs(ctx context.Context) ([]*CatalogInfo, error) {
	return s.catalogs.ListCatalogs()
}

// LoadCatalog loads a specific catalog
func (s *gameServiceImpl) LoadCatalog(ctx context.Context, catalogID string) (*engine.Catalog, error) {
	return s.catalogs.LoadCatalog(catalogID)
}

// SaveCatalog saves a catalog
func (s *gameServiceImpl) SaveCatalog(ctx context.Context, catalogID string, catalog *engine.Catalog) error {
	if err := s.catalogs.SaveCatalog(catalogID, catalog); err != nil {
		return err
	}
	s.logger.Info("catalog saved", "catalog", catalogID, "blocks", len(catalog.Blocks))
	return nil
}

// session looks up a session and records the access. Callers hold s.mu.
func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	_ = s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

func sessionInfo(sess *Session) *SessionInfo {
	name := ""
	if sess.Catalog != nil {
		name = sess.Catalog.Name
	}
	return &SessionInfo{
		ID:             sess.ID,
		CatalogID:      sess.CatalogID,
		CatalogName:    name,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessed(),
		Board:          boardView(sess),
	}
}

func boardView(sess *Session) *BoardView {
	st := sess.State
	view := &BoardView{
		Grid:         st.Grid,
		Blocks:       st.Blocks.Blocks(),
		PlacedBlocks: st.PlacedBlocks(),
		Unplaced:     st.Unplaced(),
		Rows:         st.Render(),
		Filled:       st.Grid.Filled(),
		Complete:     st.Complete(),
		Solving:      sess.Solving,
	}
	if sess.Replay != nil {
		view.Replay = sess.Replay.Progress()
	}
	view.Interactive = !sess.Solving && view.Replay.Status != replay.Running
	return view
}

func rejectionMessage(op string, blockID int, reason engine.Rejection) string {
	switch reason {
	case engine.RejectUnknownBlock:
		return fmt.Sprintf("block %d does not exist", blockID)
	case engine.RejectAlreadyPlaced:
		return fmt.Sprintf("block %d is already on the board", blockID)
	case engine.RejectNotPlaced:
		return fmt.Sprintf("block %d is not on the board", blockID)
	case engine.RejectOutOfBounds:
		return fmt.Sprintf("cannot %s block %d: it would leave the board", op, blockID)
	case engine.RejectOccupied:
		return fmt.Sprintf("cannot %s block %d: cells are occupied", op, blockID)
	default:
		return fmt.Sprintf("cannot %s block %d: %s", op, blockID, reason)
	}
}
