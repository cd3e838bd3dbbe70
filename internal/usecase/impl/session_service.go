package impl

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"stroll/internal/domain/entity"
	domainerrors "stroll/internal/domain/errors"
	"stroll/internal/usecase"
)

// editSession owns one displayed route and its ledger of pending changes.
// All mutations serialize through the session mutex; the route is only ever
// replaced wholesale by a successful commit.
type editSession struct {
	mu          sync.Mutex
	id          uuid.UUID
	state       usecase.SessionState
	route       *entity.GeneratedRoute
	start       entity.Coordinate
	constraints entity.PlanConstraints
	ledger      []entity.PendingChange
	lastError   string
}

type sessionService struct {
	planner usecase.PlannerUsecase
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*editSession
}

// NewSessionService creates the edit-session manager.
func NewSessionService(planner usecase.PlannerUsecase, logger *slog.Logger) usecase.SessionUsecase {
	return &sessionService{
		planner:  planner,
		logger:   logger,
		sessions: make(map[uuid.UUID]*editSession),
	}
}

// Open plans a first route and starts a session owning a private copy of it.
func (s *sessionService) Open(ctx context.Context, start entity.Coordinate, candidates []*entity.POI, constraints entity.PlanConstraints) (*usecase.SessionView, error) {
	route, err := s.planner.Plan(ctx, start, candidates, constraints)
	if err != nil {
		return nil, err
	}

	session := &editSession{
		id:          uuid.New(),
		state:       usecase.SessionClean,
		route:       route.Clone(),
		start:       start,
		constraints: constraints,
	}

	s.mu.Lock()
	s.sessions[session.id] = session
	s.mu.Unlock()

	s.logger.Info("opened edit session",
		slog.String("session", session.id.String()),
		slog.Int("stops", route.StopCount()),
	)

	return session.view(), nil
}

// Get returns the current snapshot of a session.
func (s *sessionService) Get(ctx context.Context, id uuid.UUID) (*usecase.SessionView, error) {
	session, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	return session.viewLocked(), nil
}

// Insert records a pending stop insertion.
func (s *sessionService) Insert(ctx context.Context, id uuid.UUID, poi *entity.POI, index int) (*usecase.SessionView, error) {
	session, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if err := session.editableLocked(); err != nil {
		return nil, err
	}
	if poi == nil || poi.ID == "" || !poi.Location.IsValid() {
		return nil, domainerrors.ErrInvalidEdit.WithDetails("insert requires a valid POI")
	}
	if session.containsLocked(poi.ID) {
		return nil, domainerrors.ErrInvalidEdit.WithDetails(fmt.Sprintf("POI %s is already part of the route or pending changes", poi.ID))
	}

	stops, err := session.effectiveStopsLocked()
	if err != nil {
		return nil, err
	}
	if index >= 0 && index > len(stops) {
		return nil, domainerrors.ErrInvalidEdit.WithDetails(fmt.Sprintf("insert index %d out of range for %d stops", index, len(stops)))
	}

	session.appendLocked(entity.PendingChange{Kind: entity.ChangeInsert, POI: poi, Index: index})

	return session.viewLocked(), nil
}

// Delete records a pending removal of the stop at index. Start and end are
// not addressable: indices cover intermediate stops only.
func (s *sessionService) Delete(ctx context.Context, id uuid.UUID, index int) (*usecase.SessionView, error) {
	session, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if err := session.editableLocked(); err != nil {
		return nil, err
	}

	stops, err := session.effectiveStopsLocked()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(stops) {
		return nil, domainerrors.ErrInvalidEdit.WithDetails(fmt.Sprintf("delete index %d out of range for %d stops", index, len(stops)))
	}
	if len(stops) == 1 {
		// The caller should end the session rather than optimize an empty
		// route; the ledger and the state stay untouched.
		return nil, domainerrors.ErrRouteNowEmpty
	}

	session.appendLocked(entity.PendingChange{Kind: entity.ChangeDelete, Index: index})

	return session.viewLocked(), nil
}

// Replace records a pending swap of the stop at index for another POI.
func (s *sessionService) Replace(ctx context.Context, id uuid.UUID, index int, poi *entity.POI) (*usecase.SessionView, error) {
	session, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if err := session.editableLocked(); err != nil {
		return nil, err
	}
	if poi == nil || poi.ID == "" || !poi.Location.IsValid() {
		return nil, domainerrors.ErrInvalidEdit.WithDetails("replace requires a valid POI")
	}
	if session.containsLocked(poi.ID) {
		return nil, domainerrors.ErrInvalidEdit.WithDetails(fmt.Sprintf("POI %s is already part of the route or pending changes", poi.ID))
	}

	stops, err := session.effectiveStopsLocked()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(stops) {
		return nil, domainerrors.ErrInvalidEdit.WithDetails(fmt.Sprintf("replace index %d out of range for %d stops", index, len(stops)))
	}

	session.appendLocked(entity.PendingChange{Kind: entity.ChangeReplace, POI: poi, Index: index})

	return session.viewLocked(), nil
}

// Commit folds the ledger into one re-optimization pass. The session shows
// no partial state: until the new route is ready the old one stays displayed,
// and on failure the ledger survives for a retry.
func (s *sessionService) Commit(ctx context.Context, id uuid.UUID) (*usecase.SessionView, error) {
	session, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	switch session.state {
	case usecase.SessionDirty, usecase.SessionFailed:
	case usecase.SessionOptimizing:
		session.mu.Unlock()

		return nil, domainerrors.ErrEditConflict
	default:
		session.mu.Unlock()

		return nil, domainerrors.ErrNothingToCommit
	}

	if len(session.ledger) == 0 {
		session.mu.Unlock()

		return nil, domainerrors.ErrNothingToCommit
	}

	session.state = usecase.SessionOptimizing
	candidates, foldErr := entity.FoldChanges(session.route.StopPOIs(), session.ledger)
	start := session.start
	constraints := session.constraints
	session.mu.Unlock()

	if foldErr != nil {
		return s.failCommit(session, foldErr)
	}

	// The provider round-trips happen outside the session lock so reads and
	// rejected edits stay responsive while optimizing.
	route, planErr := s.planner.Plan(ctx, start, candidates, constraints)
	if planErr != nil {
		return s.failCommit(session, planErr)
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	session.route = route.Clone()
	session.ledger = nil
	session.state = usecase.SessionClean
	session.lastError = ""

	s.logger.Info("committed edit session",
		slog.String("session", session.id.String()),
		slog.Int("stops", route.StopCount()),
	)

	return session.viewLocked(), nil
}

// DiscardAll drops the whole ledger, leaving the displayed route untouched.
func (s *sessionService) DiscardAll(ctx context.Context, id uuid.UUID) (*usecase.SessionView, error) {
	session, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	switch session.state {
	case usecase.SessionDirty, usecase.SessionFailed:
	case usecase.SessionOptimizing:
		return nil, domainerrors.ErrEditConflict
	default:
		return nil, domainerrors.ErrNothingToDiscard
	}

	session.ledger = nil
	session.state = usecase.SessionClean
	session.lastError = ""

	return session.viewLocked(), nil
}

// Close ends the session and releases its state.
func (s *sessionService) Close(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return domainerrors.ErrSessionNotFound
	}
	delete(s.sessions, id)

	s.logger.Info("closed edit session", slog.String("session", id.String()))

	return nil
}

func (s *sessionService) lookup(id uuid.UUID) (*editSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, domainerrors.ErrSessionNotFound
	}

	return session, nil
}

func (s *sessionService) failCommit(session *editSession, cause error) (*usecase.SessionView, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	session.state = usecase.SessionFailed
	session.lastError = cause.Error()

	s.logger.Warn("edit session commit failed",
		slog.String("session", session.id.String()),
		slog.Any("error", cause),
	)

	return nil, cause
}

// editableLocked gates ledger mutations on the session state.
func (session *editSession) editableLocked() error {
	switch session.state {
	case usecase.SessionClean, usecase.SessionDirty, usecase.SessionFailed:
		return nil
	default:
		return domainerrors.ErrEditConflict
	}
}

// containsLocked checks identifier uniqueness against the current route and
// every POI referenced by the ledger.
func (session *editSession) containsLocked(id string) bool {
	if session.route.ContainsPOI(id) {
		return true
	}
	for _, change := range session.ledger {
		if change.POI != nil && change.POI.ID == id {
			return true
		}
	}

	return false
}

// effectiveStopsLocked materializes the stop list the ledger currently
// implies, so index checks see what the user sees.
func (session *editSession) effectiveStopsLocked() ([]*entity.POI, error) {
	stops, err := entity.FoldChanges(session.route.StopPOIs(), session.ledger)
	if err != nil {
		return nil, domainerrors.ErrInvalidEdit.WithDetails(err.Error())
	}

	return stops, nil
}

func (session *editSession) appendLocked(change entity.PendingChange) {
	session.ledger = append(session.ledger, change)
	session.state = usecase.SessionDirty
	session.lastError = ""
}

func (session *editSession) view() *usecase.SessionView {
	session.mu.Lock()
	defer session.mu.Unlock()

	return session.viewLocked()
}

func (session *editSession) viewLocked() *usecase.SessionView {
	return &usecase.SessionView{
		ID:             session.id,
		State:          session.state,
		Route:          session.route.Clone(),
		PendingChanges: len(session.ledger),
		LastError:      session.lastError,
	}
}
