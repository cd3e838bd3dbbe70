package impl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stroll/internal/domain/entity"
	domainerrors "stroll/internal/domain/errors"
	"stroll/internal/usecase"
)

// fakePlanner returns a trivially priced roundtrip over the candidates it is
// given, in input order, and records what it was asked to plan.
type fakePlanner struct {
	mu             sync.Mutex
	planErr        error
	unblock        chan struct{} // When set, Plan waits for it before returning.
	lastCandidates []*entity.POI
	calls          int
}

func (p *fakePlanner) Plan(_ context.Context, start entity.Coordinate, candidates []*entity.POI, _ entity.PlanConstraints) (*entity.GeneratedRoute, error) {
	p.mu.Lock()
	p.calls++
	p.lastCandidates = candidates
	unblock := p.unblock
	err := p.planErr
	p.mu.Unlock()

	if unblock != nil {
		<-unblock
	}
	if err != nil {
		return nil, err
	}

	return routeOver(start, candidates)
}

func (p *fakePlanner) lastPlanned() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]string, len(p.lastCandidates))
	for i, poi := range p.lastCandidates {
		ids[i] = poi.ID
	}

	return ids
}

func routeOver(start entity.Coordinate, pois []*entity.POI) (*entity.GeneratedRoute, error) {
	waypoints := make([]entity.Waypoint, 0, len(pois)+2)
	waypoints = append(waypoints, entity.Waypoint{Role: entity.RoleStart, Location: start})
	for _, poi := range pois {
		waypoints = append(waypoints, entity.Waypoint{POI: poi, Role: entity.RoleStop, Location: poi.Location})
	}
	waypoints = append(waypoints, entity.Waypoint{Role: entity.RoleEnd, Location: start})

	segments := make([]entity.RouteSegment, len(waypoints)-1)
	for i := range segments {
		segments[i] = entity.RouteSegment{
			From:           waypoints[i].Location,
			To:             waypoints[i+1].Location,
			DistanceMeters: 400,
			Duration:       5 * time.Minute,
		}
	}

	return entity.NewGeneratedRoute(waypoints, segments)
}

func sessionServiceForTest(planner usecase.PlannerUsecase) usecase.SessionUsecase {
	return NewSessionService(planner, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func openSession(t *testing.T, svc usecase.SessionUsecase, ids ...string) *usecase.SessionView {
	t.Helper()

	candidates := make([]*entity.POI, len(ids))
	for i, id := range ids {
		candidates[i] = poiAt(id, 48.85+float64(i)*0.004, 2.34+float64(i)*0.003, 5)
	}

	view, err := svc.Open(context.Background(), plannerStart, candidates, roundtrip(5))
	require.NoError(t, err)

	return view
}

func assertInvalidEdit(t *testing.T, err error) {
	t.Helper()

	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domainerrors.ErrInvalidEdit.ErrorCode(), appErr.ErrorCode())
}

func TestSession_OpenStartsClean(t *testing.T) {
	svc := sessionServiceForTest(&fakePlanner{})

	view := openSession(t, svc, "A", "B", "C")

	assert.Equal(t, usecase.SessionClean, view.State)
	assert.Equal(t, 0, view.PendingChanges)
	assert.Equal(t, 3, view.Route.StopCount())
	assert.NotEqual(t, uuid.Nil, view.ID)
}

func TestSession_GetUnknownID(t *testing.T) {
	svc := sessionServiceForTest(&fakePlanner{})

	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domainerrors.ErrSessionNotFound)
}

func TestSession_InsertMarksDirty(t *testing.T) {
	svc := sessionServiceForTest(&fakePlanner{})
	ctx := context.Background()

	view := openSession(t, svc, "A", "B")

	updated, err := svc.Insert(ctx, view.ID, poiAt("C", 48.86, 2.35, 5), -1)
	require.NoError(t, err)

	assert.Equal(t, usecase.SessionDirty, updated.State)
	assert.Equal(t, 1, updated.PendingChanges)
	// The displayed route does not change until commit.
	assert.Equal(t, 2, updated.Route.StopCount())
}

func TestSession_InsertRejectsDuplicates(t *testing.T) {
	svc := sessionServiceForTest(&fakePlanner{})
	ctx := context.Background()

	view := openSession(t, svc, "A", "B")

	// Already present in the displayed route.
	_, err := svc.Insert(ctx, view.ID, poiAt("A", 48.86, 2.35, 5), -1)
	assertInvalidEdit(t, err)

	// Already referenced by a pending change.
	_, err = svc.Insert(ctx, view.ID, poiAt("C", 48.86, 2.35, 5), -1)
	require.NoError(t, err)
	_, err = svc.Insert(ctx, view.ID, poiAt("C", 48.87, 2.36, 5), -1)
	assertInvalidEdit(t, err)
}

func TestSession_InsertValidatesIndexAndPOI(t *testing.T) {
	svc := sessionServiceForTest(&fakePlanner{})
	ctx := context.Background()

	view := openSession(t, svc, "A", "B")

	_, err := svc.Insert(ctx, view.ID, poiAt("C", 48.86, 2.35, 5), 7)
	assertInvalidEdit(t, err)

	_, err = svc.Insert(ctx, view.ID, nil, -1)
	assertInvalidEdit(t, err)

	_, err = svc.Insert(ctx, view.ID, poiAt("D", 99, 2.35, 5), -1)
	assertInvalidEdit(t, err)
}

func TestSession_DeleteLastStopRefused(t *testing.T) {
	svc := sessionServiceForTest(&fakePlanner{})
	ctx := context.Background()

	view := openSession(t, svc, "A")

	_, err := svc.Delete(ctx, view.ID, 0)
	assert.ErrorIs(t, err, domainerrors.ErrRouteNowEmpty)

	// The refused delete left no trace on the session.
	after, err := svc.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, usecase.SessionClean, after.State)
	assert.Equal(t, 0, after.PendingChanges)
}

func TestSession_DeleteValidatesIndexAgainstFoldedStops(t *testing.T) {
	svc := sessionServiceForTest(&fakePlanner{})
	ctx := context.Background()

	view := openSession(t, svc, "A", "B")

	// After deleting index 1 only one stop remains, so a second delete at
	// index 1 is out of range even though the displayed route has two stops.
	_, err := svc.Delete(ctx, view.ID, 1)
	require.NoError(t, err)

	_, err = svc.Delete(ctx, view.ID, 1)
	assertInvalidEdit(t, err)
}

func TestSession_CommitFoldsLedgerInOrder(t *testing.T) {
	planner := &fakePlanner{}
	svc := sessionServiceForTest(planner)
	ctx := context.Background()

	view := openSession(t, svc, "A", "B", "C")

	_, err := svc.Delete(ctx, view.ID, 1)
	require.NoError(t, err)
	_, err = svc.Insert(ctx, view.ID, poiAt("D", 48.87, 2.36, 5), -1)
	require.NoError(t, err)

	committed, err := svc.Commit(ctx, view.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "C", "D"}, planner.lastPlanned())
	assert.Equal(t, usecase.SessionClean, committed.State)
	assert.Equal(t, 0, committed.PendingChanges)
	assert.Equal(t, 3, committed.Route.StopCount())
}

func TestSession_CommitReplaceSwapsStop(t *testing.T) {
	planner := &fakePlanner{}
	svc := sessionServiceForTest(planner)
	ctx := context.Background()

	view := openSession(t, svc, "A", "B")

	_, err := svc.Replace(ctx, view.ID, 0, poiAt("Z", 48.87, 2.36, 5))
	require.NoError(t, err)

	_, err = svc.Commit(ctx, view.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"Z", "B"}, planner.lastPlanned())
}

func TestSession_CommitWithoutChanges(t *testing.T) {
	svc := sessionServiceForTest(&fakePlanner{})

	view := openSession(t, svc, "A", "B")

	_, err := svc.Commit(context.Background(), view.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNothingToCommit)
}

func TestSession_FailedCommitKeepsLedgerAndRoute(t *testing.T) {
	planner := &fakePlanner{}
	svc := sessionServiceForTest(planner)
	ctx := context.Background()

	view := openSession(t, svc, "A", "B")

	_, err := svc.Insert(ctx, view.ID, poiAt("C", 48.86, 2.35, 5), -1)
	require.NoError(t, err)

	planner.mu.Lock()
	planner.planErr = domainerrors.ErrDirectionsFailure
	planner.mu.Unlock()

	_, err = svc.Commit(ctx, view.ID)
	require.Error(t, err)

	after, getErr := svc.Get(ctx, view.ID)
	require.NoError(t, getErr)
	assert.Equal(t, usecase.SessionFailed, after.State)
	assert.Equal(t, 1, after.PendingChanges)
	assert.NotEmpty(t, after.LastError)
	// The displayed route is still the pre-commit one.
	assert.Equal(t, 2, after.Route.StopCount())

	// The retry succeeds once the provider recovers.
	planner.mu.Lock()
	planner.planErr = nil
	planner.mu.Unlock()

	committed, err := svc.Commit(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, usecase.SessionClean, committed.State)
	assert.Equal(t, 3, committed.Route.StopCount())
	assert.Empty(t, committed.LastError)
}

func TestSession_DiscardAll(t *testing.T) {
	svc := sessionServiceForTest(&fakePlanner{})
	ctx := context.Background()

	view := openSession(t, svc, "A", "B")

	_, err := svc.Insert(ctx, view.ID, poiAt("C", 48.86, 2.35, 5), -1)
	require.NoError(t, err)
	_, err = svc.Delete(ctx, view.ID, 0)
	require.NoError(t, err)

	discarded, err := svc.DiscardAll(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, usecase.SessionClean, discarded.State)
	assert.Equal(t, 0, discarded.PendingChanges)

	// The displayed route is byte-for-byte the pre-edit one.
	assert.Equal(t, view.Route, discarded.Route)

	// A second discard has nothing left to drop.
	_, err = svc.DiscardAll(ctx, view.ID)
	assert.ErrorIs(t, err, domainerrors.ErrNothingToDiscard)
}

func TestSession_EditsRejectedWhileOptimizing(t *testing.T) {
	planner := &fakePlanner{}
	svc := sessionServiceForTest(planner)
	ctx := context.Background()

	view := openSession(t, svc, "A", "B")

	_, err := svc.Insert(ctx, view.ID, poiAt("C", 48.86, 2.35, 5), -1)
	require.NoError(t, err)

	// Block only the commit's re-plan, not the open above.
	block := make(chan struct{})
	planner.mu.Lock()
	planner.unblock = block
	planner.mu.Unlock()

	commitDone := make(chan error, 1)
	go func() {
		_, commitErr := svc.Commit(ctx, view.ID)
		commitDone <- commitErr
	}()

	// Wait for the commit goroutine to flip the state.
	require.Eventually(t, func() bool {
		current, getErr := svc.Get(ctx, view.ID)

		return getErr == nil && current.State == usecase.SessionOptimizing
	}, time.Second, 2*time.Millisecond)

	_, err = svc.Insert(ctx, view.ID, poiAt("D", 48.87, 2.36, 5), -1)
	assert.ErrorIs(t, err, domainerrors.ErrEditConflict)

	_, err = svc.Commit(ctx, view.ID)
	assert.ErrorIs(t, err, domainerrors.ErrEditConflict)

	_, err = svc.DiscardAll(ctx, view.ID)
	assert.ErrorIs(t, err, domainerrors.ErrEditConflict)

	close(block)
	require.NoError(t, <-commitDone)

	after, err := svc.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, usecase.SessionClean, after.State)
}

func TestSession_Close(t *testing.T) {
	svc := sessionServiceForTest(&fakePlanner{})
	ctx := context.Background()

	view := openSession(t, svc, "A")

	require.NoError(t, svc.Close(ctx, view.ID))

	_, err := svc.Get(ctx, view.ID)
	assert.ErrorIs(t, err, domainerrors.ErrSessionNotFound)

	assert.ErrorIs(t, svc.Close(ctx, view.ID), domainerrors.ErrSessionNotFound)
}

func TestSession_ViewRouteIsIsolated(t *testing.T) {
	svc := sessionServiceForTest(&fakePlanner{})
	ctx := context.Background()

	view := openSession(t, svc, "A", "B")
	view.Route.Waypoints[0].Role = entity.RoleEnd

	after, err := svc.Get(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleStart, after.Route.Waypoints[0].Role)
}
