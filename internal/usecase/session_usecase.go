package usecase

import (
	"context"

	"github.com/google/uuid"

	"stroll/internal/domain/entity"
)

// SessionState is the edit-session lifecycle state.
type SessionState string

const (
	SessionClean      SessionState = "clean"
	SessionDirty      SessionState = "dirty"
	SessionOptimizing SessionState = "optimizing"
	SessionFailed     SessionState = "failed"
)

// SessionView is a read-only snapshot of an edit session handed to callers.
type SessionView struct {
	ID             uuid.UUID              `json:"id"`
	State          SessionState           `json:"state"`
	Route          *entity.GeneratedRoute `json:"route"`
	PendingChanges int                    `json:"pending_changes"`
	LastError      string                 `json:"last_error,omitempty"`
}

// SessionUsecase manages route edit sessions: a displayed route plus an
// ordered ledger of pending mutations that is folded into one
// re-optimization pass on commit. Edits never touch the directions provider;
// only Open and Commit do.
type SessionUsecase interface {
	// Open plans a first route and starts an edit session owning it.
	Open(ctx context.Context, start entity.Coordinate, candidates []*entity.POI, constraints entity.PlanConstraints) (*SessionView, error)

	// Get returns the current snapshot of a session.
	Get(ctx context.Context, id uuid.UUID) (*SessionView, error)

	// Insert records a pending stop insertion. A negative index places the
	// stop immediately before the end waypoint.
	Insert(ctx context.Context, id uuid.UUID, poi *entity.POI, index int) (*SessionView, error)

	// Delete records a pending removal of the stop at index.
	Delete(ctx context.Context, id uuid.UUID, index int) (*SessionView, error)

	// Replace records a pending swap of the stop at index for another POI.
	Replace(ctx context.Context, id uuid.UUID, index int, poi *entity.POI) (*SessionView, error)

	// Commit folds the ledger into one re-optimization pass and atomically
	// replaces the displayed route on success.
	Commit(ctx context.Context, id uuid.UUID) (*SessionView, error)

	// DiscardAll drops every pending change, leaving the route untouched.
	DiscardAll(ctx context.Context, id uuid.UUID) (*SessionView, error)

	// Close ends the session and releases its state.
	Close(ctx context.Context, id uuid.UUID) error
}
