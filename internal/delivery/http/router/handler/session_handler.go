package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"stroll/internal/delivery/http/response"
	domainerrors "stroll/internal/domain/errors"
	"stroll/internal/usecase"
)

// SessionHandlerParams holds dependencies for SessionHandler, injected by Fx.
type SessionHandlerParams struct {
	fx.In

	SessionUC usecase.SessionUsecase
	Logger    *slog.Logger
}

// SessionHandler serves the route edit-session API.
type SessionHandler struct {
	sessionUC usecase.SessionUsecase
	logger    *slog.Logger
}

// NewSessionHandler is the constructor for SessionHandler
func NewSessionHandler(params SessionHandlerParams) *SessionHandler {
	return &SessionHandler{
		sessionUC: params.SessionUC,
		logger:    params.Logger,
	}
}

// ChangeRequest represents one pending edit.
type ChangeRequest struct {
	Op    string  `json:"op" validate:"required,oneof=insert delete replace"`
	Index *int    `json:"index,omitempty"`
	POI   *POIDTO `json:"poi,omitempty"`
}

// Open plans a first route and opens an edit session for it.
func (h *SessionHandler) Open(c echo.Context) error {
	var req PlanRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid session input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	view, err := h.sessionUC.Open(
		c.Request().Context(),
		req.Start.toEntity(),
		poisToEntities(req.Candidates),
		req.Constraints.toEntity(),
	)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusCreated, sessionToDTO(view), "Session opened")
}

// Get returns the current session snapshot.
func (h *SessionHandler) Get(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return err
	}

	view, err := h.sessionUC.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, sessionToDTO(view), "")
}

// Change records one pending insert, delete or replace.
func (h *SessionHandler) Change(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return err
	}

	var req ChangeRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid change input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	ctx := c.Request().Context()

	var view *usecase.SessionView
	switch req.Op {
	case "insert":
		index := -1
		if req.Index != nil {
			index = *req.Index
		}
		var poi POIDTO
		if req.POI != nil {
			poi = *req.POI
		}
		view, err = h.sessionUC.Insert(ctx, id, poi.toEntity(), index)
	case "delete":
		if req.Index == nil {
			return response.BadRequest(c, "VALIDATION_ERROR", "delete requires an index")
		}
		view, err = h.sessionUC.Delete(ctx, id, *req.Index)
	case "replace":
		if req.Index == nil {
			return response.BadRequest(c, "VALIDATION_ERROR", "replace requires an index")
		}
		var poi POIDTO
		if req.POI != nil {
			poi = *req.POI
		}
		view, err = h.sessionUC.Replace(ctx, id, *req.Index, poi.toEntity())
	}
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, sessionToDTO(view), "Change recorded")
}

// Commit folds the ledger into one re-optimization pass.
func (h *SessionHandler) Commit(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return err
	}

	view, err := h.sessionUC.Commit(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, sessionToDTO(view), "Route re-optimized")
}

// Discard drops all pending changes.
func (h *SessionHandler) Discard(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return err
	}

	view, err := h.sessionUC.DiscardAll(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, sessionToDTO(view), "Changes discarded")
}

// Close ends the session.
func (h *SessionHandler) Close(c echo.Context) error {
	id, err := h.sessionID(c)
	if err != nil {
		return err
	}

	if err := h.sessionUC.Close(c.Request().Context(), id); err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, nil, "Session closed")
}

func (h *SessionHandler) sessionID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, domainerrors.ErrValidationFailed.WithDetails("session id must be a UUID")
	}

	return id, nil
}
