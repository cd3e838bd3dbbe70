package handler

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"stroll/internal/delivery/http/response"
	"stroll/internal/usecase"
)

// PlanHandlerParams holds dependencies for PlanHandler, injected by Fx.
type PlanHandlerParams struct {
	fx.In

	PlannerUC usecase.PlannerUsecase
	Logger    *slog.Logger
}

// PlanHandler serves stateless route planning.
type PlanHandler struct {
	plannerUC usecase.PlannerUsecase
	logger    *slog.Logger
}

// NewPlanHandler is the constructor for PlanHandler
func NewPlanHandler(params PlanHandlerParams) *PlanHandler {
	return &PlanHandler{
		plannerUC: params.PlannerUC,
		logger:    params.Logger,
	}
}

// PlanRequest represents the request body for planning a tour
type PlanRequest struct {
	Start       CoordinateDTO  `json:"start" validate:"required"`
	Candidates  []POIDTO       `json:"candidates" validate:"required,min=1,dive"`
	Constraints ConstraintsDTO `json:"constraints" validate:"required"`
}

// Plan handles planning a walking tour from candidate POIs
func (h *PlanHandler) Plan(c echo.Context) error {
	var req PlanRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid plan input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	route, err := h.plannerUC.Plan(
		c.Request().Context(),
		req.Start.toEntity(),
		poisToEntities(req.Candidates),
		req.Constraints.toEntity(),
	)
	if err != nil {
		return err
	}

	return response.Success(c, http.StatusOK, routeToDTO(route), "Route planned")
}
