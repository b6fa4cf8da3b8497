package lifecycle

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/edroute/edroute/internal/domain/directory"
	"github.com/edroute/edroute/internal/domain/encounter"
	"github.com/edroute/edroute/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "dispatcher", "hospital"))
	readGroup.GET("/requests/:id", h.GetRequest)
	readGroup.GET("/encounters/:id/requests", h.ListByEncounter)

	writeGroup := api.Group("", auth.RequireRole("admin", "dispatcher", "hospital"))
	writeGroup.POST("/requests", h.OpenRequest)
	writeGroup.POST("/requests/:id/accept", h.AcceptRequest)
	writeGroup.POST("/requests/:id/reject", h.RejectRequest)
}

type openRequest struct {
	EncounterID uuid.UUID `json:"encounter_id"`
	HospitalID  uuid.UUID `json:"hospital_id"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) OpenRequest(c echo.Context) error {
	var req openRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.EncounterID == uuid.Nil || req.HospitalID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "encounter_id and hospital_id are required")
	}
	hr, err := h.svc.Open(c.Request().Context(), req.EncounterID, req.HospitalID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, hr)
}

func (h *Handler) AcceptRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	hr, err := h.svc.Accept(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, hr)
}

func (h *Handler) RejectRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req rejectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hr, err := h.svc.Reject(c.Request().Context(), id, req.Reason)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, hr)
}

func (h *Handler) GetRequest(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	hr, err := h.svc.GetRequest(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, hr)
}

func (h *Handler) ListByEncounter(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListByEncounter(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, items)
}

func mapError(err error) error {
	var (
		ve  *ValidationError
		dup *DuplicateRequestError
		ite *InvalidTransitionError
		rna *RejectionNotAllowedError
	)
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusBadRequest, ve.Error())
	case errors.As(err, &dup), errors.As(err, &ite), errors.As(err, &rna):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrNotFound),
		errors.Is(err, encounter.ErrNotFound),
		errors.Is(err, directory.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
