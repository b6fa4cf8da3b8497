package recommend

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/edroute/edroute/internal/domain/encounter"
	"github.com/edroute/edroute/pkg/geo"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(root *echo.Echo) {
	root.POST("/recommend", h.Recommend)
}

type recommendRequest struct {
	EncounterID string        `json:"encounterId"`
	Urgency     string        `json:"urgency"`
	Location    *geo.Location `json:"location"`
}

func errorBody(code int, msg string) map[string]interface{} {
	return map[string]interface{}{"error": msg, "code": code}
}

func (h *Handler) Recommend(c echo.Context) error {
	var req recommendRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, "malformed request body"))
	}
	if req.Location == nil {
		return c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, "location is required"))
	}
	id, err := uuid.Parse(req.EncounterID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, "encounterId is required"))
	}

	res, err := h.svc.Recommend(c.Request().Context(), id, encounter.Urgency(req.Urgency), *req.Location)
	if err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, ve.Error()))
		}
		if errors.Is(err, encounter.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorBody(http.StatusNotFound, "encounter not found"))
		}
		return c.JSON(http.StatusInternalServerError, errorBody(http.StatusInternalServerError, "internal error"))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"encounterId":     res.EncounterID,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"policy":          res.Policy,
		"recommendations": res.Recommendations,
	})
}
