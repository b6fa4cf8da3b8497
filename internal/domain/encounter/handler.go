package encounter

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/edroute/edroute/internal/platform/auth"
	"github.com/edroute/edroute/pkg/geo"
	"github.com/edroute/edroute/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the intake endpoint at the root and the
// read endpoints under the versioned API group.
func (h *Handler) RegisterRoutes(root *echo.Echo, api *echo.Group) {
	root.POST("/encounters", h.CreateEncounter)

	readGroup := api.Group("", auth.RequireRole("admin", "dispatcher", "hospital"))
	readGroup.GET("/encounters", h.ListEncounters)
	readGroup.GET("/encounters/:id", h.GetEncounter)
}

type createRequest struct {
	PatientID string       `json:"patientId"`
	Location  geo.Location `json:"location"`
	Condition string       `json:"condition"`
	Urgency   string       `json:"urgency"`
}

func errorBody(code int, msg string) map[string]interface{} {
	return map[string]interface{}{"error": msg, "code": code}
}

func (h *Handler) CreateEncounter(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, "malformed request body"))
	}
	e := &Encounter{
		PatientID: req.PatientID,
		Location:  req.Location,
		Condition: Condition(req.Condition),
		Urgency:   Urgency(req.Urgency),
	}
	if err := h.svc.CreateEncounter(c.Request().Context(), e); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, ve.Error()))
		}
		return c.JSON(http.StatusInternalServerError, errorBody(http.StatusInternalServerError, "internal error"))
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":     "encounter created",
		"encounterId": e.ID,
		"timestamp":   e.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) GetEncounter(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.GetEncounter(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "encounter not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListEncounters(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListEncounters(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
