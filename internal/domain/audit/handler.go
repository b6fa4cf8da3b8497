package audit

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edroute/edroute/internal/platform/auth"
	"github.com/edroute/edroute/pkg/pagination"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin"))
	g.GET("/audit-log", h.List)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)

	params := map[string]string{}
	if v := c.QueryParam("actor_id"); v != "" {
		params["actor_id"] = v
	}
	if v := c.QueryParam("action"); v != "" {
		if !Action(v).Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid action filter")
		}
		params["action"] = v
	}
	if v := c.QueryParam("resource"); v != "" {
		params["resource"] = v
	}

	items, total, err := h.repo.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
