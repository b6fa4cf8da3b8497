package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// DBStats is the connection pool snapshot reported by the health endpoint.
type DBStats struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

func snapshot(pool *pgxpool.Pool) DBStats {
	stat := pool.Stat()
	return DBStats{
		TotalConns:    stat.TotalConns(),
		IdleConns:     stat.IdleConns(),
		AcquiredConns: stat.AcquiredConns(),
		MaxConns:      stat.MaxConns(),
	}
}

// HealthHandler reports liveness for the routing service, including a
// database ping so a wedged pool surfaces as 503 rather than a silent 200.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"service":  "edroute",
				"status":   "unhealthy",
				"error":    err.Error(),
				"database": snapshot(pool),
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"service":  "edroute",
			"status":   "healthy",
			"database": snapshot(pool),
		})
	}
}
