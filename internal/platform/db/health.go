package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is a snapshot of the connection pool, reported on the health
// endpoint.
type PoolStats struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

// GetPoolStats reads the current pool statistics.
func GetPoolStats(pool *pgxpool.Pool) PoolStats {
	s := pool.Stat()
	return PoolStats{
		TotalConns:    s.TotalConns(),
		IdleConns:     s.IdleConns(),
		AcquiredConns: s.AcquiredConns(),
		MaxConns:      s.MaxConns(),
	}
}

type healthResponse struct {
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
	Database PoolStats `json:"database"`
}

// HealthHandler serves the liveness endpoint. The ping runs under a short
// timeout so a stuck pool cannot hang the check.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, healthResponse{
				Status:   "unhealthy",
				Error:    err.Error(),
				Database: GetPoolStats(pool),
			})
		}
		return c.JSON(http.StatusOK, healthResponse{
			Status:   "ok",
			Database: GetPoolStats(pool),
		})
	}
}
