package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// HealthHandler reports whether the backing stores answer. Mongo and Redis
// are only checked when configured.
type HealthHandler struct {
	sql   *gorm.DB
	mongo *mongo.Client
	redis *redis.Client
}

func NewHealthHandler(sql *gorm.DB, mongoClient *mongo.Client, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{sql: sql, mongo: mongoClient, redis: redisClient}
}

func (h *HealthHandler) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": h.pingSQL(ctx)}
	if h.mongo != nil {
		checks["mongo"] = upOrDown(h.mongo.Ping(ctx, nil))
	}
	if h.redis != nil {
		checks["redis"] = upOrDown(h.redis.Ping(ctx).Err())
	}

	code := http.StatusOK
	overall := "healthy"
	for _, s := range checks {
		if s != "up" {
			code = http.StatusServiceUnavailable
			overall = "degraded"
		}
	}
	return c.JSON(code, echo.Map{
		"status":  overall,
		"service": "volunteer-hub",
		"checks":  checks,
	})
}

func (h *HealthHandler) pingSQL(ctx context.Context) string {
	sqlDB, err := h.sql.DB()
	if err != nil {
		return "down"
	}
	return upOrDown(sqlDB.PingContext(ctx))
}

func upOrDown(err error) string {
	if err != nil {
		return "down"
	}
	return "up"
}
