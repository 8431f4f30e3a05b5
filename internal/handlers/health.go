package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tendapos/auth-service/internal/redisclient"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// HealthHandler reports service and dependency health.
type HealthHandler struct {
	db    *mongo.Database
	redis *redisclient.Client
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(db *mongo.Database, redis *redisclient.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: redis}
}

// Health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK
	mongoStatus := "ok"
	redisStatus := "ok"

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		if err := h.db.Client().Ping(ctx, readpref.Primary()); err != nil {
			mongoStatus = "unreachable"
		}
		cancel()
	}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		if err := h.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unreachable"
		}
		cancel()
	}

	if mongoStatus != "ok" || redisStatus != "ok" {
		overall = "degraded"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": overall,
		"mongo":  mongoStatus,
		"redis":  redisStatus,
	})
}
