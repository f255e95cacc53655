package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type IHealthHandler interface {
	Healthz(c *gin.Context)
}

type healthHandler struct {
	mongoClient *mongo.Client
}

func NewHealthHandler(mongoClient *mongo.Client) IHealthHandler {
	return &healthHandler{mongoClient: mongoClient}
}

// Healthz reports liveness plus whether the job store is reachable.
func (h *healthHandler) Healthz(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if h.mongoClient != nil {
		if err := h.mongoClient.Ping(c.Request.Context(), nil); err != nil {
			status["mongo"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["mongo"] = "ok"
	}
	c.JSON(http.StatusOK, status)
}
