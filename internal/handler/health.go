package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

type healthResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Health godoc
// @Summary      Liveness probe
// @Description  Always 200 while the process is up
// @Tags         health
// @Produce      json
// @Success      200  {object}  healthResponse
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:  http.StatusOK,
		Message: "bot up and running",
	})
}

// GetPairs godoc
// @Summary      List monitored pairs
// @Tags         pairs
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/pairs [get]
func (h *Handler) GetPairs(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "handler.get-pairs")
	defer span.End()

	pairs := []string{}
	if h.catalog != nil {
		pairs = h.catalog.Strings()
	}
	span.SetAttributes(attribute.Int("pairs", len(pairs)))
	c.JSON(http.StatusOK, gin.H{"pairs": pairs})
}
