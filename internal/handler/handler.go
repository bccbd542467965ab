package handler

import (
	"cryptobot-signal/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	tracer  trace.Tracer
	catalog *domain.Catalog
}

func New(tracer trace.Tracer, catalog *domain.Catalog) *Handler {
	return &Handler{
		tracer:  tracer,
		catalog: catalog,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Health)
	r.GET("/health", h.Health)
	r.GET("/api/pairs", h.GetPairs)
}
