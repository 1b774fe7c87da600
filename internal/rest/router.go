package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/s21platform/user-stream-service/internal/infra"
)

// NewRouter mounts the stream endpoint at "/" and "/ws" next to stats, health and metrics.
func NewRouter(handler *Handler, logger logger_lib.LoggerInterface) chi.Router {
	router := chi.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return infra.LoggerHTTP(next, logger)
	})

	router.Get("/", handler.Subscribe)
	router.Get("/ws", handler.Subscribe)
	router.Get("/stats", handler.GetStats)
	router.Get("/healthz", handler.Healthz)
	router.Handle("/metrics", infra.MetricsHandler())

	return router
}
