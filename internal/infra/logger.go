package infra

import (
	"context"
	"fmt"
	"net/http"
	"time"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/s21platform/user-stream-service/internal/config"
)

// LoggerHTTP puts the process logger into the request context for handlers
// that read it back with logger_lib.FromContext.
func LoggerHTTP(next http.Handler, logger logger_lib.LoggerInterface) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := context.WithValue(r.Context(), config.KeyLogger, logger)
		next.ServeHTTP(w, r.WithContext(ctx))

		if r.URL.Path != "/metrics" {
			logger.Info(fmt.Sprintf("%s %s from %s in %s", r.Method, r.URL.Path, r.RemoteAddr, time.Since(start)))
		}
	})
}
