package middleware

import (
	"net/http"

	"github.com/ayo6706/swift-remit/internal/api/problem"
	"github.com/ayo6706/swift-remit/internal/models"
	"go.uber.org/zap"
)

// RecoverMiddleware converts panics into RFC 7807 responses and logs stack context.
func RecoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.String("path", r.URL.Path),
					zap.String("method", r.Method),
					zap.String("request_id", TraceIDFromContext(r.Context())),
					zap.Stack("stack"),
				)

				problem.WriteDetails(w, r, problem.Details{
					Type:   problem.Type("internal-server-error"),
					Status: http.StatusInternalServerError,
					Detail: "unexpected server error",
					Kind:   models.KindInternal,
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}
