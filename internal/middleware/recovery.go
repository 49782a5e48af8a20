package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
)

// PanicHandler is a function that handles panics and writes an error response
type PanicHandler func(w http.ResponseWriter, r *http.Request, err any)

// RequestAttrs extracts request attributes logged alongside a panic
type RequestAttrs func(r *http.Request) []slog.Attr

// Recovery creates panic recovery middleware. Panics are counted on panics
// and logged with the attributes returned by attrs; both may be nil.
func Recovery(logger *slog.Logger, panics prometheus.Counter, attrs RequestAttrs, handler PanicHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if panics != nil {
						panics.Inc()
					}

					fields := []slog.Attr{
						slog.Any("error", err),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					}
					if attrs != nil {
						fields = append(fields, attrs(r)...)
					}
					fields = append(fields, slog.String("stack", string(debug.Stack())))
					logger.LogAttrs(r.Context(), slog.LevelError, "panic recovered", fields...)

					handler(w, r, err)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// DefaultPanicHandler returns a simple 500 Internal Server Error
func DefaultPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
