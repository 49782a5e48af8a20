package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/curzel-it/battld/internal/api/apierr"
	"github.com/curzel-it/battld/internal/middleware"
)

// Recovery creates panic recovery middleware for the API.
// Returns JSON error responses on panic.
func Recovery(logger *slog.Logger, panics prometheus.Counter) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, panics, routeAttrs, apiPanicHandler)
}

// routeAttrs names the matched route and the player it addresses, if any
func routeAttrs(r *http.Request) []slog.Attr {
	var attrs []slog.Attr
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			attrs = append(attrs, slog.String("route", tpl))
		}
	}
	if id := mux.Vars(r)["id"]; id != "" {
		attrs = append(attrs, slog.String("player_id", id))
	}
	return attrs
}

func apiPanicHandler(w http.ResponseWriter, _ *http.Request, _ any) {
	apierr.WriteError(w, apierr.NewInternalError())
}
