package router

import (
	"net/http"

	"github.com/shandysiswandi/otpbridge/internal/pkg/config"
)

// middlewareMaintenance answers 503 for the routes listed under
// app.maintenance.endpoints. The list is re-read on every request so a config
// reload takes effect without a restart.
func middlewareMaintenance(cfg config.Config) Middleware {
	return func(next http.Handler) http.Handler {
		if cfg == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := matchedRoutePath(r)
			for _, endpoint := range cfg.GetArray("app.maintenance.endpoints") {
				if endpoint == route {
					writeJSON(w, errorResponse{Message: "service is under maintenance"}, http.StatusServiceUnavailable)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
