package handler

import (
	"encoding/json"
	"net/http"

	"github.com/tinylink-io/tinylink/pkg/config"
	"github.com/tinylink-io/tinylink/pkg/ports"
)

// NewRouter creates and configures the main application router.
//
// The literal route prefixes (docs, redoc, openapi, auth, links) are
// the default reserved-code set; keep config.ReservedCodes in sync when
// adding routes.
func NewRouter(cfg *config.Config, service ports.LinkService) http.Handler {
	h := NewHTTPHandler(service)
	mw := NewMiddleware(cfg)
	authHandler := NewAuthHandler(cfg)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		res := map[string]string{
			"message": "ok",
		}
		_ = json.NewEncoder(w).Encode(&res)
	})

	// Auth Routes
	mux.HandleFunc("GET /auth/google/login", authHandler.Login)
	mux.HandleFunc("GET /auth/google/callback", authHandler.Callback)
	mux.HandleFunc("GET /auth/logout", authHandler.Logout)

	// Anonymous callers are allowed; a principal is attached when
	// credentials are present.
	mux.Handle("POST /links/shorten", mw.WithPrincipal(http.HandlerFunc(h.Create)))
	mux.Handle("GET /links/{short_code}", mw.WithPrincipal(http.HandlerFunc(h.Redirect)))

	// Owner-gated Routes
	mux.Handle("GET /links/search", mw.RequireAuth(http.HandlerFunc(h.Search)))
	mux.Handle("GET /links/{short_code}/stats", mw.RequireAuth(http.HandlerFunc(h.Stats)))
	mux.Handle("PUT /links/{short_code}", mw.RequireAuth(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /links/{short_code}", mw.RequireAuth(http.HandlerFunc(h.Delete)))

	return mux
}
