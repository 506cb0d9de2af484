package web

import "net/http"

// RegisterRoutes registers the entry point and status page routes.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /install", h.Install)
	mux.HandleFunc("GET /oauth-callback", h.OAuthCallback)
	mux.HandleFunc("POST /sync", h.RunSync)
	mux.HandleFunc("GET /error", h.ErrorPage)
	mux.HandleFunc("GET /healthz", h.Health)
}
