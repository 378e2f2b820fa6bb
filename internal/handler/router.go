/*
Package handler provides the admin HTTP surface for the tracker and the chat server.

This file defines the main Router, applying necessary middleware like logging, CORS and
operator authentication before delegating requests to the stats, listing and announcement
handlers, and (on a chat server) to the WebSocket gateway.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"resc/internal/pkg/auth/jwt"
	"resc/internal/pkg/logx"
	"resc/internal/pkg/resp"
)

// Router sets up the admin HTTP routing table (chi.Router) for the process.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		data := map[string]string{
			"status": "ok",
			"role":   string(deps.Config.Role),
			"node":   deps.Config.NodeName,
		}
		resp.OK(w, r, data)
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(jwt.RequireOperator(deps.Config.JWTSecret, deps.Config.NodeName))

		api.Get("/stats", HandleStats(deps))
		api.Get("/users", HandleListUsers(deps))
		api.Get("/servers", HandleListServers(deps))
		api.Post("/announce", HandleAnnounce(deps))
	})

	if deps.Chat != nil {
		wsUpgrader := websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if deps.Config.IsDevelopment() {
					return true
				}

				origin := r.Header.Get("Origin")
				if _, ok := allowedOrigins[origin]; ok {
					return true
				}

				logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
				return false
			},
		}

		r.Get("/ws", HandleWebSocket(deps, wsUpgrader))
	}

	return r
}
