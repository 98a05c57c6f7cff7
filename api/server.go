// Package api exposes the HTTP surface: account endpoints, public reads,
// and the admin panel routes. All realtime traffic goes through /ws.
package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Server wraps the HTTP server with the wired handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds the route table and configures timeouts.
func NewServer(port string, h *Handlers, ws http.Handler) *Server {
	mux := http.NewServeMux()

	mux.Handle("/ws", ws)
	mux.HandleFunc("GET /healthz", h.Health)

	mux.HandleFunc("GET /api/gifts", h.ListGifts)
	mux.HandleFunc("GET /api/messages", h.RecentMessages)
	mux.HandleFunc("GET /api/stats", h.Stats)
	mux.HandleFunc("POST /api/register", h.Register)
	mux.HandleFunc("POST /api/login", h.Login)
	mux.HandleFunc("POST /api/topup", h.TopUp)

	mux.HandleFunc("GET /admin/users", h.adminOnly(h.AdminListUsers))
	mux.HandleFunc("GET /admin/transactions", h.adminOnly(h.AdminListTransactions))
	mux.HandleFunc("GET /admin/stats", h.adminOnly(h.Stats))
	mux.HandleFunc("POST /admin/add-coins", h.adminOnly(h.AdminAddCoins))
	mux.HandleFunc("POST /admin/ban", h.adminOnly(h.AdminBan))
	mux.HandleFunc("POST /admin/unban", h.adminOnly(h.AdminUnban))
	mux.HandleFunc("POST /admin/delete-message", h.adminOnly(h.AdminDeleteMessage))

	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + port,
			Handler:      logRequests(mux),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// Start begins serving; blocks until the server stops.
func (s *Server) Start() error {
	log.WithField("addr", s.httpServer.Addr).Info("HTTP server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown drains active connections until the timeout elapses.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

// logRequests logs each request at debug level. WebSocket upgrades are
// excluded because their duration is the connection lifetime.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		next.ServeHTTP(w, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("Request handled")
	})
}
