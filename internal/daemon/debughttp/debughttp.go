// Package debughttp serves a loopback-only ops surface alongside the
// IPC socket: /healthz and /statusz. It is not part of the IPC wire
// protocol (§6) and carries no control operations — read-only, the way
// the teacher's internal/interfaces/http/server.go is read-only.
package debughttp

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/chrisling-dev/hyperliquid-cli/internal/cache"
)

// ConnectionState mirrors ipc.ConnectionState; the subscription manager
// satisfies both.
type ConnectionState interface {
	Connected() bool
}

// Server is an optional, loopback-bound HTTP surface for operators and
// the prometheus scraper registered in internal/daemon/metrics.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
}

// New builds the router. metricsHandler is whatever the metrics package
// registers for /metrics (nil disables the endpoint).
func New(addr string, c *cache.Cache, conn ConnectionState, startedAt time.Time, metricsHandler http.Handler) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("debughttp: listen %s: %w", addr, err)
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", healthHandler(conn)).Methods(http.MethodGet)
	router.HandleFunc("/statusz", statusHandler(c, conn, startedAt)).Methods(http.MethodGet)
	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	return &Server{
		httpServer: &http.Server{
			Handler:      router,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
		listener: listener,
	}, nil
}

// Serve blocks until Close is called.
func (s *Server) Serve() error {
	err := s.httpServer.Serve(s.listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Close() error {
	return s.httpServer.Close()
}

func healthHandler(conn ConnectionState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}
}

func statusHandler(c *cache.Cache, conn ConnectionState, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connected := false
		if conn != nil {
			connected = conn.Connected()
		}
		resp := map[string]any{
			"startedAt": startedAt.UnixMilli(),
			"uptimeMs":  time.Since(startedAt).Milliseconds(),
			"connected": connected,
			"cache":     c.Status(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
