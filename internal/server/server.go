// Package server exposes the manager's introspection API over HTTP: job
// listing and cancellation, the finished-job journal, Prometheus metrics
// and a websocket stream of job events.
package server

import (
	"context"
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/RevCBH/unitd/internal/history"
	"github.com/RevCBH/unitd/internal/manager"
	"github.com/RevCBH/unitd/internal/metrics"
)

// Server is the introspection API server
type Server struct {
	addr string
	log  *zap.Logger

	mgr  *manager.Manager
	hist *history.DB
	hub  *Hub

	httpServer   *http.Server
	httpListener net.Listener
}

// Config carries the server's construction parameters
type Config struct {
	Addr    string
	Logger  *zap.Logger
	Manager *manager.Manager
	History *history.DB
	Metrics *metrics.Collector
}

// New creates the server and wires its routes.
// Does not start listening - call Start() for that.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Server{
		addr: cfg.Addr,
		log:  cfg.Logger,
		mgr:  cfg.Manager,
		hist: cfg.History,
		hub:  NewHub(cfg.Logger),
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/jobs", s.handleListJobs).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs", s.handleInstall).Methods(http.MethodPost)
	r.HandleFunc("/api/jobs/{id:[0-9]+}", s.handleGetJob).Methods(http.MethodGet)
	r.HandleFunc("/api/jobs/{id:[0-9]+}", s.handleCancelJob).Methods(http.MethodDelete)
	r.HandleFunc("/api/counters", s.handleCounters).Methods(http.MethodGet)
	r.HandleFunc("/api/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/events", s.hub.ServeHTTP).Methods(http.MethodGet)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler()).Methods(http.MethodGet)
	}

	s.httpServer = &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	// Every job event fans out to connected websocket clients
	if cfg.Manager != nil {
		cfg.Manager.Bus().Subscribe(s.hub.Broadcast)
	}

	return s
}

// Handler returns the root handler, for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening. Non-blocking; the server runs in a goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.httpListener = ln

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error("http server failed", zap.Error(err))
		}
	}()

	s.log.Info("introspection api listening", zap.String("addr", ln.Addr().String()))
	return nil
}

// Addr returns the bound address after Start
func (s *Server) Addr() string {
	if s.httpListener == nil {
		return s.addr
	}
	return s.httpListener.Addr().String()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}
