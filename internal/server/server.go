// Package server exposes the UI bridge: webhook intake, the notification
// call surface, and the websocket event stream.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"notibridge/internal/eventbus"
	"notibridge/internal/history"
	"notibridge/internal/inbound"
	logx "notibridge/pkg/logx"
)

type Config struct {
	Address     string
	ReadTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Address == "" {
		c.Address = "127.0.0.1:8979"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 15 * time.Second
	}
	return c
}

type Server struct {
	cfg Config
	log logx.Logger

	hist *history.Store
	in   *inbound.Service
	bus  eventbus.Bus

	srv *http.Server
	ln  net.Listener
}

func New(cfg Config, hist *history.Store, in *inbound.Service, bus eventbus.Bus, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Server{cfg: cfg.withDefaults(), log: log, hist: hist, in: in, bus: bus}

	r := mux.NewRouter()
	r.Use(s.requestID, s.accessLog, s.recoverPanic)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/messages", s.handleMessage).Methods(http.MethodPost)
	v1.HandleFunc("/token", s.handleToken).Methods(http.MethodPost)
	v1.HandleFunc("/notifications", s.handleList).Methods(http.MethodGet)
	v1.HandleFunc("/notifications", s.handleDelete).Methods(http.MethodDelete)
	v1.HandleFunc("/notifications/clear", s.handleClear).Methods(http.MethodPost)
	v1.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	// No WriteTimeout: it would kill long-lived websocket streams. The event
	// handler sets its own per-write deadlines.
	s.srv = &http.Server{
		Addr:        s.cfg.Address,
		Handler:     r,
		ReadTimeout: s.cfg.ReadTimeout,
	}
	return s
}

// Start begins serving and returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	_ = ctx
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	s.ln = ln
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server error", logx.String("addr", s.cfg.Address), logx.Err(err))
		}
	}()
	s.log.Info("ui bridge listening", logx.String("addr", ln.Addr().String()))
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	err := s.srv.Shutdown(ctx)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr reports the actual listen address if running.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}
