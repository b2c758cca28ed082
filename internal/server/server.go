// Package server exposes the dashboard state over HTTP and a websocket push channel.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"crypto_dash/internal/action"
	"crypto_dash/internal/engine"
	"crypto_dash/internal/fetch"
	"crypto_dash/internal/notify"
)

const shutdownTimeout = 5 * time.Second

// StateStore is the part of the state store the handlers need.
type StateStore interface {
	Dispatch(ctx context.Context, a action.Action) (*engine.State, error)
	GetState() *engine.State
	Subscribe(fn engine.Listener) func()
}

// Server wires the handlers, the hub and the http.Server together.
type Server struct {
	store     StateStore
	scheduler *fetch.Scheduler
	queue     *notify.Queue
	hub       *Hub
	router    *gin.Engine
	unsub     func()
}

// New builds the router and starts forwarding store and queue changes to the hub.
func New(store StateStore, scheduler *fetch.Scheduler, queue *notify.Queue) *Server {
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		store:     store,
		scheduler: scheduler,
		queue:     queue,
		hub:       NewHub(),
		router:    r,
	}
	s.RegisterRoutes(r)

	s.unsub = store.Subscribe(func(prev, next *engine.State) {
		s.hub.Broadcast(Frame{Type: "state", Data: next})
	})
	queue.OnChange(func(items []notify.Notification) {
		s.hub.Broadcast(Frame{Type: "notifications", Data: items})
	})
	return s
}

// Handler returns the root http handler.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", slog.String("addr", addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.close()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) close() {
	if s.unsub != nil {
		s.unsub()
	}
	s.hub.Close()
}
