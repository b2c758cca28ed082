package infra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotConnected ends the read loop when the connection was closed underneath it.
var ErrNotConnected = errors.New("ws not connected")

// WebSocketHandler supplies feed-specific behaviour to a BaseWSWorker.
// GetURL is evaluated on every dial so the subscription can change between connections.
type WebSocketHandler interface {
	GetURL() string
	OnConnect(ctx context.Context, conn *websocket.Conn) error
	OnMessage(ctx context.Context, msg []byte)
	OnPing(ctx context.Context, conn *websocket.Conn) error
	OnDisconnect(err error)
	OnError(err error)
	ID() string
}

// BaseWSWorker manages the lifecycle of a WebSocket connection.
// An unexpected close waits Backoff(retry) before redialing; Reconnect redials immediately.
type BaseWSWorker struct {
	handler WebSocketHandler
	mu      sync.RWMutex
	conn    *websocket.Conn
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
	forced  atomic.Bool
	kick    chan struct{}

	ReadTimeout  time.Duration
	PingInterval time.Duration
	Backoff      BackoffPolicy
}

// NewBaseWSWorker creates a worker with exponential backoff.
func NewBaseWSWorker(handler WebSocketHandler) *BaseWSWorker {
	return &BaseWSWorker{
		handler:      handler,
		kick:         make(chan struct{}, 1),
		ReadTimeout:  60 * time.Second,
		PingInterval: 30 * time.Second,
		Backoff:      CalculateBackoff,
	}
}

// Start initiates the connection loop. A second Start while running is a no-op.
func (w *BaseWSWorker) Start(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.runLoop(ctx)
}

// Stop terminates the worker and cancels any pending reconnect.
func (w *BaseWSWorker) Stop() {
	if !w.running.Load() {
		return
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.close()
	w.wg.Wait()
	w.running.Store(false)
}

// Running reports whether Start has been called without a matching Stop.
func (w *BaseWSWorker) Running() bool {
	return w.running.Load()
}

// Connected reports whether a connection is currently open.
func (w *BaseWSWorker) Connected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.conn != nil
}

// Reconnect drops the current connection (if any) and dials again without delay.
func (w *BaseWSWorker) Reconnect() {
	if !w.running.Load() {
		return
	}
	w.forced.Store(true)
	select {
	case w.kick <- struct{}{}:
	default:
	}
	w.close()
}

func (w *BaseWSWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()
	retry := 0

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		w.forced.Store(false)
		w.drainKick()

		connCtx, connCancel := context.WithCancel(ctx)
		if err := w.connect(connCtx); err != nil {
			connCancel()
			if ctx.Err() != nil {
				return
			}
			slog.Warn("WS Connection failed", "id", w.handler.ID(), "err", err, "retry", retry)
			w.handler.OnError(err)
			if !w.wait(ctx, w.Backoff(retry)) {
				return
			}
			retry++
			continue
		}

		retry = 0 // Reset on successful connect

		// A Reconnect during the dial found no connection to close; the dialed URL is stale.
		if w.forced.Load() {
			w.close()
			connCancel()
			w.handler.OnDisconnect(nil)
			continue
		}

		err := w.process(connCtx)
		connCancel()

		if ctx.Err() != nil {
			w.handler.OnDisconnect(nil)
			return
		}
		if w.forced.Load() {
			w.handler.OnDisconnect(nil)
			continue
		}

		w.handler.OnDisconnect(err)
		if !w.wait(ctx, w.Backoff(retry)) {
			return
		}
		retry++
	}
}

// wait sleeps for delay unless cancelled or kicked. It reports false on cancellation.
func (w *BaseWSWorker) wait(ctx context.Context, delay time.Duration) bool {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-w.kick:
		return true
	case <-timer.C:
		return true
	}
}

func (w *BaseWSWorker) drainKick() {
	select {
	case <-w.kick:
	default:
	}
}

func (w *BaseWSWorker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := make(http.Header)
	header.Set("User-Agent", GetUserAgent())

	conn, _, err := dialer.DialContext(ctx, w.handler.GetURL(), header)
	if err != nil {
		return err
	}

	if w.ReadTimeout > 0 {
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		})
	}

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	if err := w.handler.OnConnect(ctx, conn); err != nil {
		w.close()
		return fmt.Errorf("OnConnect failed: %w", err)
	}

	if w.PingInterval > 0 {
		go w.pingLoop(ctx)
	}

	slog.Info("WS Connected", "id", w.handler.ID())
	return nil
}

func (w *BaseWSWorker) process(ctx context.Context) error {
	for {
		w.mu.RLock()
		c := w.conn
		w.mu.RUnlock()
		if c == nil {
			return ErrNotConnected
		}

		if w.ReadTimeout > 0 {
			c.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		}
		_, msg, err := c.ReadMessage()
		if err != nil {
			if !w.forced.Load() && ctx.Err() == nil {
				slog.Warn("WS Read error", "id", w.handler.ID(), "err", err)
			}
			w.close()
			return err
		}

		w.handler.OnMessage(ctx, msg)
	}
}

func (w *BaseWSWorker) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(w.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.RLock()
			c := w.conn
			w.mu.RUnlock()
			if c == nil {
				return
			}
			if err := w.handler.OnPing(ctx, c); err != nil {
				slog.Warn("WS Ping error", "id", w.handler.ID(), "err", err)
				w.close()
				return
			}
		}
	}
}

func (w *BaseWSWorker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		w.conn.Close()
		w.conn = nil
	}
}
