// Package feed maintains the streaming price connection and fans updates out to listeners.
package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
)

// EventKind names a listener channel.
type EventKind string

const (
	Connected    EventKind = "connected"
	Disconnected EventKind = "disconnected"
	PriceUpdate  EventKind = "priceUpdate"
	Error        EventKind = "error"
)

// DefaultAssets is streamed when the subscription set is empty.
var DefaultAssets = domain.DefaultLiveAssets

// Event is delivered to listeners. Prices is set for PriceUpdate, Err for
// Error and (when the close was unexpected) Disconnected.
type Event struct {
	Kind   EventKind
	Prices map[string]string
	Err    error
}

// Listener receives events on the feed goroutine and must not block.
type Listener func(Event)

// Config configures a Client.
type Config struct {
	URL          string
	Assets       []string
	Backoff      infra.BackoffPolicy
	ReadTimeout  time.Duration
	PingInterval time.Duration
}

// Client owns one streaming connection for the current asset set.
// Listeners belong to the client, so reconnects never duplicate delivery.
type Client struct {
	baseURL string
	worker  *infra.BaseWSWorker

	mu        sync.RWMutex
	assets    map[string]bool
	listeners map[EventKind]map[uint64]Listener
	nextID    uint64
}

// NewClient creates a disconnected client.
func NewClient(cfg Config) *Client {
	c := &Client{
		baseURL:   cfg.URL,
		assets:    make(map[string]bool),
		listeners: make(map[EventKind]map[uint64]Listener),
	}
	for _, a := range cfg.Assets {
		if a = normalizeAsset(a); a != "" {
			c.assets[a] = true
		}
	}

	c.worker = infra.NewBaseWSWorker(handler{c})
	if cfg.Backoff != nil {
		c.worker.Backoff = cfg.Backoff
	} else {
		c.worker.Backoff = infra.FixedBackoff(infra.DefaultReconnectDelay)
	}
	if cfg.ReadTimeout > 0 {
		c.worker.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.PingInterval > 0 {
		c.worker.PingInterval = cfg.PingInterval
	}
	return c
}

// Connect opens the connection. Calling it while connected is a no-op.
func (c *Client) Connect(ctx context.Context) {
	c.worker.Start(ctx)
}

// Disconnect closes the connection and cancels any pending reconnect.
func (c *Client) Disconnect() {
	c.worker.Stop()
}

// Connected reports whether a connection is currently open.
func (c *Client) Connected() bool {
	return c.worker.Connected()
}

// Subscribe adds asset to the stream. It reports whether the set changed;
// a change reconnects immediately with the new asset list.
func (c *Client) Subscribe(asset string) bool {
	asset = normalizeAsset(asset)
	if asset == "" {
		return false
	}
	c.mu.Lock()
	if c.assets[asset] {
		c.mu.Unlock()
		return false
	}
	c.assets[asset] = true
	c.mu.Unlock()

	c.worker.Reconnect()
	return true
}

// Unsubscribe removes asset from the stream, reconnecting if the set changed.
func (c *Client) Unsubscribe(asset string) bool {
	asset = normalizeAsset(asset)
	c.mu.Lock()
	if !c.assets[asset] {
		c.mu.Unlock()
		return false
	}
	delete(c.assets, asset)
	c.mu.Unlock()

	c.worker.Reconnect()
	return true
}

// SetAssets replaces the whole subscription set, reconnecting once if it changed.
func (c *Client) SetAssets(assets []string) bool {
	next := make(map[string]bool, len(assets))
	for _, a := range assets {
		if a = normalizeAsset(a); a != "" {
			next[a] = true
		}
	}

	c.mu.Lock()
	same := len(next) == len(c.assets)
	if same {
		for a := range next {
			if !c.assets[a] {
				same = false
				break
			}
		}
	}
	if same {
		c.mu.Unlock()
		return false
	}
	c.assets = next
	c.mu.Unlock()

	c.worker.Reconnect()
	return true
}

// Assets returns the streamed assets in sorted order (the defaults when none are set).
func (c *Client) Assets() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.effectiveLocked()
}

func (c *Client) effectiveLocked() []string {
	if len(c.assets) == 0 {
		out := append([]string(nil), DefaultAssets...)
		sort.Strings(out)
		return out
	}
	out := make([]string, 0, len(c.assets))
	for a := range c.assets {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// URL returns the stream URL for the current asset set.
func (c *Client) URL() string {
	assets := strings.Join(c.Assets(), ",")
	sep := "?"
	if strings.Contains(c.baseURL, "?") {
		sep = "&"
	}
	return c.baseURL + sep + "assets=" + assets
}

// AddListener registers fn for kind. The returned function removes it and is safe to call twice.
func (c *Client) AddListener(kind EventKind, fn Listener) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := c.nextID
	if c.listeners[kind] == nil {
		c.listeners[kind] = make(map[uint64]Listener)
	}
	c.listeners[kind][id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners[kind], id)
	}
}

// ListenerCount returns the number of listeners registered for kind.
func (c *Client) ListenerCount(kind EventKind) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.listeners[kind])
}

func (c *Client) emit(ev Event) {
	c.mu.RLock()
	ids := make([]uint64, 0, len(c.listeners[ev.Kind]))
	for id := range c.listeners[ev.Kind] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.listeners[ev.Kind][id])
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// parsePrices decodes a stream frame into subscribed, well-formed decimal prices.
func (c *Client) parsePrices(msg []byte) (map[string]string, bool) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return nil, false
	}

	c.mu.RLock()
	allowed := make(map[string]bool)
	for _, a := range c.effectiveLocked() {
		allowed[a] = true
	}
	c.mu.RUnlock()

	out := make(map[string]string, len(raw))
	for asset, v := range raw {
		if !allowed[asset] {
			continue
		}
		var s string
		switch val := v.(type) {
		case string:
			s = val
		case json.Number:
			s = val.String()
		default:
			continue
		}
		if _, err := decimal.NewFromString(s); err != nil {
			continue
		}
		out[asset] = s
	}
	return out, true
}

func normalizeAsset(a string) string {
	return strings.ToLower(strings.TrimSpace(a))
}

// handler adapts Client to infra.WebSocketHandler without exporting the callbacks.
type handler struct{ c *Client }

func (h handler) ID() string     { return "COINCAP" }
func (h handler) GetURL() string { return h.c.URL() }

func (h handler) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	slog.Info("Live feed connected", slog.String("assets", strings.Join(h.c.Assets(), ",")))
	h.c.emit(Event{Kind: Connected})
	return nil
}

func (h handler) OnMessage(ctx context.Context, msg []byte) {
	prices, ok := h.c.parsePrices(msg)
	if !ok {
		slog.Debug("Dropped malformed live price frame", slog.Int("bytes", len(msg)))
		return
	}
	if len(prices) == 0 {
		return
	}
	h.c.emit(Event{Kind: PriceUpdate, Prices: prices})
}

func (h handler) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (h handler) OnDisconnect(err error) {
	if err != nil {
		slog.Warn("Live feed disconnected", slog.Any("error", err))
	}
	h.c.emit(Event{Kind: Disconnected, Err: err})
}

func (h handler) OnError(err error) {
	h.c.emit(Event{Kind: Error, Err: err})
}
