// Package fetch schedules vendor requests into the store: the coin list cache,
// request coalescing, the single transient retry, view debouncing and polling.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"crypto_dash/internal/action"
	"crypto_dash/internal/alert"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/engine"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/prediction"
)

// Defaults mirror the dashboard page timings.
const (
	DefaultCacheTTL     = 60 * time.Second
	DefaultDebounce     = 300 * time.Millisecond
	DefaultRetryDelay   = 5 * time.Second
	DefaultPollInterval = 60 * time.Second
	DefaultHistoryDays  = 7
	PredictionDays      = 30
)

// DefaultCoins is the id set requested by the "all" view.
var DefaultCoins = []string{"bitcoin", "ethereum", "ripple", "solana", "cardano"}

// Store is the part of the state store the scheduler needs.
type Store interface {
	Dispatch(ctx context.Context, a action.Action) (*engine.State, error)
	GetState() *engine.State
}

// CoinSource is the coin market vendor.
type CoinSource interface {
	Markets(ctx context.Context, ids []string) ([]domain.Coin, error)
	CoinDetails(ctx context.Context, id string) (json.RawMessage, error)
	MarketChart(ctx context.Context, id string, days int) (domain.MarketChart, error)
	Trending(ctx context.Context) ([]domain.TrendingCoin, error)
}

// Options tunes a Scheduler. Zero values take the defaults above.
type Options struct {
	DefaultCoins []string
	CacheTTL     time.Duration
	Debounce     time.Duration
	RetryDelay   time.Duration
	PollInterval time.Duration
	Clock        infra.Clock
	Predictor    *prediction.Predictor

	// SimulateAlerts enables the random weather alert after a multi-city refresh.
	SimulateAlerts     bool
	WeatherAlertChance float64
	Rand               alert.Source
}

type cacheEntry struct {
	ids   map[string]bool
	coins []domain.Coin
	at    time.Time
}

// Scheduler turns view and data requests into vendor fetches and store actions.
type Scheduler struct {
	store   Store
	coins   CoinSource
	weather WeatherVendor
	news    NewsSource
	opts    Options
	clock   infra.Clock
	group   singleflight.Group

	life     context.Context
	stopLife context.CancelFunc

	mu          sync.Mutex
	cache       map[string]cacheEntry
	retries     map[string]infra.Timer
	debounce    infra.Timer
	pendingView domain.ViewMode
	hasPending  bool
}

// NewScheduler creates a scheduler. weather and news may be nil.
func NewScheduler(store Store, coins CoinSource, weather WeatherVendor, news NewsSource, opts Options) *Scheduler {
	if len(opts.DefaultCoins) == 0 {
		opts.DefaultCoins = DefaultCoins
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Clock == nil {
		opts.Clock = infra.SystemClock{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(opts.Clock.Now().UnixNano()))
	}
	if opts.Predictor == nil {
		opts.Predictor = prediction.NewPredictor(nil, prediction.DefaultJitter)
	}
	life, stop := context.WithCancel(context.Background())
	return &Scheduler{
		store:    store,
		coins:    coins,
		weather:  weather,
		news:     news,
		opts:     opts,
		clock:    opts.Clock,
		life:     life,
		stopLife: stop,
		cache:    make(map[string]cacheEntry),
		retries:  make(map[string]infra.Timer),
	}
}

// CanonicalKey sorts and de-duplicates ids. An empty list means the default set.
func (s *Scheduler) CanonicalKey(ids []string) (string, []string) {
	seen := make(map[string]bool, len(ids))
	list := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		list = append(list, id)
	}
	if len(list) == 0 {
		list = append(list, s.opts.DefaultCoins...)
	}
	sort.Strings(list)
	return strings.Join(list, ","), list
}

// RequestCoins loads the coin list for ids into the store.
// A fresh cached superset is served without a network call; concurrent
// requests for the same key share one fetch.
func (s *Scheduler) RequestCoins(ctx context.Context, ids []string) ([]domain.Coin, error) {
	key, list := s.CanonicalKey(ids)

	if coins, ok := s.lookup(list); ok {
		slog.Debug("Coin list served from cache", slog.String("key", key))
		s.dispatch(ctx, action.FetchCoinsSuccess{Key: key, Coins: coins})
		return coins, nil
	}
	return s.fetchCoins(ctx, key, list, false)
}

// fetchCoins joins or starts the shared fetch for key. The shared work runs
// on the scheduler's lifetime so one caller going away never fails the others;
// each caller only stops waiting when its own ctx ends.
func (s *Scheduler) fetchCoins(ctx context.Context, key string, list []string, isRetry bool) ([]domain.Coin, error) {
	ch := s.group.DoChan(key, func() (interface{}, error) {
		work := s.life
		s.dispatch(work, action.FetchCoinsStart{})
		coins, err := s.coins.Markets(work, list)
		if err != nil {
			if work.Err() != nil {
				return nil, err
			}
			slog.Warn("Coin list fetch failed",
				slog.String("key", key),
				slog.Bool("retry", isRetry),
				slog.Any("error", err))
			s.dispatch(work, action.FetchCoinsFailure{Err: err.Error()})
			if !isRetry && infra.IsTransient(err) {
				s.scheduleRetry(key, list)
			}
			return nil, err
		}
		s.remember(list, coins)
		s.dispatch(work, action.FetchCoinsSuccess{Key: key, Coins: coins})
		return coins, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.Coin), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// scheduleRetry arms exactly one delayed retry per key.
func (s *Scheduler) scheduleRetry(key string, list []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, pending := s.retries[key]; pending {
		return
	}
	s.retries[key] = s.clock.AfterFunc(s.opts.RetryDelay, func() {
		s.mu.Lock()
		delete(s.retries, key)
		s.mu.Unlock()
		if s.life.Err() != nil {
			return
		}
		slog.Info("Retrying coin list fetch", slog.String("key", key))
		s.fetchCoins(s.life, key, list, true)
	})
}

// PendingRetries reports how many retries are armed.
func (s *Scheduler) PendingRetries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.retries)
}

func (s *Scheduler) lookup(list []string) ([]domain.Coin, bool) {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.cache {
		if now.Sub(e.at) >= s.opts.CacheTTL || !covers(e.ids, list) {
			continue
		}
		want := make(map[string]bool, len(list))
		for _, id := range list {
			want[id] = true
		}
		out := make([]domain.Coin, 0, len(list))
		for _, c := range e.coins {
			if want[c.ID] {
				out = append(out, c)
			}
		}
		return out, true
	}
	return nil, false
}

func (s *Scheduler) remember(list []string, coins []domain.Coin) {
	now := s.clock.Now()
	ids := make(map[string]bool, len(list))
	for _, id := range list {
		ids[id] = true
	}
	key := strings.Join(list, ",")

	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.cache {
		if now.Sub(e.at) >= s.opts.CacheTTL {
			delete(s.cache, k)
		}
	}
	s.cache[key] = cacheEntry{ids: ids, coins: coins, at: now}
}

func covers(have map[string]bool, want []string) bool {
	for _, id := range want {
		if !have[id] {
			return false
		}
	}
	return true
}

// SwitchView records mode now and refreshes it after the debounce delay.
// Rapid switches collapse into one refresh of the last mode.
func (s *Scheduler) SwitchView(ctx context.Context, mode domain.ViewMode) error {
	if _, err := s.store.Dispatch(ctx, action.SetViewMode{Mode: mode}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.pendingView = mode
	s.hasPending = true
	s.debounce = s.clock.AfterFunc(s.opts.Debounce, func() {
		if m, ok := s.takePending(); ok {
			s.refreshView(s.life, m)
		}
	})
	return nil
}

// Flush runs the pending debounced refresh immediately.
func (s *Scheduler) Flush(ctx context.Context) error {
	mode, ok := s.takePending()
	if !ok {
		return nil
	}
	return s.refreshView(ctx, mode)
}

func (s *Scheduler) takePending() (domain.ViewMode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	if !s.hasPending {
		return "", false
	}
	s.hasPending = false
	return s.pendingView, true
}

// Cancel drops the pending debounced refresh and every armed retry.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.hasPending = false
	for k, t := range s.retries {
		t.Stop()
		delete(s.retries, k)
	}
}

// Close cancels outstanding timers and in-flight timer-driven fetches.
func (s *Scheduler) Close() {
	s.Cancel()
	s.stopLife()
}

// Refresh reloads whatever the current view shows.
func (s *Scheduler) Refresh(ctx context.Context) error {
	return s.refreshView(ctx, s.store.GetState().Crypto.ViewMode)
}

func (s *Scheduler) refreshView(ctx context.Context, mode domain.ViewMode) error {
	var err error
	switch mode {
	case domain.ViewFavorites:
		favs := s.store.GetState().Preferences.Cryptos
		if len(favs) == 0 {
			return nil
		}
		_, err = s.RequestCoins(ctx, favs)
	case domain.ViewTrending:
		_, err = s.Trending(ctx)
	default:
		_, err = s.RequestCoins(ctx, nil)
	}
	return err
}

// Poll refreshes the current view every poll interval until ctx is done.
func (s *Scheduler) Poll(ctx context.Context) {
	tick := make(chan struct{}, 1)
	for {
		t := s.clock.AfterFunc(s.opts.PollInterval, func() {
			select {
			case tick <- struct{}{}:
			default:
			}
		})
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-tick:
		}
		if err := s.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Debug("Poll refresh failed", slog.Any("error", err))
		}
	}
}

// Trending loads the trending list.
func (s *Scheduler) Trending(ctx context.Context) ([]domain.TrendingCoin, error) {
	coins, err := s.coins.Trending(ctx)
	if err != nil {
		return nil, err
	}
	if len(coins) > engine.TrendingLimit {
		coins = coins[:engine.TrendingLimit]
	}
	s.dispatch(ctx, action.FetchTrendingSuccess{Coins: coins})
	return coins, nil
}

// Details loads the vendor detail payload for id.
func (s *Scheduler) Details(ctx context.Context, id string) (json.RawMessage, error) {
	data, err := s.coins.CoinDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	s.dispatch(ctx, action.FetchCoinDetailsSuccess{ID: id, Data: data})
	return data, nil
}

// History loads the market chart for id over days (default 7).
func (s *Scheduler) History(ctx context.Context, id string, days int) (domain.MarketChart, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	chart, err := s.coins.MarketChart(ctx, id, days)
	if err != nil {
		return domain.MarketChart{}, err
	}
	s.dispatch(ctx, action.FetchHistoricalDataSuccess{ID: id, Chart: chart})
	return chart, nil
}

// Prediction projects the next week from the last 30 days of prices.
func (s *Scheduler) Prediction(ctx context.Context, id string) (prediction.Result, error) {
	if id == "" {
		return prediction.Result{}, infra.MissingParam("id")
	}
	chart, err := s.coins.MarketChart(ctx, id, PredictionDays)
	if err != nil {
		return prediction.Result{}, err
	}
	res, err := s.opts.Predictor.Predict(chart)
	if err != nil {
		return prediction.Result{}, err
	}
	s.dispatch(ctx, action.FetchPredictionSuccess{ID: id, Result: res})
	return res, nil
}

// dispatch applies a, logging when the store is gone.
func (s *Scheduler) dispatch(ctx context.Context, a action.Action) {
	if _, err := s.store.Dispatch(ctx, a); err != nil {
		slog.Debug("Dispatch dropped", slog.String("action", a.GetType().String()), slog.Any("error", err))
	}
}
