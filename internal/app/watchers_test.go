package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"crypto_dash/internal/action"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/engine"
	"crypto_dash/internal/feed"
	"crypto_dash/internal/infra"
)

func runStore(t *testing.T) *engine.Store {
	t.Helper()
	store := engine.NewStore(64, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go store.Run(ctx)
	t.Cleanup(cancel)
	return store
}

func waitFor(t *testing.T, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

type fakeFeed struct {
	mu        sync.Mutex
	assets    []string
	sets      int
	listeners map[feed.EventKind][]feed.Listener
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{listeners: make(map[feed.EventKind][]feed.Listener)}
}

func (f *fakeFeed) AddListener(kind feed.EventKind, fn feed.Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners[kind] = append(f.listeners[kind], fn)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, kind)
	}
}

func (f *fakeFeed) SetAssets(assets []string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, a := range assets {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	sort.Strings(out)
	f.assets = out
	f.sets++
	return true
}

func (f *fakeFeed) Assets() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.assets...)
}

func (f *fakeFeed) Connected() bool { return true }

func (f *fakeFeed) emit(ev feed.Event) {
	f.mu.Lock()
	ls := append([]feed.Listener(nil), f.listeners[ev.Kind]...)
	f.mu.Unlock()
	for _, l := range ls {
		l(ev)
	}
}

func TestBindFeed_PriceUpdateEvaluatesAlerts(t *testing.T) {
	store := runStore(t)
	ctx := context.Background()
	ff := newFakeFeed()
	clock := infra.NewManualClock(time.Unix(1700000000, 0))

	unbind := BindFeed(store, ff, []string{"bitcoin"}, clock)
	defer unbind()

	store.Dispatch(ctx, action.FetchCoinsSuccess{Coins: []domain.Coin{{ID: "bitcoin", Name: "Bitcoin", CurrentPrice: decimal.NewFromInt(90)}}})
	store.Dispatch(ctx, action.SetPriceAlert{CoinID: "bitcoin", Direction: domain.Above, Price: decimal.NewFromInt(100)})

	ff.emit(feed.Event{Kind: feed.Connected})
	ff.emit(feed.Event{Kind: feed.PriceUpdate, Prices: map[string]string{"bitcoin": "101"}})

	if !waitFor(t, func() bool { return len(store.GetState().Crypto.Alerts) == 1 }) {
		t.Fatalf("Expected one alert, got %d", len(store.GetState().Crypto.Alerts))
	}
	st := store.GetState()
	if !st.Crypto.FeedConnected {
		t.Error("Expected feed marked connected")
	}
	if st.Crypto.Live["bitcoin"] != "101" {
		t.Errorf("Expected live price 101, got %q", st.Crypto.Live["bitcoin"])
	}

	ff.emit(feed.Event{Kind: feed.Disconnected, Err: errors.New("reset")})
	if !waitFor(t, func() bool { return store.GetState().Crypto.FeedError == "reset" }) {
		t.Error("Expected disconnect error recorded")
	}
}

func TestBindFeed_FavoritesDriveSubscriptions(t *testing.T) {
	store := runStore(t)
	ctx := context.Background()
	ff := newFakeFeed()

	unbind := BindFeed(store, ff, []string{"bitcoin"}, infra.SystemClock{})
	defer unbind()

	// Defaults: bitcoin, ethereum, ripple favorites plus the base asset.
	if got := ff.Assets(); len(got) != 3 {
		t.Fatalf("Expected 3 assets, got %v", got)
	}

	store.Dispatch(ctx, action.AddFavoriteCrypto{ID: "solana"})
	if !waitFor(t, func() bool { return len(store.GetState().Crypto.Subscribed) == 4 }) {
		t.Fatalf("Expected 4 subscribed assets, got %v", store.GetState().Crypto.Subscribed)
	}

	ff.mu.Lock()
	sets := ff.sets
	ff.mu.Unlock()
	store.Dispatch(ctx, action.AddFavoriteCity{City: "Seoul"})
	store.Dispatch(ctx, action.RemoveFavoriteCrypto{ID: "bitcoin"})
	// bitcoin stays streamed through the base set.
	if !waitFor(t, func() bool {
		ff.mu.Lock()
		defer ff.mu.Unlock()
		return ff.sets == sets+1
	}) {
		t.Errorf("Expected one resync for the crypto change only")
	}
	if got := ff.Assets(); len(got) != 4 || got[0] != "bitcoin" {
		t.Errorf("Expected bitcoin kept via base set, got %v", got)
	}
}

func TestAlertLoop_PostsEvaluation(t *testing.T) {
	store := runStore(t)
	ctx := context.Background()
	clock := infra.NewManualClock(time.Unix(1700000000, 0))

	store.Dispatch(ctx, action.FetchCoinsSuccess{Coins: []domain.Coin{{ID: "bitcoin", Name: "Bitcoin", CurrentPrice: decimal.NewFromInt(120)}}})
	store.Dispatch(ctx, action.SetPriceAlert{CoinID: "bitcoin", Direction: domain.Above, Price: decimal.NewFromInt(100)})

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go AlertLoop(loopCtx, store, clock, 5*time.Second)

	waitFor(t, func() bool { return clock.Pending() == 1 })
	clock.Advance(5 * time.Second)

	if !waitFor(t, func() bool { return len(store.GetState().Crypto.Alerts) == 1 }) {
		t.Fatal("Expected the tick to fire the armed threshold")
	}
	if got := store.GetState().Crypto.Alerts[0].CreatedAt.Time(); !got.Equal(clock.Now()) {
		t.Errorf("Expected alert stamped %v, got %v", clock.Now(), got)
	}
}

// maxSource yields the largest upward move and the first coin.
type maxSource struct{}

func (maxSource) Float64() float64 { return 1 }
func (maxSource) Intn(n int) int   { return 0 }

func TestSimulatedPriceLoop(t *testing.T) {
	store := runStore(t)
	ctx := context.Background()
	clock := infra.NewManualClock(time.Unix(1700000000, 0))

	loopCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go SimulatedPriceLoop(loopCtx, store, clock, 30*time.Second, maxSource{})

	// No coins loaded: the tick is skipped.
	waitFor(t, func() bool { return clock.Pending() == 1 })
	clock.Advance(30 * time.Second)
	waitFor(t, func() bool { return clock.Pending() == 1 })

	store.Dispatch(ctx, action.FetchCoinsSuccess{Coins: []domain.Coin{{ID: "bitcoin", Name: "Bitcoin", CurrentPrice: decimal.NewFromInt(100)}}})
	if n := len(store.GetState().Crypto.Alerts); n != 0 {
		t.Fatalf("Expected no alert without coins, got %d", n)
	}
	clock.Advance(30 * time.Second)

	if !waitFor(t, func() bool { return len(store.GetState().Crypto.Alerts) == 1 }) {
		t.Fatal("Expected a simulated alert")
	}
	ev := store.GetState().Crypto.Alerts[0]
	if ev.Kind != domain.KindPriceSimulated || ev.Message != "Bitcoin price increased by 4.00%" {
		t.Errorf("Unexpected alert %+v", ev)
	}
}
