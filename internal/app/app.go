// Package app wires the store, the live feed, the schedulers and the HTTP
// surface into one running dashboard.
package app

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"

	"crypto_dash/internal/action"
	"crypto_dash/internal/alert"
	"crypto_dash/internal/engine"
	"crypto_dash/internal/feed"
	"crypto_dash/internal/fetch"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/infra/coingecko"
	"crypto_dash/internal/infra/newsdata"
	"crypto_dash/internal/infra/openweather"
	"crypto_dash/internal/notify"
	"crypto_dash/internal/prediction"
	"crypto_dash/internal/server"
)

const inboxSize = 1024

// App is a fully wired dashboard.
type App struct {
	cfg       *infra.Config
	clock     infra.Clock
	store     *engine.Store
	feed      *feed.Client
	scheduler *fetch.Scheduler
	queue     *notify.Queue
	server    *server.Server

	randMu sync.Mutex
	rand   alert.Source
}

// New builds every component from the bootstrapped config and database.
func New(b *Bootstrap) *App {
	cfg := b.Config
	clock := infra.SystemClock{}
	src := rand.New(rand.NewSource(clock.Now().UnixNano()))

	store := engine.NewStore(inboxSize, b.DB, b.Snapshots)

	client := feed.NewClient(feed.Config{
		URL:     cfg.API.CoinCap.WSURL,
		Assets:  cfg.API.CoinCap.Assets,
		Backoff: cfg.ReconnectBackoff(),
	})

	sched := fetch.NewScheduler(store,
		coingecko.New(cfg.API.CoinGecko.RestURL, cfg.API.CoinGecko.RatePerMin),
		openweather.New(cfg.API.OpenWeather.RestURL, cfg.API.OpenWeather.APIKey),
		newsdata.New(cfg.API.NewsData.RestURL, cfg.API.NewsData.APIKey),
		fetch.Options{
			DefaultCoins:       cfg.Dashboard.DefaultCoins,
			CacheTTL:           cfg.CacheTTL(),
			Debounce:           cfg.Debounce(),
			RetryDelay:         cfg.RetryDelay(),
			PollInterval:       cfg.PollInterval(),
			Clock:              clock,
			Predictor:          prediction.NewPredictor(rand.New(rand.NewSource(src.Int63())), cfg.Dashboard.PredictionJitter),
			SimulateAlerts:     cfg.Dashboard.SimulateAlerts,
			WeatherAlertChance: cfg.Dashboard.WeatherAlertChance,
			Rand:               rand.New(rand.NewSource(src.Int63())),
		})

	queue := notify.NewQueue(notify.Options{
		TTL:   cfg.NotificationTTL(),
		Limit: cfg.Dashboard.NotificationLimit,
		Clock: clock,
	})

	return &App{
		cfg:       cfg,
		clock:     clock,
		store:     store,
		feed:      client,
		scheduler: sched,
		queue:     queue,
		server:    server.New(store, sched, queue),
		rand:      src,
	}
}

// Run starts every loop and blocks until ctx is cancelled or a loop fails.
func (a *App) Run(ctx context.Context, b *Bootstrap) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.store.Run(ctx)
		return nil
	})

	if _, err := a.store.Dispatch(ctx, action.LoadPreferences{Prefs: b.LoadPreferences(ctx)}); err != nil {
		return err
	}
	slog.Info("✅ Preferences restored", slog.Any("favorites", a.store.GetState().Preferences))

	unbind := BindFeed(a.store, a.feed, a.cfg.API.CoinCap.Assets, a.clock)
	defer unbind()
	stopObserve := a.queue.Observe(a.store)
	defer stopObserve()
	defer a.queue.Close()
	defer a.scheduler.Close()

	a.feed.Connect(ctx)
	defer a.feed.Disconnect()
	slog.Info("✅ Live feed started", slog.String("url", a.feed.URL()))

	g.Go(func() error {
		if _, err := a.scheduler.RequestCoins(ctx, nil); err != nil {
			slog.Warn("Initial coin fetch failed", slog.Any("error", err))
		}
		a.scheduler.Poll(ctx)
		return nil
	})
	g.Go(func() error {
		AlertLoop(ctx, a.store, a.clock, a.cfg.AlertCheckInterval())
		return nil
	})
	if a.cfg.Dashboard.SimulateAlerts {
		g.Go(func() error {
			SimulatedPriceLoop(ctx, a.store, a.clock, a.cfg.SimulatedAlertInterval(), a.source())
			return nil
		})
	}
	g.Go(func() error {
		return a.server.Run(ctx, a.cfg.Server.Listen)
	})

	slog.Info("✨ Dashboard fully operational. Press Ctrl+C to exit.")
	return g.Wait()
}

// source serializes access to the shared random source.
func (a *App) source() alert.Source {
	return &lockedSource{mu: &a.randMu, src: a.rand}
}

type lockedSource struct {
	mu  *sync.Mutex
	src alert.Source
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

func (l *lockedSource) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Intn(n)
}
