package app

import (
	"context"
	"time"

	"crypto_dash/internal/action"
	"crypto_dash/internal/alert"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/engine"
	"crypto_dash/internal/feed"
	"crypto_dash/internal/infra"
)

// Poster is the non-blocking half of the store.
type Poster interface {
	Post(a action.Action)
	GetState() *engine.State
	Subscribe(fn engine.Listener) func()
}

// every calls fn each interval until ctx is done.
func every(ctx context.Context, clock infra.Clock, interval time.Duration, fn func()) {
	tick := make(chan struct{}, 1)
	for {
		t := clock.AfterFunc(interval, func() {
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
			fn()
		}
	}
}

// AlertLoop re-checks every armed threshold each interval.
func AlertLoop(ctx context.Context, store Poster, clock infra.Clock, interval time.Duration) {
	every(ctx, clock, interval, func() {
		store.Post(action.EvaluateAlerts{Timed: action.At(clock.Now())})
	})
}

// SimulatedPriceLoop raises a random price movement alert each interval
// once coins are loaded.
func SimulatedPriceLoop(ctx context.Context, store Poster, clock infra.Clock, interval time.Duration, src alert.Source) {
	every(ctx, clock, interval, func() {
		st := store.GetState()
		if ev, ok := alert.RandomPriceAlert(st.Crypto.Coins, st.Crypto.Live, src); ok {
			store.Post(action.AddCryptoAlert{Timed: action.At(clock.Now()), Alert: ev})
		}
	})
}

// FeedSubscriber is the part of the feed client BindFeed drives.
type FeedSubscriber interface {
	AddListener(kind feed.EventKind, fn feed.Listener) func()
	SetAssets(assets []string) bool
	Assets() []string
	Connected() bool
}

// BindFeed turns feed events into store actions and keeps the streamed
// asset set equal to base plus the favorite cryptos.
// Every price update is followed by an alert evaluation.
func BindFeed(store Poster, client FeedSubscriber, base []string, clock infra.Clock) func() {
	removers := []func(){
		client.AddListener(feed.PriceUpdate, func(ev feed.Event) {
			store.Post(action.UpdateLivePrice{Prices: ev.Prices})
			store.Post(action.EvaluateAlerts{Timed: action.At(clock.Now())})
		}),
		client.AddListener(feed.Connected, func(feed.Event) {
			store.Post(action.SetFeedStatus{Connected: true})
		}),
		client.AddListener(feed.Disconnected, func(ev feed.Event) {
			store.Post(action.SetFeedStatus{Connected: false, Err: errString(ev.Err)})
		}),
		client.AddListener(feed.Error, func(ev feed.Event) {
			store.Post(action.SetFeedStatus{Connected: client.Connected(), Err: errString(ev.Err)})
		}),
	}

	resync := func(favs []string) {
		assets := make([]string, 0, len(base)+len(favs))
		assets = append(assets, base...)
		client.SetAssets(append(assets, favs...))
		store.Post(action.SetSubscriptions{Assets: client.Assets()})
	}
	resync(store.GetState().Preferences.Cryptos)

	removers = append(removers, store.Subscribe(func(prev, next *engine.State) {
		if !sameCryptos(prev.Preferences, next.Preferences) {
			resync(next.Preferences.Cryptos)
		}
	}))

	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

func sameCryptos(a, b domain.FavoriteSet) bool {
	if len(a.Cryptos) != len(b.Cryptos) {
		return false
	}
	for i := range a.Cryptos {
		if a.Cryptos[i] != b.Cryptos[i] {
			return false
		}
	}
	return true
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
