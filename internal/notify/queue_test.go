package notify

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"crypto_dash/internal/action"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/engine"
	"crypto_dash/internal/infra"
	"crypto_dash/pkg/quant"
)

func alertAt(ts quant.TimeStamp) domain.AlertEvent {
	return domain.AlertEvent{Kind: domain.KindPriceSimulated, Subject: "bitcoin", CreatedAt: ts}
}

func newTestQueue() (*Queue, *infra.ManualClock) {
	clock := infra.NewManualClock(time.Unix(1700000000, 0))
	return NewQueue(Options{Clock: clock}), clock
}

func TestQueue_PushDedupesByCreatedAt(t *testing.T) {
	q, _ := newTestQueue()
	defer q.Close()

	if !q.Push(alertAt(1)) {
		t.Fatal("Expected first push to be added")
	}
	if q.Push(alertAt(1)) {
		t.Error("Expected duplicate CreatedAt to be skipped")
	}
	if n := len(q.Items()); n != 1 {
		t.Errorf("Expected 1 item, got %d", n)
	}
}

func TestQueue_SixPushesKeepFiveWithIndependentExpiry(t *testing.T) {
	q, clock := newTestQueue()
	defer q.Close()

	for i := 1; i <= 6; i++ {
		q.Push(alertAt(quant.TimeStamp(i)))
		clock.Advance(500 * time.Millisecond)
	}

	items := q.Items()
	if len(items) != 5 {
		t.Fatalf("Expected 5 items, got %d", len(items))
	}
	if items[0].Alert.CreatedAt != 6 || items[4].Alert.CreatedAt != 2 {
		t.Errorf("Expected newest-first 6..2, got %v..%v", items[0].Alert.CreatedAt, items[4].Alert.CreatedAt)
	}
	// The dropped entry's timer was stopped: only five remain armed.
	if p := clock.Pending(); p != 5 {
		t.Errorf("Expected 5 pending timers, got %d", p)
	}

	// Item 2 was pushed at 0.5s and expires at 5.5s; now is 3.0s.
	clock.Advance(2500 * time.Millisecond)
	items = q.Items()
	if len(items) != 4 || items[3].Alert.CreatedAt != 3 {
		t.Errorf("Expected 4 items ending with 3, got %d", len(items))
	}

	clock.Advance(2 * time.Second)
	if q.Visible() {
		t.Errorf("Expected queue to be empty, got %d items", len(q.Items()))
	}
}

func TestQueue_Dismiss(t *testing.T) {
	q, clock := newTestQueue()
	defer q.Close()

	q.Push(alertAt(1))
	q.Push(alertAt(2))
	id := q.Items()[1].ID

	if !q.Dismiss(id) {
		t.Fatal("Expected Dismiss to succeed")
	}
	if q.Dismiss(id) {
		t.Error("Expected second Dismiss to report false")
	}
	if clock.Pending() != 1 {
		t.Errorf("Expected dismissed timer stopped, got %d pending", clock.Pending())
	}
}

func TestQueue_OnChange(t *testing.T) {
	q, clock := newTestQueue()
	defer q.Close()

	var sizes []int
	q.OnChange(func(items []Notification) { sizes = append(sizes, len(items)) })

	q.Push(alertAt(1))
	clock.Advance(DefaultTTL)

	if len(sizes) != 2 || sizes[0] != 1 || sizes[1] != 0 {
		t.Errorf("Expected sizes [1 0], got %v", sizes)
	}
}

func TestQueue_CloseStopsTimers(t *testing.T) {
	q, clock := newTestQueue()
	q.Push(alertAt(1))
	q.Close()

	if clock.Pending() != 0 {
		t.Errorf("Expected no pending timers, got %d", clock.Pending())
	}
	if q.Push(alertAt(2)) {
		t.Error("Push after Close should be ignored")
	}
}

func TestQueue_ObserveSurfacesNewAlertsOnce(t *testing.T) {
	store := engine.NewStore(16, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go store.Run(ctx)

	// An alert that predates Observe is not surfaced.
	store.Dispatch(ctx, action.AddCryptoAlert{Timed: action.Timed{Ts: 10}, Alert: alertAt(0)})

	q, _ := newTestQueue()
	defer q.Close()
	stop := q.Observe(store)
	defer stop()

	store.Dispatch(ctx, action.FetchCoinsSuccess{Coins: []domain.Coin{
		{ID: "bitcoin", Name: "Bitcoin", CurrentPrice: decimal.NewFromInt(100)},
		{ID: "ethereum", Name: "Ethereum", CurrentPrice: decimal.NewFromInt(10)},
	}})
	store.Dispatch(ctx, action.SetPriceAlert{CoinID: "bitcoin", Direction: domain.Above, Price: decimal.NewFromInt(50)})
	store.Dispatch(ctx, action.SetPriceAlert{CoinID: "ethereum", Direction: domain.Below, Price: decimal.NewFromInt(20)})
	store.Dispatch(ctx, action.EvaluateAlerts{Timed: action.Timed{Ts: 20}})
	store.Dispatch(ctx, action.AddWeatherAlert{Timed: action.Timed{Ts: 30}, Alert: domain.AlertEvent{Kind: domain.KindWeather, Subject: "Seoul"}})
	store.Dispatch(ctx, action.SelectCoin{ID: "bitcoin"})

	items := q.Items()
	if len(items) != 3 {
		t.Fatalf("Expected 3 notifications, got %d", len(items))
	}
	// Pushed oldest first, so the newest sits on top.
	want := []string{"Seoul", "Ethereum", "Bitcoin"}
	for i, w := range want {
		if items[i].Alert.Subject != w {
			t.Errorf("item %d: expected %s, got %s", i, w, items[i].Alert.Subject)
		}
	}
}
