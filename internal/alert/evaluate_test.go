package alert

import (
	"testing"

	"github.com/shopspring/decimal"

	"crypto_dash/internal/domain"
	"crypto_dash/pkg/quant"
)

func counter() func() quant.TimeStamp {
	var ts quant.TimeStamp
	return func() quant.TimeStamp {
		ts++
		return ts
	}
}

func coin(id, name, price string) domain.Coin {
	return domain.Coin{ID: id, Name: name, CurrentPrice: decimal.RequireFromString(price)}
}

func TestEvaluate_FiresOncePerCrossing(t *testing.T) {
	th := domain.Thresholds{}.Set("bitcoin", domain.Above, decimal.NewFromInt(100))
	coins := []domain.Coin{coin("bitcoin", "Bitcoin", "90")}
	stamp := counter()

	// [90, 99, 101] then 105: one event at 101, none at 105 once disarmed.
	var fired []domain.AlertEvent
	for _, p := range []string{"90", "99", "101", "105"} {
		overlay := domain.LiveOverlay{"bitcoin": p}
		events := Evaluate(coins, overlay, th, stamp)
		for _, ev := range events {
			th = th.Remove(ev.CoinID, ev.Direction)
		}
		fired = append(fired, events...)
	}

	if len(fired) != 1 {
		t.Fatalf("Expected exactly 1 event, got %d", len(fired))
	}
	ev := fired[0]
	if ev.Kind != domain.KindPriceThreshold || ev.Direction != domain.Above || ev.Price.String() != "101" {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Message != "Bitcoin price is now above 100USD (101USD)" {
		t.Errorf("unexpected message %q", ev.Message)
	}
	if th.Armed("bitcoin", domain.Above) {
		t.Error("threshold should be disarmed")
	}
}

func TestEvaluate_Boundaries(t *testing.T) {
	tests := []struct {
		name  string
		dir   domain.Direction
		th    string
		price string
		fires bool
	}{
		{"above equal fires", domain.Above, "100", "100", true},
		{"above below does not", domain.Above, "100", "99.99", false},
		{"below equal fires", domain.Below, "50", "50", true},
		{"below above does not", domain.Below, "50", "50.01", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := domain.Thresholds{}.Set("eth", tt.dir, decimal.RequireFromString(tt.th))
			events := Evaluate([]domain.Coin{coin("eth", "Ethereum", tt.price)}, nil, th, counter())
			if got := len(events) == 1; got != tt.fires {
				t.Errorf("Expected fires=%v, got %d events", tt.fires, len(events))
			}
		})
	}
}

func TestEvaluate_OverlayWinsOverFetched(t *testing.T) {
	th := domain.Thresholds{}.Set("bitcoin", domain.Below, decimal.NewFromInt(100))
	coins := []domain.Coin{coin("bitcoin", "Bitcoin", "150")}

	if events := Evaluate(coins, nil, th, counter()); len(events) != 0 {
		t.Fatal("fetched price 150 should not cross below 100")
	}
	if events := Evaluate(coins, domain.LiveOverlay{"bitcoin": "95"}, th, counter()); len(events) != 1 {
		t.Fatal("live price 95 should cross below 100")
	}
	if events := Evaluate(coins, domain.LiveOverlay{"bitcoin": "garbage"}, th, counter()); len(events) != 0 {
		t.Fatal("malformed overlay should fall back to the fetched price")
	}
}

func TestEvaluate_OrderingAndSkips(t *testing.T) {
	th := domain.Thresholds{}.
		Set("ripple", domain.Above, decimal.NewFromInt(0)).
		Set("bitcoin", domain.Below, decimal.NewFromInt(1000000)).
		Set("bitcoin", domain.Above, decimal.NewFromInt(1)).
		Set("unknown", domain.Above, decimal.NewFromInt(0))
	coins := []domain.Coin{coin("ripple", "XRP", "0.5"), coin("bitcoin", "Bitcoin", "50000")}

	events := Evaluate(coins, nil, th, counter())
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	want := []struct {
		id  string
		dir domain.Direction
	}{{"bitcoin", domain.Above}, {"bitcoin", domain.Below}, {"ripple", domain.Above}}
	for i, w := range want {
		if events[i].CoinID != w.id || events[i].Direction != w.dir {
			t.Errorf("event %d: Expected %s/%s, got %s/%s", i, w.id, w.dir, events[i].CoinID, events[i].Direction)
		}
		if i > 0 && events[i].CreatedAt <= events[i-1].CreatedAt {
			t.Error("timestamps must be strictly increasing")
		}
	}
}
