package prediction_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/prediction"
)

func series(values ...float64) []domain.SeriesPoint {
	out := make([]domain.SeriesPoint, len(values))
	for i, v := range values {
		out[i] = domain.SeriesPoint{TimestampMs: int64(i) * 86400000, Value: v}
	}
	return out
}

func ramp(n int, start, step float64) []domain.SeriesPoint {
	values := make([]float64, n)
	for i := range values {
		values[i] = start + float64(i)*step
	}
	return series(values...)
}

func TestSMA(t *testing.T) {
	if prediction.SMA(series(1, 2, 3), 7) != nil {
		t.Error("Expected nil for fewer samples than the period")
	}

	got := prediction.SMA(series(100, 1, 2, 3, 4, 5, 6, 7), 7)
	if got == nil || *got != 4 {
		t.Errorf("Expected mean of the last 7 samples = 4, got %v", got)
	}
}

func TestTrendAndMomentum(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name     string
		sma7     *float64
		sma14    *float64
		trend    prediction.Trend
		momentum float64
	}{
		{"bullish", f(110), f(100), prediction.Bullish, 10},
		{"bearish", f(90), f(100), prediction.Bearish, 10},
		{"equal", f(100), f(100), prediction.Bearish, 0},
		{"missing short", nil, f(100), prediction.Bearish, 0},
		{"missing both", nil, nil, prediction.Bearish, 0},
		{"zero long", f(1), f(0), prediction.Bullish, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := prediction.TrendOf(tt.sma7, tt.sma14); got != tt.trend {
				t.Errorf("Expected trend %s, got %s", tt.trend, got)
			}
			if got := prediction.MomentumOf(tt.sma7, tt.sma14); math.Abs(got-tt.momentum) > 1e-9 {
				t.Errorf("Expected momentum %v, got %v", tt.momentum, got)
			}
		})
	}
}

func TestPredict_Deterministic(t *testing.T) {
	chart := domain.MarketChart{Prices: ramp(40, 100, 1)}

	a, err := prediction.Predict(chart, rand.New(rand.NewSource(7)), 0.5)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	b, _ := prediction.Predict(chart, rand.New(rand.NewSource(7)), 0.5)

	if a.Trend != prediction.Bullish {
		t.Errorf("rising series should be bullish, got %s", a.Trend)
	}
	if len(a.Predictions) != prediction.Horizon || len(a.Prices) != 30 {
		t.Fatalf("unexpected lengths: %d predictions, %d prices", len(a.Predictions), len(a.Prices))
	}
	for i := range a.Predictions {
		if a.Predictions[i] != b.Predictions[i] {
			t.Fatalf("same seed must give the same projection at %d", i)
		}
	}

	lastTs := chart.Prices[len(chart.Prices)-1].TimestampMs
	if a.Predictions[0].TimestampMs != lastTs+86400000 || a.Predictions[6].TimestampMs != lastTs+7*86400000 {
		t.Error("projection must step one day at a time from the last sample")
	}
	if a.LastPrice != 139 {
		t.Errorf("Expected last price 139, got %v", a.LastPrice)
	}
}

func TestPredict_ZeroJitter(t *testing.T) {
	chart := domain.MarketChart{Prices: ramp(30, 200, -2)}

	res, err := prediction.Predict(chart, rand.New(rand.NewSource(1)), 0)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if res.Trend != prediction.Bearish {
		t.Fatalf("falling series should be bearish, got %s", res.Trend)
	}

	raw := prediction.MomentumOf(res.MovingAverages.SMA7, res.MovingAverages.SMA14)
	factor := 1 - raw/100
	for i, p := range res.Predictions {
		want := res.LastPrice * math.Pow(factor, float64(i+1)/7)
		if math.Abs(p.Value-want) > 1e-9 {
			t.Errorf("point %d: Expected %v, got %v", i, want, p.Value)
		}
	}
	if res.Momentum != math.Round(raw*100)/100 {
		t.Errorf("momentum should be rounded to 2 places, got %v", res.Momentum)
	}
}

func TestPredict_ShortHistory(t *testing.T) {
	res, err := prediction.Predict(domain.MarketChart{Prices: series(5, 6, 7)}, nil, 0.5)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if res.MovingAverages.SMA7 != nil || res.Trend != prediction.Bearish || res.Momentum != 0 {
		t.Errorf("unexpected result for short history: %+v", res)
	}
	for _, p := range res.Predictions {
		if p.Value != 7 {
			t.Errorf("zero momentum should project a flat line, got %v", p.Value)
		}
	}

	if _, err := prediction.Predict(domain.MarketChart{}, nil, 0.5); !errors.Is(err, prediction.ErrNoPrices) {
		t.Errorf("Expected ErrNoPrices, got %v", err)
	}
}

func TestPredictor_NegativeJitterUsesDefault(t *testing.T) {
	p := prediction.NewPredictor(nil, -1)
	if _, err := p.Predict(domain.MarketChart{Prices: ramp(20, 1, 1)}); err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
}
