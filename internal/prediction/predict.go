// Package prediction derives moving averages, a trend label and a short
// projected series from a coin's price history.
//
// The projection is a heuristic for display only and carries no forecasting claim.
package prediction

import (
	"errors"
	"math"
	"sync"

	"crypto_dash/internal/domain"
)

// Trend is the sign of the short-term vs mid-term moving average.
type Trend string

const (
	Bullish Trend = "bullish"
	Bearish Trend = "bearish"
)

const (
	// Horizon is the number of projected daily points.
	Horizon = 7
	// DefaultJitter widens or narrows the random spread of the projection.
	DefaultJitter = 0.5

	dayMillis     = int64(24 * 60 * 60 * 1000)
	recentSamples = 30
)

// ErrNoPrices is returned when the chart has no price samples.
var ErrNoPrices = errors.New("no price samples")

// Source yields uniform values in [0, 1). *math/rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// MovingAverages holds the SMAs over the last 7, 14 and 30 samples (nil when too few).
type MovingAverages struct {
	SMA7  *float64 `json:"sma7"`
	SMA14 *float64 `json:"sma14"`
	SMA30 *float64 `json:"sma30"`
}

// Result is the prediction payload.
type Result struct {
	Prices         []domain.SeriesPoint `json:"prices"`
	Predictions    []domain.SeriesPoint `json:"predictions"`
	Trend          Trend                `json:"trend"`
	Momentum       float64              `json:"momentum"`
	LastPrice      float64              `json:"lastPrice"`
	MovingAverages MovingAverages       `json:"movingAverages"`
}

// SMA averages the values of the last period samples, nil if fewer are available.
func SMA(prices []domain.SeriesPoint, period int) *float64 {
	if period <= 0 || len(prices) < period {
		return nil
	}
	var sum float64
	for _, p := range prices[len(prices)-period:] {
		sum += p.Value
	}
	avg := sum / float64(period)
	return &avg
}

// TrendOf is bullish iff sma7 > sma14. A missing average never compares greater.
func TrendOf(sma7, sma14 *float64) Trend {
	if sma7 != nil && sma14 != nil && *sma7 > *sma14 {
		return Bullish
	}
	return Bearish
}

// MomentumOf is |sma7/sma14 - 1| * 100, or 0 when either average is missing or sma14 is 0.
func MomentumOf(sma7, sma14 *float64) float64 {
	if sma7 == nil || sma14 == nil || *sma14 == 0 {
		return 0
	}
	return math.Abs((*sma7 / *sma14 - 1) * 100)
}

// Predict computes the full result. src may be nil for a centred (deterministic) projection.
func Predict(chart domain.MarketChart, src Source, jitter float64) (Result, error) {
	prices := chart.Prices
	if len(prices) == 0 {
		return Result{}, ErrNoPrices
	}
	last := prices[len(prices)-1]

	ma := MovingAverages{
		SMA7:  SMA(prices, 7),
		SMA14: SMA(prices, 14),
		SMA30: SMA(prices, 30),
	}
	trend := TrendOf(ma.SMA7, ma.SMA14)
	momentum := MomentumOf(ma.SMA7, ma.SMA14)

	sign := 1.0
	if trend == Bearish {
		sign = -1.0
	}

	predictions := make([]domain.SeriesPoint, 0, Horizon)
	for i := 1; i <= Horizon; i++ {
		r := 0.5
		if src != nil {
			r = src.Float64()
		}
		factor := 1 + sign*(momentum/100)*(1+(r*jitter-jitter/2))
		predictions = append(predictions, domain.SeriesPoint{
			TimestampMs: last.TimestampMs + int64(i)*dayMillis,
			Value:       last.Value * math.Pow(factor, float64(i)/Horizon),
		})
	}

	recent := prices
	if len(recent) > recentSamples {
		recent = recent[len(recent)-recentSamples:]
	}

	return Result{
		Prices:         append([]domain.SeriesPoint(nil), recent...),
		Predictions:    predictions,
		Trend:          trend,
		Momentum:       math.Round(momentum*100) / 100,
		LastPrice:      last.Value,
		MovingAverages: ma,
	}, nil
}

// Predictor serialises access to a shared Source.
type Predictor struct {
	mu     sync.Mutex
	src    Source
	jitter float64
}

// NewPredictor creates a predictor. A negative jitter selects DefaultJitter.
func NewPredictor(src Source, jitter float64) *Predictor {
	if jitter < 0 {
		jitter = DefaultJitter
	}
	return &Predictor{src: src, jitter: jitter}
}

// Predict runs Predict with the predictor's source and jitter.
func (p *Predictor) Predict(chart domain.MarketChart) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Predict(chart, p.src, p.jitter)
}
