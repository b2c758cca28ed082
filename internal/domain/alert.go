package domain

import (
	"crypto_dash/pkg/quant"

	"github.com/shopspring/decimal"
)

// AlertKind identifies what produced an alert.
type AlertKind string

const (
	KindPriceThreshold AlertKind = "priceAlert"
	KindPriceSimulated AlertKind = "price"
	KindWeather        AlertKind = "weatherAlert"
)

// AlertDomain groups kinds into the two bounded histories.
type AlertDomain string

const (
	DomainCrypto  AlertDomain = "crypto"
	DomainWeather AlertDomain = "weather"
)

// AlertHistoryLimit is the number of alerts retained per domain.
const AlertHistoryLimit = 5

// AlertEvent is an immutable alert record.
// CreatedAt is strictly increasing across all alerts and doubles as the identity key.
type AlertEvent struct {
	Kind      AlertKind        `json:"type"`
	Direction Direction        `json:"alertType,omitempty"`
	CoinID    string           `json:"coinId,omitempty"`
	Subject   string           `json:"subject"`
	Message   string           `json:"message"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Threshold *decimal.Decimal `json:"threshold,omitempty"`
	Change    *float64         `json:"change,omitempty"`
	CreatedAt quant.TimeStamp  `json:"timestamp"`
}

// Domain returns the history this alert belongs to.
func (a AlertEvent) Domain() AlertDomain {
	if a.Kind == KindWeather {
		return DomainWeather
	}
	return DomainCrypto
}

// PrependBounded returns [ev, history...] truncated to limit.
// history is newest-first; the oldest entries fall off the end.
func PrependBounded(history []AlertEvent, ev AlertEvent, limit int) []AlertEvent {
	n := len(history) + 1
	if n > limit {
		n = limit
	}
	out := make([]AlertEvent, 0, n)
	out = append(out, ev)
	for _, h := range history {
		if len(out) == n {
			break
		}
		out = append(out, h)
	}
	return out
}
