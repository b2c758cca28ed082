// Package alert decides which armed price thresholds have been crossed and
// builds the simulated price and weather alerts.
package alert

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"crypto_dash/internal/domain"
	"crypto_dash/pkg/quant"
)

// Evaluate returns one event per crossed (coin, direction) pair.
// above fires on price >= threshold, below on price <= threshold.
// Coins with thresholds that are absent from coins are skipped.
// Events are ordered by coin id, above before below; stamp supplies CreatedAt.
// Evaluate does not disarm anything: the caller removes the fired thresholds.
func Evaluate(coins []domain.Coin, overlay domain.LiveOverlay, thresholds domain.Thresholds, stamp func() quant.TimeStamp) []domain.AlertEvent {
	if len(thresholds) == 0 {
		return nil
	}

	ids := make([]string, 0, len(thresholds))
	for id := range thresholds {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var events []domain.AlertEvent
	for _, id := range ids {
		coin, ok := domain.FindCoin(coins, id)
		if !ok {
			continue
		}
		setting := thresholds[id]
		price := domain.EffectivePrice(coin, overlay)

		if th, armed := setting.Get(domain.Above); armed && price.GreaterThanOrEqual(th) {
			events = append(events, thresholdEvent(coin, domain.Above, th, price, stamp()))
		}
		if th, armed := setting.Get(domain.Below); armed && price.LessThanOrEqual(th) {
			events = append(events, thresholdEvent(coin, domain.Below, th, price, stamp()))
		}
	}
	return events
}

func thresholdEvent(coin domain.Coin, dir domain.Direction, threshold, price decimal.Decimal, ts quant.TimeStamp) domain.AlertEvent {
	return domain.AlertEvent{
		Kind:      domain.KindPriceThreshold,
		Direction: dir,
		CoinID:    coin.ID,
		Subject:   coin.Name,
		Message:   fmt.Sprintf("%s price is now %s %sUSD (%sUSD)", coin.Name, dir, threshold, price),
		Price:     &price,
		Threshold: &threshold,
		CreatedAt: ts,
	}
}
