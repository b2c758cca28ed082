package alert

import (
	"fmt"
	"math"

	"crypto_dash/internal/domain"
)

// Source is the randomness used by the simulators. *math/rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
}

// WeatherAlertTypes are the simulated weather alert categories.
var WeatherAlertTypes = []string{"Heavy Rain", "Thunderstorm", "Extreme Heat", "High Winds", "Flood Warning"}

// PriceChangeAlert builds a simulated price movement alert for coin.
func PriceChangeAlert(coin domain.Coin, overlay domain.LiveOverlay, change float64) domain.AlertEvent {
	verb := "decreased"
	if change > 0 {
		verb = "increased"
	}
	price := domain.EffectivePrice(coin, overlay)
	return domain.AlertEvent{
		Kind:    domain.KindPriceSimulated,
		CoinID:  coin.ID,
		Subject: coin.Name,
		Message: fmt.Sprintf("%s price %s by %.2f%%", coin.Name, verb, math.Abs(change)),
		Price:   &price,
		Change:  &change,
	}
}

// RandomPriceAlert picks a loaded coin and a change in [-4, 4)%.
// It reports false when no coins are loaded.
func RandomPriceAlert(coins []domain.Coin, overlay domain.LiveOverlay, src Source) (domain.AlertEvent, bool) {
	if len(coins) == 0 {
		return domain.AlertEvent{}, false
	}
	coin := coins[src.Intn(len(coins))]
	change := src.Float64()*8 - 4
	return PriceChangeAlert(coin, overlay, change), true
}

// WeatherAlert builds a simulated weather alert.
func WeatherAlert(city, alertType string) domain.AlertEvent {
	return domain.AlertEvent{
		Kind:    domain.KindWeather,
		Subject: city,
		Message: fmt.Sprintf("%s alert for %s", alertType, city),
	}
}

// RandomWeatherAlert fires with probability chance for a random city.
func RandomWeatherAlert(cities []string, chance float64, src Source) (domain.AlertEvent, bool) {
	if len(cities) == 0 || src.Float64() >= chance {
		return domain.AlertEvent{}, false
	}
	city := cities[src.Intn(len(cities))]
	alertType := WeatherAlertTypes[src.Intn(len(WeatherAlertTypes))]
	return WeatherAlert(city, alertType), true
}
