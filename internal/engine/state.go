package engine

import (
	"encoding/json"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/prediction"
	"crypto_dash/pkg/quant"
)

// Limits on the bounded collections held in state.
const (
	TrendingLimit = 5
	NewsLimit     = 5
)

// CryptoState is the coin, live price and alert section.
type CryptoState struct {
	Coins         []domain.Coin         `json:"coins"`
	Trending      []domain.TrendingCoin `json:"trendingCoins"`
	Live          domain.LiveOverlay    `json:"liveData"`
	Subscribed    []string              `json:"subscribedAssets"`
	FeedConnected bool                  `json:"feedConnected"`
	FeedError     string                `json:"feedError,omitempty"`
	Thresholds    domain.Thresholds     `json:"priceAlertSettings"`
	Alerts        []domain.AlertEvent   `json:"alerts"`
	ViewMode      domain.ViewMode       `json:"viewMode"`
	LastFetchKey  string                `json:"lastFetchKey,omitempty"`

	SelectedCoin string              `json:"selectedCoin,omitempty"`
	DetailsID    string              `json:"coinDetailsId,omitempty"`
	Details      json.RawMessage     `json:"coinDetails,omitempty"`
	HistoryID    string              `json:"historicalDataId,omitempty"`
	History      *domain.MarketChart `json:"historicalData,omitempty"`
	PredictionID string              `json:"predictionDataId,omitempty"`
	Prediction   *prediction.Result  `json:"predictionData,omitempty"`

	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// WeatherState is the weather section.
type WeatherState struct {
	Current     json.RawMessage      `json:"weatherData,omitempty"`
	Searched    bool                 `json:"searched"`
	Cities      []domain.CityWeather `json:"multiCityData"`
	HistoryCity string               `json:"historyCity,omitempty"`
	History     json.RawMessage      `json:"historyData,omitempty"`
	Alerts      []domain.AlertEvent  `json:"weatherAlerts"`
	Loading     bool                 `json:"loading"`
	Error       string               `json:"error,omitempty"`
}

// NewsState is the news section.
type NewsState struct {
	Articles []domain.NewsItem `json:"articles"`
	Loading  bool              `json:"loading"`
	Error    string            `json:"error,omitempty"`
}

// State is an immutable snapshot of the whole application.
// Reducers never modify a State they receive; they return a new one.
type State struct {
	Seq         uint64             `json:"seq"`
	LastStamp   quant.TimeStamp    `json:"lastStamp"`
	Crypto      CryptoState        `json:"crypto"`
	Weather     WeatherState       `json:"weather"`
	News        NewsState          `json:"news"`
	Preferences domain.FavoriteSet `json:"userPreferences"`
}

// InitialState returns the state before any action is applied.
func InitialState() *State {
	return &State{
		Crypto: CryptoState{
			Coins:      []domain.Coin{},
			Trending:   []domain.TrendingCoin{},
			Live:       domain.LiveOverlay{},
			Subscribed: append([]string(nil), domain.DefaultLiveAssets...),
			Thresholds: domain.Thresholds{},
			Alerts:     []domain.AlertEvent{},
			ViewMode:   domain.ViewAll,
		},
		Weather: WeatherState{
			Cities: []domain.CityWeather{},
			Alerts: []domain.AlertEvent{},
		},
		News: NewsState{
			Articles: []domain.NewsItem{},
		},
		Preferences: domain.DefaultFavorites(),
	}
}

// Alerts returns the bounded history for d, newest first.
func (s *State) Alerts(d domain.AlertDomain) []domain.AlertEvent {
	if d == domain.DomainWeather {
		return s.Weather.Alerts
	}
	return s.Crypto.Alerts
}

// SubscribedSet returns the streamed assets as a lookup set.
func (s *State) SubscribedSet() map[string]bool {
	out := make(map[string]bool, len(s.Crypto.Subscribed))
	for _, a := range s.Crypto.Subscribed {
		out[a] = true
	}
	return out
}
