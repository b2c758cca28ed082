// Package action defines every state transition the store accepts.
package action

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/prediction"
	"crypto_dash/pkg/quant"
)

// Type identifies an action.
type Type uint16

const (
	TypeFetchCoinsStart Type = iota + 1
	TypeFetchCoinsSuccess
	TypeFetchCoinsFailure
	TypeUpdateLivePrice
	TypeSetSubscriptions
	TypeSetFeedStatus
	TypeSelectCoin
	TypeFetchCoinDetailsSuccess
	TypeFetchHistoricalDataSuccess
	TypeFetchTrendingSuccess
	TypeFetchPredictionSuccess
	TypeAddCryptoAlert
	TypeSetPriceAlert
	TypeRemovePriceAlert
	TypeClearAllAlerts
	TypeEvaluateAlerts
	TypeSetViewMode
	TypeAddFavoriteCity
	TypeRemoveFavoriteCity
	TypeAddFavoriteCrypto
	TypeRemoveFavoriteCrypto
	TypeLoadPreferences
	TypeFetchWeatherStart
	TypeFetchWeatherSuccess
	TypeFetchWeatherFailure
	TypeFetchMultipleCitiesStart
	TypeFetchMultipleCitiesSuccess
	TypeFetchMultipleCitiesFailure
	TypeFetchWeatherHistoryStart
	TypeFetchWeatherHistorySuccess
	TypeFetchWeatherHistoryFailure
	TypeResetSearch
	TypeAddWeatherAlert
	TypeFetchNewsStart
	TypeFetchNewsSuccess
	TypeFetchNewsFailure
)

var typeNames = map[Type]string{
	TypeFetchCoinsStart:            "FETCH_COINS_START",
	TypeFetchCoinsSuccess:          "FETCH_COINS_SUCCESS",
	TypeFetchCoinsFailure:          "FETCH_COINS_FAILURE",
	TypeUpdateLivePrice:            "UPDATE_LIVE_PRICE",
	TypeSetSubscriptions:           "SET_SUBSCRIPTIONS",
	TypeSetFeedStatus:              "SET_FEED_STATUS",
	TypeSelectCoin:                 "SELECT_COIN",
	TypeFetchCoinDetailsSuccess:    "FETCH_COIN_DETAILS_SUCCESS",
	TypeFetchHistoricalDataSuccess: "FETCH_HISTORICAL_DATA_SUCCESS",
	TypeFetchTrendingSuccess:       "FETCH_TRENDING_COINS_SUCCESS",
	TypeFetchPredictionSuccess:     "FETCH_PREDICTION_SUCCESS",
	TypeAddCryptoAlert:             "ADD_CRYPTO_ALERT",
	TypeSetPriceAlert:              "SET_PRICE_ALERT",
	TypeRemovePriceAlert:           "REMOVE_PRICE_ALERT",
	TypeClearAllAlerts:             "CLEAR_ALL_ALERTS",
	TypeEvaluateAlerts:             "EVALUATE_ALERTS",
	TypeSetViewMode:                "SET_VIEW_MODE",
	TypeAddFavoriteCity:            "ADD_FAVORITE_CITY",
	TypeRemoveFavoriteCity:         "REMOVE_FAVORITE_CITY",
	TypeAddFavoriteCrypto:          "ADD_FAVORITE_CRYPTO",
	TypeRemoveFavoriteCrypto:       "REMOVE_FAVORITE_CRYPTO",
	TypeLoadPreferences:            "LOAD_PREFERENCES",
	TypeFetchWeatherStart:          "FETCH_WEATHER_START",
	TypeFetchWeatherSuccess:        "FETCH_WEATHER_SUCCESS",
	TypeFetchWeatherFailure:        "FETCH_WEATHER_FAILURE",
	TypeFetchMultipleCitiesStart:   "FETCH_MULTIPLE_CITIES_START",
	TypeFetchMultipleCitiesSuccess: "FETCH_MULTIPLE_CITIES_SUCCESS",
	TypeFetchMultipleCitiesFailure: "FETCH_MULTIPLE_CITIES_FAILURE",
	TypeFetchWeatherHistoryStart:   "FETCH_WEATHER_HISTORY_START",
	TypeFetchWeatherHistorySuccess: "FETCH_WEATHER_HISTORY_SUCCESS",
	TypeFetchWeatherHistoryFailure: "FETCH_WEATHER_HISTORY_FAILURE",
	TypeResetSearch:                "RESET_SEARCH",
	TypeAddWeatherAlert:            "SIMULATE_WEATHER_ALERT",
	TypeFetchNewsStart:             "FETCH_NEWS_START",
	TypeFetchNewsSuccess:           "FETCH_NEWS_SUCCESS",
	TypeFetchNewsFailure:           "FETCH_NEWS_FAILURE",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// Action is the interface for everything dispatched to the store.
type Action interface {
	GetType() Type
}

// Timed is embedded by actions whose reducer needs the time they were produced.
// The reducer never reads a clock.
type Timed struct {
	Ts quant.TimeStamp `json:"ts"`
}

// At stamps an action with t.
func At(t time.Time) Timed { return Timed{Ts: quant.FromTime(t)} }

// ---- crypto ----

type FetchCoinsStart struct{}

// FetchCoinsSuccess replaces the coin list. Key is the canonical id set that was fetched.
type FetchCoinsSuccess struct {
	Key   string
	Coins []domain.Coin
}

type FetchCoinsFailure struct{ Err string }

// UpdateLivePrice merges streamed prices into the live overlay.
type UpdateLivePrice struct{ Prices map[string]string }

// SetSubscriptions records the streamed asset set and prunes the overlay to it.
type SetSubscriptions struct{ Assets []string }

// SetFeedStatus records whether the live feed is connected.
type SetFeedStatus struct {
	Connected bool
	Err       string
}

type SelectCoin struct{ ID string }

type FetchCoinDetailsSuccess struct {
	ID   string
	Data json.RawMessage
}

type FetchHistoricalDataSuccess struct {
	ID    string
	Chart domain.MarketChart
}

type FetchTrendingSuccess struct{ Coins []domain.TrendingCoin }

type FetchPredictionSuccess struct {
	ID     string
	Result prediction.Result
}

// AddCryptoAlert appends an externally built crypto alert (simulated price alerts).
type AddCryptoAlert struct {
	Timed
	Alert domain.AlertEvent
}

type SetPriceAlert struct {
	CoinID    string
	Direction domain.Direction
	Price     decimal.Decimal
}

type RemovePriceAlert struct {
	CoinID    string
	Direction domain.Direction
}

type ClearAllAlerts struct{}

// EvaluateAlerts checks every armed threshold, records fired alerts and disarms them in one step.
type EvaluateAlerts struct{ Timed }

type SetViewMode struct{ Mode domain.ViewMode }

// ---- preferences ----

type AddFavoriteCity struct{ City string }
type RemoveFavoriteCity struct{ City string }
type AddFavoriteCrypto struct{ ID string }
type RemoveFavoriteCrypto struct{ ID string }

// LoadPreferences merges persisted keys over the defaults.
type LoadPreferences struct{ Prefs domain.PersistedPreferences }

// ---- weather ----

type FetchWeatherStart struct{}
type FetchWeatherSuccess struct{ Data json.RawMessage }
type FetchWeatherFailure struct{ Err string }

type FetchMultipleCitiesStart struct{}
type FetchMultipleCitiesSuccess struct{ Cities []domain.CityWeather }
type FetchMultipleCitiesFailure struct{ Err string }

type FetchWeatherHistoryStart struct{}
type FetchWeatherHistorySuccess struct {
	City string
	Data json.RawMessage
}
type FetchWeatherHistoryFailure struct{ Err string }

type ResetSearch struct{}

type AddWeatherAlert struct {
	Timed
	Alert domain.AlertEvent
}

// ---- news ----

type FetchNewsStart struct{}
type FetchNewsSuccess struct{ Items []domain.NewsItem }
type FetchNewsFailure struct{ Err string }

func (FetchCoinsStart) GetType() Type            { return TypeFetchCoinsStart }
func (FetchCoinsSuccess) GetType() Type          { return TypeFetchCoinsSuccess }
func (FetchCoinsFailure) GetType() Type          { return TypeFetchCoinsFailure }
func (UpdateLivePrice) GetType() Type            { return TypeUpdateLivePrice }
func (SetSubscriptions) GetType() Type           { return TypeSetSubscriptions }
func (SetFeedStatus) GetType() Type              { return TypeSetFeedStatus }
func (SelectCoin) GetType() Type                 { return TypeSelectCoin }
func (FetchCoinDetailsSuccess) GetType() Type    { return TypeFetchCoinDetailsSuccess }
func (FetchHistoricalDataSuccess) GetType() Type { return TypeFetchHistoricalDataSuccess }
func (FetchTrendingSuccess) GetType() Type       { return TypeFetchTrendingSuccess }
func (FetchPredictionSuccess) GetType() Type     { return TypeFetchPredictionSuccess }
func (AddCryptoAlert) GetType() Type             { return TypeAddCryptoAlert }
func (SetPriceAlert) GetType() Type              { return TypeSetPriceAlert }
func (RemovePriceAlert) GetType() Type           { return TypeRemovePriceAlert }
func (ClearAllAlerts) GetType() Type             { return TypeClearAllAlerts }
func (EvaluateAlerts) GetType() Type             { return TypeEvaluateAlerts }
func (SetViewMode) GetType() Type                { return TypeSetViewMode }
func (AddFavoriteCity) GetType() Type            { return TypeAddFavoriteCity }
func (RemoveFavoriteCity) GetType() Type         { return TypeRemoveFavoriteCity }
func (AddFavoriteCrypto) GetType() Type          { return TypeAddFavoriteCrypto }
func (RemoveFavoriteCrypto) GetType() Type       { return TypeRemoveFavoriteCrypto }
func (LoadPreferences) GetType() Type            { return TypeLoadPreferences }
func (FetchWeatherStart) GetType() Type          { return TypeFetchWeatherStart }
func (FetchWeatherSuccess) GetType() Type        { return TypeFetchWeatherSuccess }
func (FetchWeatherFailure) GetType() Type        { return TypeFetchWeatherFailure }
func (FetchMultipleCitiesStart) GetType() Type   { return TypeFetchMultipleCitiesStart }
func (FetchMultipleCitiesSuccess) GetType() Type { return TypeFetchMultipleCitiesSuccess }
func (FetchMultipleCitiesFailure) GetType() Type { return TypeFetchMultipleCitiesFailure }
func (FetchWeatherHistoryStart) GetType() Type   { return TypeFetchWeatherHistoryStart }
func (FetchWeatherHistorySuccess) GetType() Type { return TypeFetchWeatherHistorySuccess }
func (FetchWeatherHistoryFailure) GetType() Type { return TypeFetchWeatherHistoryFailure }
func (ResetSearch) GetType() Type                { return TypeResetSearch }
func (AddWeatherAlert) GetType() Type            { return TypeAddWeatherAlert }
func (FetchNewsStart) GetType() Type             { return TypeFetchNewsStart }
func (FetchNewsSuccess) GetType() Type           { return TypeFetchNewsSuccess }
func (FetchNewsFailure) GetType() Type           { return TypeFetchNewsFailure }
