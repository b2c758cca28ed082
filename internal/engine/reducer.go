package engine

import (
	"sort"

	"crypto_dash/internal/action"
	"crypto_dash/internal/alert"
	"crypto_dash/internal/domain"
	"crypto_dash/pkg/quant"
)

// Reduce applies a to prev and returns the next state.
// It is pure: no clock, no I/O, and prev is never modified.
// When a has no effect, prev itself is returned (Seq unchanged).
func Reduce(prev *State, a action.Action) *State {
	next := *prev
	changed := true

	switch a := a.(type) {
	// ---- crypto ----
	case action.FetchCoinsStart:
		next.Crypto.Loading = true
		next.Crypto.Error = ""
	case action.FetchCoinsSuccess:
		next.Crypto.Coins = append([]domain.Coin(nil), a.Coins...)
		next.Crypto.LastFetchKey = a.Key
		next.Crypto.Loading = false
		next.Crypto.Error = ""
	case action.FetchCoinsFailure:
		next.Crypto.Loading = false
		next.Crypto.Error = a.Err

	case action.UpdateLivePrice:
		if len(a.Prices) == 0 {
			changed = false
			break
		}
		next.Crypto.Live = prev.Crypto.Live.Merge(a.Prices, prev.SubscribedSet())
	case action.SetSubscriptions:
		assets := canonicalAssets(a.Assets)
		if equalStrings(assets, prev.Crypto.Subscribed) {
			changed = false
			break
		}
		next.Crypto.Subscribed = assets
		next.Crypto.Live = prev.Crypto.Live.Restrict(next.SubscribedSet())
	case action.SetFeedStatus:
		if a.Connected == prev.Crypto.FeedConnected && a.Err == prev.Crypto.FeedError {
			changed = false
			break
		}
		next.Crypto.FeedConnected = a.Connected
		next.Crypto.FeedError = a.Err

	case action.SelectCoin:
		next.Crypto.SelectedCoin = a.ID
	case action.FetchCoinDetailsSuccess:
		next.Crypto.DetailsID = a.ID
		next.Crypto.Details = a.Data
	case action.FetchHistoricalDataSuccess:
		chart := a.Chart
		next.Crypto.HistoryID = a.ID
		next.Crypto.History = &chart
	case action.FetchTrendingSuccess:
		coins := a.Coins
		if len(coins) > TrendingLimit {
			coins = coins[:TrendingLimit]
		}
		next.Crypto.Trending = append([]domain.TrendingCoin(nil), coins...)
	case action.FetchPredictionSuccess:
		res := a.Result
		next.Crypto.PredictionID = a.ID
		next.Crypto.Prediction = &res

	case action.AddCryptoAlert:
		ev := a.Alert
		ev.CreatedAt = next.stamp(a.Ts)
		next.Crypto.Alerts = domain.PrependBounded(prev.Crypto.Alerts, ev, domain.AlertHistoryLimit)
	case action.SetPriceAlert:
		next.Crypto.Thresholds = prev.Crypto.Thresholds.Set(a.CoinID, a.Direction, a.Price)
	case action.RemovePriceAlert:
		if !prev.Crypto.Thresholds.Armed(a.CoinID, a.Direction) {
			changed = false
			break
		}
		next.Crypto.Thresholds = prev.Crypto.Thresholds.Remove(a.CoinID, a.Direction)
	case action.ClearAllAlerts:
		if len(prev.Crypto.Alerts) == 0 {
			changed = false
			break
		}
		next.Crypto.Alerts = []domain.AlertEvent{}
	case action.EvaluateAlerts:
		events := alert.Evaluate(prev.Crypto.Coins, prev.Crypto.Live, prev.Crypto.Thresholds,
			func() quant.TimeStamp { return next.stamp(a.Ts) })
		if len(events) == 0 {
			changed = false
			break
		}
		alerts, thresholds := prev.Crypto.Alerts, prev.Crypto.Thresholds
		for _, ev := range events {
			alerts = domain.PrependBounded(alerts, ev, domain.AlertHistoryLimit)
			thresholds = thresholds.Remove(ev.CoinID, ev.Direction)
		}
		next.Crypto.Alerts = alerts
		next.Crypto.Thresholds = thresholds
	case action.SetViewMode:
		if a.Mode == prev.Crypto.ViewMode {
			changed = false
			break
		}
		next.Crypto.ViewMode = a.Mode

	// ---- preferences ----
	case action.AddFavoriteCity:
		next.Preferences = prev.Preferences.AddCity(a.City)
		changed = !next.Preferences.Equal(prev.Preferences)
	case action.RemoveFavoriteCity:
		next.Preferences = prev.Preferences.RemoveCity(a.City)
		changed = !next.Preferences.Equal(prev.Preferences)
	case action.AddFavoriteCrypto:
		next.Preferences = prev.Preferences.AddCrypto(a.ID)
		changed = !next.Preferences.Equal(prev.Preferences)
	case action.RemoveFavoriteCrypto:
		next.Preferences = prev.Preferences.RemoveCrypto(a.ID)
		changed = !next.Preferences.Equal(prev.Preferences)
	case action.LoadPreferences:
		next.Preferences = a.Prefs.MergeOver(prev.Preferences)
		changed = !next.Preferences.Equal(prev.Preferences)

	// ---- weather ----
	case action.FetchWeatherStart, action.FetchMultipleCitiesStart, action.FetchWeatherHistoryStart:
		next.Weather.Loading = true
		next.Weather.Error = ""
	case action.FetchWeatherSuccess:
		next.Weather.Current = a.Data
		next.Weather.Searched = true
		next.Weather.Loading = false
	case action.FetchMultipleCitiesSuccess:
		next.Weather.Cities = append([]domain.CityWeather(nil), a.Cities...)
		next.Weather.Loading = false
	case action.FetchWeatherHistorySuccess:
		next.Weather.HistoryCity = a.City
		next.Weather.History = a.Data
		next.Weather.Loading = false
	case action.FetchWeatherFailure:
		next.Weather.Loading = false
		next.Weather.Error = a.Err
	case action.FetchMultipleCitiesFailure:
		next.Weather.Loading = false
		next.Weather.Error = a.Err
	case action.FetchWeatherHistoryFailure:
		next.Weather.Loading = false
		next.Weather.Error = a.Err
	case action.ResetSearch:
		next.Weather.Searched = false
		next.Weather.Current = nil
	case action.AddWeatherAlert:
		ev := a.Alert
		ev.CreatedAt = next.stamp(a.Ts)
		next.Weather.Alerts = domain.PrependBounded(prev.Weather.Alerts, ev, domain.AlertHistoryLimit)

	// ---- news ----
	case action.FetchNewsStart:
		next.News.Loading = true
		next.News.Error = ""
	case action.FetchNewsSuccess:
		items := a.Items
		if len(items) > NewsLimit {
			items = items[:NewsLimit]
		}
		next.News.Articles = append([]domain.NewsItem(nil), items...)
		next.News.Loading = false
	case action.FetchNewsFailure:
		next.News.Loading = false
		next.News.Error = a.Err

	default:
		changed = false
	}

	if !changed {
		return prev
	}
	next.Seq = prev.Seq + 1
	return &next
}

// stamp returns the next strictly increasing alert timestamp at or after ts.
func (s *State) stamp(ts quant.TimeStamp) quant.TimeStamp {
	s.LastStamp = quant.After(s.LastStamp, ts)
	return s.LastStamp
}

func canonicalAssets(assets []string) []string {
	seen := make(map[string]bool, len(assets))
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
