package fetch

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"crypto_dash/internal/action"
	"crypto_dash/internal/alert"
	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/infra/newsdata"
	"crypto_dash/internal/infra/openweather"
)

// cityFanOut bounds concurrent weather lookups in a multi-city refresh.
const cityFanOut = 4

// WeatherVendor is the weather provider.
type WeatherVendor interface {
	Current(ctx context.Context, q openweather.Query) (json.RawMessage, error)
	Forecast(ctx context.Context, city string) (json.RawMessage, error)
}

// NewsSource is the headline provider.
type NewsSource interface {
	Latest(ctx context.Context) ([]domain.NewsItem, error)
}

var (
	_ WeatherVendor = (*openweather.Client)(nil)
	_ NewsSource    = (*newsdata.Client)(nil)
)

// Weather loads the current weather for one address or coordinate pair.
func (s *Scheduler) Weather(ctx context.Context, q openweather.Query) (json.RawMessage, error) {
	if !q.Valid() {
		return nil, infra.MissingParam("address or lat/lon")
	}
	if s.weather == nil {
		return nil, openweather.ErrNoAPIKey
	}
	s.dispatch(ctx, action.FetchWeatherStart{})
	data, err := s.weather.Current(ctx, q)
	if err != nil {
		s.dispatch(ctx, action.FetchWeatherFailure{Err: err.Error()})
		return nil, err
	}
	s.dispatch(ctx, action.FetchWeatherSuccess{Data: data})
	return data, nil
}

// Cities loads the current weather for every city in parallel.
// Any single failure fails the whole refresh. On success a simulated
// weather alert may be raised for one of the cities.
func (s *Scheduler) Cities(ctx context.Context, cities []string) ([]domain.CityWeather, error) {
	if len(cities) == 0 {
		s.dispatch(ctx, action.FetchMultipleCitiesSuccess{Cities: []domain.CityWeather{}})
		return []domain.CityWeather{}, nil
	}
	if s.weather == nil {
		return nil, openweather.ErrNoAPIKey
	}

	s.dispatch(ctx, action.FetchMultipleCitiesStart{})
	out := make([]domain.CityWeather, len(cities))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cityFanOut)
	for i, city := range cities {
		i, city := i, city
		g.Go(func() error {
			data, err := s.weather.Current(gctx, openweather.Query{Address: city})
			if err != nil {
				return fmt.Errorf("weather for %s: %w", city, err)
			}
			out[i] = domain.CityWeather{City: city, Data: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.dispatch(ctx, action.FetchMultipleCitiesFailure{Err: err.Error()})
		return nil, err
	}
	s.dispatch(ctx, action.FetchMultipleCitiesSuccess{Cities: out})

	if s.opts.SimulateAlerts {
		s.mu.Lock()
		ev, ok := alert.RandomWeatherAlert(cities, s.opts.WeatherAlertChance, s.opts.Rand)
		s.mu.Unlock()
		if ok {
			s.dispatch(ctx, action.AddWeatherAlert{Timed: action.At(s.clock.Now()), Alert: ev})
		}
	}
	return out, nil
}

// FavoriteCities refreshes the weather of every favorite city.
func (s *Scheduler) FavoriteCities(ctx context.Context) ([]domain.CityWeather, error) {
	return s.Cities(ctx, s.store.GetState().Preferences.Cities)
}

// WeatherHistory loads the forecast series for city.
func (s *Scheduler) WeatherHistory(ctx context.Context, city string) (json.RawMessage, error) {
	if city == "" {
		return nil, infra.MissingParam("city")
	}
	if s.weather == nil {
		return nil, openweather.ErrNoAPIKey
	}
	s.dispatch(ctx, action.FetchWeatherHistoryStart{})
	data, err := s.weather.Forecast(ctx, city)
	if err != nil {
		s.dispatch(ctx, action.FetchWeatherHistoryFailure{Err: err.Error()})
		return nil, err
	}
	s.dispatch(ctx, action.FetchWeatherHistorySuccess{City: city, Data: data})
	return data, nil
}

// News loads the latest headlines.
func (s *Scheduler) News(ctx context.Context) ([]domain.NewsItem, error) {
	if s.news == nil {
		return nil, newsdata.ErrNoAPIKey
	}
	s.dispatch(ctx, action.FetchNewsStart{})
	items, err := s.news.Latest(ctx)
	if err != nil {
		s.dispatch(ctx, action.FetchNewsFailure{Err: err.Error()})
		return nil, err
	}
	s.dispatch(ctx, action.FetchNewsSuccess{Items: items})
	return items, nil
}

