// Package openweather fetches current conditions and the 5 day forecast.
// Payloads are passed through unchanged (temperatures in Kelvin).
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"crypto_dash/internal/infra"
)

const Service = "openweather"

// ErrNoAPIKey is returned when no OpenWeather key is configured.
var ErrNoAPIKey = errors.New("openweather api key not configured")

// Query selects a location either by name or by coordinates.
type Query struct {
	Address string
	Lat     string
	Lon     string
}

// Valid reports whether the query names a location.
func (q Query) Valid() bool {
	return q.Address != "" || (q.Lat != "" && q.Lon != "")
}

type Client struct {
	rest   *infra.RESTClient
	apiKey string
}

func New(baseURL, apiKey string) *Client {
	return &Client{rest: infra.NewRESTClient(Service, baseURL, nil), apiKey: apiKey}
}

func NewWithREST(rest *infra.RESTClient, apiKey string) *Client {
	return &Client{rest: rest, apiKey: apiKey}
}

// Current returns current weather for the location.
func (c *Client) Current(ctx context.Context, q Query) (json.RawMessage, error) {
	if !q.Valid() {
		return nil, infra.MissingParam("address or lat/lon")
	}
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	v := url.Values{"appid": {c.apiKey}}
	if q.Address != "" {
		v.Set("q", q.Address)
	} else {
		v.Set("lat", q.Lat)
		v.Set("lon", q.Lon)
	}
	var raw json.RawMessage
	if err := c.rest.GetJSON(ctx, "/weather", v, &raw); err != nil {
		return nil, fmt.Errorf("fetch weather: %w", err)
	}
	return raw, nil
}

// Forecast returns the 5 day / 3 hour forecast for city.
func (c *Client) Forecast(ctx context.Context, city string) (json.RawMessage, error) {
	if city == "" {
		return nil, infra.MissingParam("city")
	}
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	var raw json.RawMessage
	if err := c.rest.GetJSON(ctx, "/forecast", url.Values{"q": {city}, "appid": {c.apiKey}}, &raw); err != nil {
		return nil, fmt.Errorf("fetch forecast for %s: %w", city, err)
	}
	return raw, nil
}
