// Package newsdata fetches the latest crypto headlines.
package newsdata

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
)

const (
	Service = "newsdata"
	// Limit is the number of headlines kept.
	Limit = 5
)

// ErrNoAPIKey is returned when no NewsData key is configured.
var ErrNoAPIKey = errors.New("newsdata api key not configured")

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

type newsResponse struct {
	Status  string            `json:"status"`
	Results []domain.NewsItem `json:"results"`
}

// Latest returns at most Limit English crypto headlines.
func (c *Client) Latest(ctx context.Context) ([]domain.NewsItem, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}
	q := url.Values{
		"apikey":   {c.apiKey},
		"q":        {"crypto"},
		"language": {"en"},
		"size":     {fmt.Sprint(Limit)},
	}
	var resp newsResponse
	if err := c.rest.GetJSON(ctx, "/news", q, &resp); err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}
	items := resp.Results
	if items == nil {
		items = []domain.NewsItem{}
	}
	if len(items) > Limit {
		items = items[:Limit]
	}
	return items, nil
}
