// Package coingecko fetches coin markets, details, history and trending lists.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"crypto_dash/internal/domain"
	"crypto_dash/internal/infra"
)

// Service names the vendor in errors and logs.
const Service = "coingecko"

// Client is a CoinGecko REST client.
type Client struct {
	rest *infra.RESTClient
}

// New creates a client for baseURL limited to perMinute requests.
func New(baseURL string, perMinute int) *Client {
	return &Client{rest: infra.NewRESTClient(Service, baseURL, infra.NewPerMinuteLimiter(perMinute))}
}

// NewWithREST wraps an existing REST client (tests use it to drop the limiter).
func NewWithREST(rest *infra.RESTClient) *Client {
	return &Client{rest: rest}
}

// Markets returns USD market snapshots for ids ordered by market cap.
func (c *Client) Markets(ctx context.Context, ids []string) ([]domain.Coin, error) {
	if len(ids) == 0 {
		return nil, infra.MissingParam("ids")
	}
	q := url.Values{
		"vs_currency":             {"usd"},
		"ids":                     {strings.Join(ids, ",")},
		"order":                   {"market_cap_desc"},
		"per_page":                {"100"},
		"page":                    {"1"},
		"sparkline":               {"false"},
		"price_change_percentage": {"24h"},
	}
	var coins []domain.Coin
	if err := c.rest.GetJSON(ctx, "/coins/markets", q, &coins); err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}
	return coins, nil
}

// CoinDetails returns the vendor detail document for id unchanged.
func (c *Client) CoinDetails(ctx context.Context, id string) (json.RawMessage, error) {
	if id == "" {
		return nil, infra.MissingParam("id")
	}
	q := url.Values{
		"localization":   {"false"},
		"tickers":        {"false"},
		"market_data":    {"true"},
		"community_data": {"false"},
		"developer_data": {"false"},
		"sparkline":      {"false"},
	}
	var raw json.RawMessage
	if err := c.rest.GetJSON(ctx, "/coins/"+url.PathEscape(id), q, &raw); err != nil {
		return nil, fmt.Errorf("fetch details for %s: %w", id, err)
	}
	return raw, nil
}

// MarketChart returns the price, market cap and volume series for the last days.
func (c *Client) MarketChart(ctx context.Context, id string, days int) (domain.MarketChart, error) {
	if id == "" {
		return domain.MarketChart{}, infra.MissingParam("id")
	}
	if days <= 0 {
		days = 7
	}
	q := url.Values{
		"vs_currency": {"usd"},
		"days":        {fmt.Sprint(days)},
	}
	var chart domain.MarketChart
	if err := c.rest.GetJSON(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", q, &chart); err != nil {
		return domain.MarketChart{}, fmt.Errorf("fetch market chart for %s: %w", id, err)
	}
	return chart, nil
}

type trendingResponse struct {
	Coins []struct {
		Item domain.TrendingCoin `json:"item"`
	} `json:"coins"`
}

// Trending returns the vendor's trending search list in rank order.
func (c *Client) Trending(ctx context.Context) ([]domain.TrendingCoin, error) {
	var resp trendingResponse
	if err := c.rest.GetJSON(ctx, "/search/trending", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch trending: %w", err)
	}
	out := make([]domain.TrendingCoin, 0, len(resp.Coins))
	for _, c := range resp.Coins {
		out = append(out, c.Item)
	}
	return out, nil
}
