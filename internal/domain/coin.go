package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Coin is a market snapshot for a single asset as returned by the coin list fetch.
// Replaced wholesale on every fetch; the live overlay never writes into it.
type Coin struct {
	ID                       string          `json:"id"`
	Name                     string          `json:"name"`
	Symbol                   string          `json:"symbol"`
	CurrentPrice             decimal.Decimal `json:"current_price"`
	PriceChangePercentage24h float64         `json:"price_change_percentage_24h"`
	MarketCap                decimal.Decimal `json:"market_cap"`
	Image                    string          `json:"image"`
}

// DefaultLiveAssets is the streamed asset set when nothing else is configured.
var DefaultLiveAssets = []string{"bitcoin", "ethereum", "ripple"}

// LiveOverlay maps coin id to the most recently streamed price (decimal string).
type LiveOverlay map[string]string

// Merge returns a new overlay with updates applied on top of o.
// Only keys present in allowed are kept (nil allowed keeps everything).
func (o LiveOverlay) Merge(updates map[string]string, allowed map[string]bool) LiveOverlay {
	out := make(LiveOverlay, len(o)+len(updates))
	for k, v := range o {
		out[k] = v
	}
	for k, v := range updates {
		if allowed != nil && !allowed[k] {
			continue
		}
		out[k] = v
	}
	return out
}

// Restrict returns a copy holding only the keys in allowed.
func (o LiveOverlay) Restrict(allowed map[string]bool) LiveOverlay {
	out := make(LiveOverlay, len(o))
	for k, v := range o {
		if allowed[k] {
			out[k] = v
		}
	}
	return out
}

// EffectivePrice is the single merge point for polled and streamed prices:
// the overlay value when present and parseable, else the last fetched price.
func EffectivePrice(c Coin, overlay LiveOverlay) decimal.Decimal {
	if raw, ok := overlay[c.ID]; ok {
		if p, err := decimal.NewFromString(raw); err == nil {
			return p
		}
	}
	return c.CurrentPrice
}

// FindCoin returns the coin with the given id.
func FindCoin(coins []Coin, id string) (Coin, bool) {
	for _, c := range coins {
		if c.ID == id {
			return c, true
		}
	}
	return Coin{}, false
}

// TrendingCoin is a ranked summary from the trending search endpoint.
type TrendingCoin struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Symbol        string `json:"symbol"`
	Thumb         string `json:"small"`
	MarketCapRank int    `json:"market_cap_rank"`
}

// SeriesPoint is one [timestampMs, value] pair of a vendor time series.
type SeriesPoint struct {
	TimestampMs int64
	Value       float64
}

// MarshalJSON encodes the point as a two-element array.
func (p SeriesPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{float64(p.TimestampMs), p.Value})
}

// UnmarshalJSON decodes a two-element [ts, value] array.
func (p *SeriesPoint) UnmarshalJSON(b []byte) error {
	var pair []float64
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("series point: expected 2 elements, got %d", len(pair))
	}
	p.TimestampMs = int64(pair[0])
	p.Value = pair[1]
	return nil
}

// MarketChart is the historical series payload for a coin.
type MarketChart struct {
	Prices       []SeriesPoint `json:"prices"`
	MarketCaps   []SeriesPoint `json:"market_caps,omitempty"`
	TotalVolumes []SeriesPoint `json:"total_volumes,omitempty"`
}

// NewsItem is a headline from the news search.
type NewsItem struct {
	ArticleID   string `json:"article_id,omitempty"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description,omitempty"`
	SourceID    string `json:"source_id,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	PubDate     string `json:"pubDate,omitempty"`
}
