package domain

import (
	"encoding/json"
	"fmt"
)

// ViewMode selects which coin list the dashboard shows.
type ViewMode string

const (
	ViewAll       ViewMode = "all"
	ViewFavorites ViewMode = "favorites"
	ViewTrending  ViewMode = "trending"
)

// ParseViewMode validates a user-supplied view mode.
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(s) {
	case ViewAll, ViewFavorites, ViewTrending:
		return ViewMode(s), nil
	default:
		return "", fmt.Errorf("invalid view mode %q", s)
	}
}

// CityWeather is one entry of a multi-city weather refresh.
type CityWeather struct {
	City string          `json:"city"`
	Data json.RawMessage `json:"data"`
}
