package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Direction is the side of a price threshold.
type Direction string

const (
	Above Direction = "above"
	Below Direction = "below"
)

// ParseDirection validates a user-supplied direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Above, Below:
		return Direction(s), nil
	default:
		return "", fmt.Errorf("invalid threshold direction %q", s)
	}
}

// ThresholdSetting holds at most one armed value per direction.
type ThresholdSetting struct {
	Above *decimal.Decimal `json:"above,omitempty"`
	Below *decimal.Decimal `json:"below,omitempty"`
}

// Get returns the armed value for dir.
func (s ThresholdSetting) Get(dir Direction) (decimal.Decimal, bool) {
	var p *decimal.Decimal
	switch dir {
	case Above:
		p = s.Above
	case Below:
		p = s.Below
	}
	if p == nil {
		return decimal.Zero, false
	}
	return *p, true
}

// IsEmpty reports whether neither side is armed.
func (s ThresholdSetting) IsEmpty() bool {
	return s.Above == nil && s.Below == nil
}

func (s ThresholdSetting) with(dir Direction, v *decimal.Decimal) ThresholdSetting {
	switch dir {
	case Above:
		s.Above = v
	case Below:
		s.Below = v
	}
	return s
}

// Thresholds is the armed threshold table keyed by coin id.
// Values are treated as immutable: Set and Remove return new tables.
type Thresholds map[string]ThresholdSetting

// Set arms (or re-arms) dir for coinID.
func (t Thresholds) Set(coinID string, dir Direction, price decimal.Decimal) Thresholds {
	out := t.clone()
	out[coinID] = out[coinID].with(dir, &price)
	return out
}

// Remove disarms dir for coinID. Removing an absent threshold returns t unchanged.
func (t Thresholds) Remove(coinID string, dir Direction) Thresholds {
	s, ok := t[coinID]
	if !ok {
		return t
	}
	if _, armed := s.Get(dir); !armed {
		return t
	}
	out := t.clone()
	s = s.with(dir, nil)
	if s.IsEmpty() {
		delete(out, coinID)
	} else {
		out[coinID] = s
	}
	return out
}

// Armed reports whether dir is armed for coinID.
func (t Thresholds) Armed(coinID string, dir Direction) bool {
	_, ok := t[coinID].Get(dir)
	return ok
}

func (t Thresholds) clone() Thresholds {
	out := make(Thresholds, len(t)+1)
	for k, v := range t {
		out[k] = v
	}
	return out
}
