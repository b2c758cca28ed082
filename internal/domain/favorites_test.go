package domain

import (
	"encoding/json"
	"testing"
)

func TestFavoriteSet_Toggle(t *testing.T) {
	f := DefaultFavorites()

	f2 := f.AddCrypto("solana").AddCrypto("solana")
	if len(f2.Cryptos) != 4 {
		t.Errorf("Expected 4 cryptos, got %v", f2.Cryptos)
	}
	if len(f.Cryptos) != 3 {
		t.Error("original set was mutated")
	}

	f3 := f2.RemoveCrypto("bitcoin").AddCity("Paris").AddCity("Paris")
	if f3.HasCrypto("bitcoin") || !f3.HasCity("Paris") || len(f3.Cities) != 1 {
		t.Errorf("unexpected set: %+v", f3)
	}
}

func TestPersistedPreferences_MergeOver(t *testing.T) {
	t.Run("Persisted keys win", func(t *testing.T) {
		cryptos := []string{"cardano"}
		cities := []string{"Tokyo"}
		p := PersistedPreferences{Cities: &cities, Cryptos: &cryptos}

		got := p.MergeOver(DefaultFavorites())
		if !got.Equal(FavoriteSet{Cities: []string{"Tokyo"}, Cryptos: []string{"cardano"}}) {
			t.Errorf("unexpected merge: %+v", got)
		}
	})

	t.Run("Absent keys fall back to defaults", func(t *testing.T) {
		cities := []string{"Lagos"}
		p := PersistedPreferences{Cities: &cities}

		got := p.MergeOver(DefaultFavorites())
		if !got.Equal(FavoriteSet{Cities: []string{"Lagos"}, Cryptos: []string{"bitcoin", "ethereum", "ripple"}}) {
			t.Errorf("unexpected merge: %+v", got)
		}
	})

	t.Run("Persisted empty list is kept empty", func(t *testing.T) {
		empty := []string{}
		p := PersistedPreferences{Cryptos: &empty}

		got := p.MergeOver(DefaultFavorites())
		if len(got.Cryptos) != 0 {
			t.Errorf("Expected no cryptos, got %v", got.Cryptos)
		}
	})
}

func TestFavoriteSet_PersistedRoundTrip(t *testing.T) {
	f := FavoriteSet{Cities: []string{"Oslo", "Lima"}, Cryptos: []string{"ethereum"}}

	b, err := json.Marshal(f.Persisted())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var p PersistedPreferences
	if err := json.Unmarshal(b, &p); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got := p.MergeOver(DefaultFavorites()); !got.Equal(f) {
		t.Errorf("round trip mismatch: %+v vs %+v", got, f)
	}
}
