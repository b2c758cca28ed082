package alert

import (
	"math/rand"
	"strings"
	"testing"

	"crypto_dash/internal/domain"
)

// fixedSource replays scripted values.
type fixedSource struct {
	floats []float64
	ints   []int
}

func (f *fixedSource) Float64() float64 {
	v := f.floats[0]
	f.floats = f.floats[1:]
	return v
}

func (f *fixedSource) Intn(n int) int {
	v := f.ints[0] % n
	f.ints = f.ints[1:]
	return v
}

func TestPriceChangeAlert_Message(t *testing.T) {
	c := coin("solana", "Solana", "20")

	up := PriceChangeAlert(c, nil, 3.456)
	if up.Message != "Solana price increased by 3.46%" {
		t.Errorf("unexpected message %q", up.Message)
	}
	down := PriceChangeAlert(c, nil, -1.2)
	if down.Message != "Solana price decreased by 1.20%" {
		t.Errorf("unexpected message %q", down.Message)
	}
	if down.Kind != domain.KindPriceSimulated || down.Domain() != domain.DomainCrypto {
		t.Errorf("unexpected kind %s", down.Kind)
	}
}

func TestRandomPriceAlert(t *testing.T) {
	coins := []domain.Coin{coin("bitcoin", "Bitcoin", "1"), coin("cardano", "Cardano", "2")}

	ev, ok := RandomPriceAlert(coins, nil, &fixedSource{floats: []float64{0.75}, ints: []int{1}})
	if !ok || ev.CoinID != "cardano" || *ev.Change != 2 {
		t.Errorf("unexpected alert %+v", ev)
	}

	if _, ok := RandomPriceAlert(nil, nil, rand.New(rand.NewSource(1))); ok {
		t.Error("no coins loaded should produce no alert")
	}

	src := rand.New(rand.NewSource(42))
	for i := 0; i < 100; i++ {
		ev, _ := RandomPriceAlert(coins, nil, src)
		if *ev.Change < -4 || *ev.Change >= 4 {
			t.Fatalf("change %v out of range", *ev.Change)
		}
	}
}

func TestRandomWeatherAlert(t *testing.T) {
	cities := []string{"Paris", "Tokyo"}

	if _, ok := RandomWeatherAlert(cities, 0.1, &fixedSource{floats: []float64{0.5}}); ok {
		t.Error("roll above chance should not fire")
	}

	ev, ok := RandomWeatherAlert(cities, 0.1, &fixedSource{floats: []float64{0.05}, ints: []int{1, 3}})
	if !ok {
		t.Fatal("roll below chance should fire")
	}
	if ev.Message != "High Winds alert for Tokyo" || ev.Domain() != domain.DomainWeather {
		t.Errorf("unexpected alert %+v", ev)
	}
	if !strings.HasSuffix(ev.Message, ev.Subject) {
		t.Error("subject should be the city")
	}
}
