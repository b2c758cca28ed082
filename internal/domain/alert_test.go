package domain

import (
	"testing"

	"crypto_dash/pkg/quant"
)

func TestAlertEvent_Domain(t *testing.T) {
	t.Run("Threshold alert is crypto", func(t *testing.T) {
		ev := AlertEvent{Kind: KindPriceThreshold}
		if ev.Domain() != DomainCrypto {
			t.Errorf("Expected crypto, got %s", ev.Domain())
		}
	})

	t.Run("Simulated price alert is crypto", func(t *testing.T) {
		ev := AlertEvent{Kind: KindPriceSimulated}
		if ev.Domain() != DomainCrypto {
			t.Errorf("Expected crypto, got %s", ev.Domain())
		}
	})

	t.Run("Weather alert is weather", func(t *testing.T) {
		ev := AlertEvent{Kind: KindWeather}
		if ev.Domain() != DomainWeather {
			t.Errorf("Expected weather, got %s", ev.Domain())
		}
	})
}

func TestPrependBounded(t *testing.T) {
	var history []AlertEvent
	for i := 1; i <= 8; i++ {
		history = PrependBounded(history, AlertEvent{CreatedAt: quant.TimeStamp(i)}, AlertHistoryLimit)
		if len(history) > AlertHistoryLimit {
			t.Fatalf("history grew to %d entries", len(history))
		}
	}

	if len(history) != AlertHistoryLimit {
		t.Fatalf("Expected %d entries, got %d", AlertHistoryLimit, len(history))
	}
	// Newest first: 8,7,6,5,4. 1..3 evicted.
	for i, ev := range history {
		want := quant.TimeStamp(8 - i)
		if ev.CreatedAt != want {
			t.Errorf("history[%d] = %d; want %d", i, ev.CreatedAt, want)
		}
	}
}

func TestPrependBounded_DoesNotMutateInput(t *testing.T) {
	orig := []AlertEvent{{CreatedAt: 2}, {CreatedAt: 1}}
	_ = PrependBounded(orig, AlertEvent{CreatedAt: 3}, AlertHistoryLimit)
	if orig[0].CreatedAt != 2 || orig[1].CreatedAt != 1 {
		t.Error("input slice was modified")
	}
}
