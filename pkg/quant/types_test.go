package quant

import (
	"testing"
	"time"
)

func TestAfter(t *testing.T) {
	tests := []struct {
		last, ts, want TimeStamp
	}{
		{0, 10, 10},
		{10, 10, 11},
		{10, 5, 11},
		{10, 20, 20},
	}
	for _, tt := range tests {
		if got := After(tt.last, tt.ts); got != tt.want {
			t.Errorf("After(%d, %d) = %d; want %d", tt.last, tt.ts, got, tt.want)
		}
	}
}

func TestTimeStamp_RoundTrip(t *testing.T) {
	now := time.Date(2024, 5, 6, 7, 8, 9, 123456000, time.UTC)
	if got := FromTime(now).Time(); !got.Equal(now) {
		t.Errorf("round trip = %v; want %v", got, now)
	}
}
