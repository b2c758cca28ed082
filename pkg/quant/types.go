package quant

import (
	"time"
)

// TimeStamp represents Unix Microseconds.
type TimeStamp int64

// FromTime converts a wall-clock time to TimeStamp.
func FromTime(t time.Time) TimeStamp {
	return TimeStamp(t.UnixMicro())
}

// Time converts back to time.Time (UTC).
func (ts TimeStamp) Time() time.Time {
	return time.UnixMicro(int64(ts)).UTC()
}

func (ts TimeStamp) String() string {
	return ts.Time().Format(time.RFC3339Nano)
}

// After returns ts if it is strictly greater than last, otherwise last+1.
// Used wherever an ordering key must never repeat.
func After(last, ts TimeStamp) TimeStamp {
	if ts > last {
		return ts
	}
	return last + 1
}
