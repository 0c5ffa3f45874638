package domain

import (
	"sync/atomic"
	"time"
)

// Millis is a unix timestamp in milliseconds. Stored timestamps use it so that
// every backend orders them numerically.
type Millis int64

func MillisOf(t time.Time) Millis {
	return Millis(t.UnixMilli())
}

func (m Millis) Time() time.Time {
	return time.UnixMilli(int64(m))
}

var lastMillis atomic.Int64

// Now returns the current time, strictly increasing across calls in this process.
func Now() Millis {
	for {
		now := time.Now().UnixMilli()
		last := lastMillis.Load()
		if now <= last {
			now = last + 1
		}
		if lastMillis.CompareAndSwap(last, now) {
			return Millis(now)
		}
	}
}
