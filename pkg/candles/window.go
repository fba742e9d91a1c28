package candles

import "github.com/Muhsin-Gun/aurora/pkg/models"

const (
	// DefaultBucketMs is the aggregation bucket. Display timeframes above
	// one minute are re-aggregated from these buckets; the fold itself is
	// always per-minute.
	DefaultBucketMs = 60_000
	// DefaultCapacity is the number of candles kept per symbol.
	DefaultCapacity = 100
)

// Window folds a price stream into a fixed-capacity rolling sequence of
// OHLCV candles. It is not safe for concurrent use; each symbol's window
// has a single writer.
type Window struct {
	bucketMs int64
	capacity int
	candles  []models.Candle
}

// NewWindow creates an empty window. Zero or negative arguments fall back
// to the defaults.
func NewWindow(bucketMs int64, capacity int) *Window {
	if bucketMs <= 0 {
		bucketMs = DefaultBucketMs
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Window{
		bucketMs: bucketMs,
		capacity: capacity,
		candles:  make([]models.Candle, 0, capacity),
	}
}

// Apply folds one price sample into the window. A sample either updates the
// open bucket in place or rolls a new one, evicting the oldest candle once
// the window is full. Samples are never dropped or reordered.
func (w *Window) Apply(t int64, price, volume float64) {
	last := w.last()
	if last == nil || t-last.Time > w.bucketMs {
		w.roll(models.Candle{
			Time:   t,
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: volume,
		})
		return
	}

	// Volume reacts only on bucket rollover; intra-bucket ticks move
	// close/high/low.
	last.Close = price
	if price > last.High {
		last.High = price
	}
	if price < last.Low {
		last.Low = price
	}
}

// Candles returns a copy of the window, oldest first.
func (w *Window) Candles() []models.Candle {
	out := make([]models.Candle, len(w.candles))
	copy(out, w.candles)
	return out
}

// Len returns the number of candles currently held.
func (w *Window) Len() int { return len(w.candles) }

func (w *Window) last() *models.Candle {
	if len(w.candles) == 0 {
		return nil
	}
	return &w.candles[len(w.candles)-1]
}

func (w *Window) roll(c models.Candle) {
	if len(w.candles) == w.capacity {
		copy(w.candles, w.candles[1:])
		w.candles[len(w.candles)-1] = c
		return
	}
	w.candles = append(w.candles, c)
}
