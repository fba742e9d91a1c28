package candles

import "github.com/Muhsin-Gun/aurora/pkg/models"

// Rand is the subset of randomness the seeder needs, kept as an interface
// so seeded windows are reproducible in tests.
type Rand interface {
	Float64() float64
}

// Seed pre-fills the window with synthetic history so a chart is never
// empty when a symbol first becomes active. Candles are spaced one bucket
// apart, ending one bucket before now, jittered around the base price.
func (w *Window) Seed(rnd Rand, base float64, now int64) {
	jitter := base * 0.002
	for i := 0; i < w.capacity; i++ {
		t := now - int64(w.capacity-i)*w.bucketMs
		open := base + rnd.Float64()*jitter
		close := base + rnd.Float64()*jitter
		high := max(open, close) + rnd.Float64()*jitter
		low := min(open, close) - rnd.Float64()*jitter
		w.roll(models.Candle{
			Time:   t,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  close,
			Volume: rnd.Float64() * 1000,
		})
	}
}
