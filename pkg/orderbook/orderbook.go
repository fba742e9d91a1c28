package orderbook

import "github.com/Muhsin-Gun/aurora/pkg/models"

// Default ladder geometry. The book is decorative depth around the last
// price, not a matched order book.
const (
	DefaultDepth  = 15
	DefaultSpread = 0.0002
	DefaultStep   = 0.0001

	sizeMin  = 0.1
	sizeSpan = 8.0
)

// Rand supplies the level sizes; injected for deterministic tests.
type Rand interface {
	Float64() float64
}

// Generator synthesizes full-replacement bid/ask ladders around a price.
type Generator struct {
	depth  int
	spread float64
	step   float64
	rnd    Rand
}

// New builds a generator. Zero or negative geometry falls back to defaults.
func New(depth int, spread, step float64, rnd Rand) *Generator {
	if depth <= 0 {
		depth = DefaultDepth
	}
	if spread <= 0 {
		spread = DefaultSpread
	}
	if step <= 0 {
		step = DefaultStep
	}
	return &Generator{depth: depth, spread: spread, step: step, rnd: rnd}
}

// Snapshot produces a fresh ladder for the given price. Asks are ordered
// farthest-first so index depth-1 sits one step above the spread; bids
// mirror outward from the spread. Sizes are independent uniform draws in
// [0.1, 8.1).
func (g *Generator) Snapshot(symbol string, price float64, now int64) models.OrderBook {
	book := models.OrderBook{
		Symbol:    symbol,
		Asks:      make([]models.BookLevel, g.depth),
		Bids:      make([]models.BookLevel, g.depth),
		Timestamp: now,
	}

	for i := 0; i < g.depth; i++ {
		book.Asks[i] = models.BookLevel{
			Price: price + g.spread + float64(g.depth-i)*g.step,
			Size:  g.rnd.Float64()*sizeSpan + sizeMin,
			Side:  models.Ask,
		}
		book.Bids[i] = models.BookLevel{
			Price: price - g.spread - float64(i)*g.step,
			Size:  g.rnd.Float64()*sizeSpan + sizeMin,
			Side:  models.Bid,
		}
	}
	return book
}
