package bookfeed

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Muhsin-Gun/aurora/pkg/models"
	"github.com/Muhsin-Gun/aurora/pkg/orderbook"
)

// QuoteSource supplies the last known price a ladder is built around.
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// Broadcast delivers a finished snapshot; wired to the hub.
type Broadcast func(symbol string, book models.OrderBook)

// Feed regenerates synthetic order books for every watched symbol on its
// own ticker, decoupled from the price cadence. A snapshot may trail the
// newest price by up to one simulator tick; that staleness is accepted.
type Feed struct {
	logger    *zap.Logger
	source    QuoteSource
	gen       *orderbook.Generator
	interval  time.Duration
	broadcast Broadcast

	mu      sync.Mutex
	watched map[string]int
}

func New(logger *zap.Logger, source QuoteSource, gen *orderbook.Generator, interval time.Duration, broadcast Broadcast) *Feed {
	return &Feed{
		logger:    logger,
		source:    source,
		gen:       gen,
		interval:  interval,
		broadcast: broadcast,
		watched:   make(map[string]int),
	}
}

// Watch adds one reference to a symbol's book stream.
func (f *Feed) Watch(symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watched[symbol]++
}

// Unwatch drops one reference; the symbol stops regenerating at zero.
func (f *Feed) Unwatch(symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.watched[symbol]--
	if f.watched[symbol] <= 0 {
		delete(f.watched, symbol)
	}
}

// Run drives the regeneration loop until the context is cancelled.
// Cancelling this ticker has no effect on the price feed.
func (f *Feed) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.tick(ctx)
		}
	}
}

func (f *Feed) tick(ctx context.Context) {
	for _, sym := range f.watchedSymbols() {
		quote, err := f.source.GetQuote(ctx, sym)
		if err != nil {
			// Not an error: the symbol may simply not have ticked yet
			f.logger.Debug("No quote for book generation", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		book := f.gen.Snapshot(sym, quote.Price, time.Now().UnixMilli())
		f.broadcast(sym, book)
	}
}

func (f *Feed) watchedSymbols() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.watched))
	for sym := range f.watched {
		out = append(out, sym)
	}
	return out
}
