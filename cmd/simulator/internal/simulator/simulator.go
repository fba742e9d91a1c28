package simulator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Muhsin-Gun/aurora/pkg/instrument"
	"github.com/Muhsin-Gun/aurora/pkg/models"
)

// Subscriber receives an immutable copy of the full quote map after every
// tick. Callbacks run on the simulator goroutine and should hand off
// quickly.
type Subscriber func(map[string]models.Quote)

// Simulator owns one Quote per tracked symbol and advances all of them on a
// fixed cadence. The run loop is the only writer; readers go through the
// mutex and get copies.
type Simulator struct {
	logger   *zap.Logger
	symbols  []string
	interval time.Duration
	clock    Clock
	rnd      Rand

	mu     sync.RWMutex
	quotes map[string]models.Quote

	subMu sync.Mutex
	subs  []Subscriber
}

func New(logger *zap.Logger, symbols []string, interval time.Duration, rnd Rand, clock Clock) *Simulator {
	return &Simulator{
		logger:   logger,
		symbols:  symbols,
		interval: interval,
		clock:    clock,
		rnd:      rnd,
		quotes:   make(map[string]models.Quote),
	}
}

// Subscribe registers a snapshot consumer. There is no unsubscribe; the
// subscriber set is fixed at wiring time.
func (s *Simulator) Subscribe(fn Subscriber) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

// Quote returns the current quote for a symbol. An absent symbol means it
// has not ticked yet, not an error.
func (s *Simulator) Quote(symbol string) (models.Quote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[symbol]
	return q, ok
}

// Snapshot returns a copy of the full quote map.
func (s *Simulator) Snapshot() map[string]models.Quote {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyQuotes(s.quotes)
}

// Tick advances every tracked symbol once and publishes the resulting
// snapshot to all subscribers.
func (s *Simulator) Tick() {
	now := s.clock.Now().UnixMilli()

	s.mu.Lock()
	for _, sym := range s.symbols {
		q, ok := s.quotes[sym]
		if !ok {
			base := instrument.BasePrice(sym)
			q = models.Quote{
				Symbol: sym,
				Price:  base,
				Volume: s.rnd.Float64() * 1_000_000,
				High:   base * 1.002,
				Low:    base * 0.998,
			}
		}

		base := instrument.BasePrice(sym)
		delta := (s.rnd.Float64() - 0.5) * instrument.Volatility(sym)

		// No clamp: prices can drift arbitrarily over long runs.
		q.Price += delta
		q.Change = q.Price - base
		q.ChangePercent = q.Change / base * 100
		if q.Price > q.High {
			q.High = q.Price
		}
		if q.Price < q.Low {
			q.Low = q.Price
		}
		q.LastUpdate = now
		q.SeqID++

		s.quotes[sym] = q
	}
	snapshot := copyQuotes(s.quotes)
	s.mu.Unlock()

	s.subMu.Lock()
	subs := s.subs
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(snapshot)
	}
}

// Run drives the tick loop until the context is cancelled.
func (s *Simulator) Run(ctx context.Context) {
	s.logger.Info("Simulator Started",
		zap.Strings("symbols", s.symbols),
		zap.Duration("interval", s.interval))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			s.Tick()
			s.clock.Sleep(s.interval)
		}
	}
}

func copyQuotes(src map[string]models.Quote) map[string]models.Quote {
	dst := make(map[string]models.Quote, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
