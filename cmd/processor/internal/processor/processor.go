package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Muhsin-Gun/aurora/pkg/candles"
	"github.com/Muhsin-Gun/aurora/pkg/config"
	"github.com/Muhsin-Gun/aurora/pkg/instrument"
	"github.com/Muhsin-Gun/aurora/pkg/models"
)

const (
	quoteKeyPrefix   = "quote:"
	candlesKeyPrefix = "candles:"
	priceChanPrefix  = "prices."

	keyTTL = 1 * time.Hour
)

// Processor consumes raw ticks from Kafka and materializes the derived
// views: latest quote per symbol and the rolling candle window. Symbols are
// sharded across workers by hash, so each symbol's window has exactly one
// writer.
type Processor struct {
	cfg        *config.Config
	logger     Logger
	rdb        RedisClient
	reader     KafkaReader
	numWorkers int
}

func NewProcessor(cfg *config.Config, logger Logger, rdb RedisClient, reader KafkaReader) *Processor {
	return &Processor{
		cfg:        cfg,
		logger:     logger,
		rdb:        rdb,
		reader:     reader,
		numWorkers: cfg.Processor.NumWorkers,
	}
}

func (p *Processor) Run(ctx context.Context) error {
	workerChans := make([]chan []byte, p.numWorkers)
	var wg sync.WaitGroup

	for i := 0; i < p.numWorkers; i++ {
		workerChans[i] = make(chan []byte, 100)
		wg.Add(1)
		go p.worker(i, workerChans[i], &wg)
	}

	go func() {
		p.logger.Info("Processor Started", zap.Int("workers", p.numWorkers))
		for {
			m, err := p.reader.ReadMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				p.logger.Error("Kafka Read Error", zap.Error(err))
				continue
			}

			// Deterministic sharding: same symbol always goes to same worker
			workerID := getWorkerID(m.Key, p.numWorkers)

			select {
			case workerChans[workerID] <- m.Value:
			case <-ctx.Done():
				return
			default:
				// Latest-wins: dropping beats backing up the whole feed
				p.logger.Warn("Dropping slow packet", zap.String("key", string(m.Key)), zap.Int("worker_id", workerID))
			}
		}
	}()

	<-ctx.Done()
	p.logger.Info("Shutdown signal received, stopping processor...")

	for _, ch := range workerChans {
		close(ch)
	}
	p.logger.Info("Waiting for workers to drain...")
	wg.Wait()

	return nil
}

func (p *Processor) worker(id int, msgs <-chan []byte, wg *sync.WaitGroup) {
	defer wg.Done()
	ctx := context.Background()

	// Per-worker state; safe because sharding pins a symbol to one worker
	lastSeq := make(map[string]int64)
	windows := make(map[string]*candles.Window)
	rnd := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))

	for payload := range msgs {
		var quote models.Quote
		if err := json.Unmarshal(payload, &quote); err != nil {
			p.logger.Error("JSON Unmarshal Error", zap.Error(err))
			continue
		}

		if quote.SeqID <= lastSeq[quote.Symbol] {
			p.logger.Debug("Skipping duplicate tick", zap.String("symbol", quote.Symbol), zap.Int64("seq_id", quote.SeqID))
			continue
		}

		window, ok := windows[quote.Symbol]
		if !ok {
			window = candles.NewWindow(p.cfg.Candles.BucketMs, p.cfg.Candles.Capacity)
			// Cold-start history so charts are populated from the first tick
			window.Seed(rnd, instrument.BasePrice(quote.Symbol), quote.LastUpdate)
			windows[quote.Symbol] = window
		}
		window.Apply(quote.LastUpdate, quote.Price, quote.Volume)

		windowJSON, err := json.Marshal(window.Candles())
		if err != nil {
			p.logger.Error("Candle Marshal Error", zap.String("symbol", quote.Symbol), zap.Error(err))
			continue
		}

		// Atomic quote + candles + publish in a single pipeline
		pipe := p.rdb.Pipeline()
		pipe.Set(ctx, quoteKeyPrefix+quote.Symbol, payload, keyTTL)
		pipe.Set(ctx, candlesKeyPrefix+quote.Symbol, windowJSON, keyTTL)
		pipe.Publish(ctx, fmt.Sprintf("%s%s", priceChanPrefix, quote.Symbol), payload)

		if _, err := pipe.Exec(ctx); err != nil {
			p.logger.Error("Redis Pipeline Error", zap.Error(err), zap.String("symbol", quote.Symbol))
		} else {
			p.logger.Debug("Processed", zap.String("symbol", quote.Symbol), zap.Int("worker_id", id))
			lastSeq[quote.Symbol] = quote.SeqID
		}
	}
}

func getWorkerID(key []byte, numWorkers int) int {
	h := fnv.New32a()
	h.Write(key)
	return int(h.Sum32()) % numWorkers
}
