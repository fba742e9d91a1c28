package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/Muhsin-Gun/aurora/pkg/models"
)

const (
	quoteKeyPrefix   = "quote:"
	candlesKeyPrefix = "candles:"
	channelPrefix    = "prices."
)

// ErrNotFound is returned when a symbol has no materialized state yet.
var ErrNotFound = errors.New("symbol not found in store")

// Compile-time check to ensure RedisStore implements PriceStore
var _ PriceStore = (*RedisStore)(nil)

type RedisStore struct {
	client *redis.Client
	pubsub *redis.PubSub
	mu     sync.Mutex // Protects pubsub subscribe/unsubscribe
}

func NewRedisStore(client *redis.Client) *RedisStore {
	ps := client.Subscribe(context.Background())
	return &RedisStore{
		client: client,
		pubsub: ps,
	}
}

// GetSnapshots fetches the latest tick payloads for a list of symbols (MGET)
func (r *RedisStore) GetSnapshots(ctx context.Context, symbols []string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, nil
	}

	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = quoteKeyPrefix + sym
	}

	results, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var snapshots []string
	for _, val := range results {
		if payload, ok := val.(string); ok && payload != "" {
			snapshots = append(snapshots, payload)
		}
	}
	return snapshots, nil
}

// GetQuote fetches and decodes the latest quote for one symbol
func (r *RedisStore) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	payload, err := r.client.Get(ctx, quoteKeyPrefix+symbol).Result()
	if errors.Is(err, redis.Nil) {
		return models.Quote{}, ErrNotFound
	}
	if err != nil {
		return models.Quote{}, err
	}

	var q models.Quote
	if err := json.Unmarshal([]byte(payload), &q); err != nil {
		return models.Quote{}, err
	}
	return q, nil
}

// GetCandles fetches the materialized candle window for one symbol
func (r *RedisStore) GetCandles(ctx context.Context, symbol string) ([]models.Candle, error) {
	payload, err := r.client.Get(ctx, candlesKeyPrefix+symbol).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var window []models.Candle
	if err := json.Unmarshal([]byte(payload), &window); err != nil {
		return nil, err
	}
	return window, nil
}

// SubscribeToFeed tells Redis we want to listen to this symbol's channel
func (r *RedisStore) SubscribeToFeed(ctx context.Context, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pubsub.Subscribe(ctx, channelPrefix+symbol)
}

// UnsubscribeFromFeed tells Redis to stop sending messages for this symbol
func (r *RedisStore) UnsubscribeFromFeed(ctx context.Context, symbol string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pubsub.Unsubscribe(ctx, channelPrefix+symbol)
}

// RunPubSub is a blocking loop that reads messages from Redis and triggers
// the callback with the symbol and raw tick payload
func (r *RedisStore) RunPubSub(ctx context.Context, onMessage func(symbol string, payload string)) {
	ch := r.pubsub.Channel()

	for msg := range ch {
		symbol, ok := strings.CutPrefix(msg.Channel, channelPrefix)
		if !ok {
			continue
		}
		onMessage(symbol, msg.Payload)
	}
}

func (r *RedisStore) Close() error {
	if err := r.pubsub.Close(); err != nil {
		return err
	}
	return r.client.Close()
}
