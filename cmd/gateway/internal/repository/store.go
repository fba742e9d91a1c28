package repository

import (
	"context"

	"github.com/Muhsin-Gun/aurora/pkg/models"
)

type PriceStore interface {
	GetSnapshots(ctx context.Context, symbols []string) ([]string, error)
	GetQuote(ctx context.Context, symbol string) (models.Quote, error)
	GetCandles(ctx context.Context, symbol string) ([]models.Candle, error)
	SubscribeToFeed(ctx context.Context, symbol string) error
	UnsubscribeFromFeed(ctx context.Context, symbol string) error
	RunPubSub(ctx context.Context, onMessage func(symbol string, payload string))
	Close() error
}
