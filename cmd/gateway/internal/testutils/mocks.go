package testutils

import (
	"context"
	"sync"

	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/protocol"
	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/repository"
	"github.com/Muhsin-Gun/aurora/pkg/models"
)

// MockClient simulates a connected websocket client
type MockClient struct {
	IDVal    string
	Messages []protocol.WSResponse // Stores decoded JSON messages
	RawBytes []string              // Stores raw bytes
	Closed   bool
	Mu       sync.Mutex
}

func NewMockClient(id string) *MockClient {
	return &MockClient{IDVal: id, Messages: make([]protocol.WSResponse, 0)}
}

func (m *MockClient) ID() string { return m.IDVal }

func (m *MockClient) Close() {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Closed = true
}

func (m *MockClient) SendJSON(v interface{}) {
	m.Mu.Lock()
	defer m.Mu.Unlock()

	// If it's a response, store it
	if resp, ok := v.(protocol.WSResponse); ok {
		m.Messages = append(m.Messages, resp)
	}
}

func (m *MockClient) SendBytes(b []byte) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.RawBytes = append(m.RawBytes, string(b))
}

func (m *MockClient) LastMsgType() string {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	if len(m.Messages) == 0 {
		return ""
	}
	return m.Messages[len(m.Messages)-1].Type
}

// MockPriceStore simulates Redis
type MockPriceStore struct {
	SubscribedChannels map[string]int // symbol -> count
	Quotes             map[string]models.Quote
	Candles            map[string][]models.Candle
	Mu                 sync.Mutex
}

func NewMockStore() *MockPriceStore {
	return &MockPriceStore{
		SubscribedChannels: make(map[string]int),
		Quotes:             make(map[string]models.Quote),
		Candles:            make(map[string][]models.Candle),
	}
}

func (m *MockPriceStore) GetSnapshots(ctx context.Context, symbols []string) ([]string, error) {
	return []string{`{"symbol":"EURUSD","price":1.08}`}, nil
}

func (m *MockPriceStore) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	q, ok := m.Quotes[symbol]
	if !ok {
		return models.Quote{}, repository.ErrNotFound
	}
	return q, nil
}

func (m *MockPriceStore) GetCandles(ctx context.Context, symbol string) ([]models.Candle, error) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	window, ok := m.Candles[symbol]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return window, nil
}

func (m *MockPriceStore) SubscribeToFeed(ctx context.Context, symbol string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.SubscribedChannels[symbol]++
	return nil
}

func (m *MockPriceStore) UnsubscribeFromFeed(ctx context.Context, symbol string) error {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.SubscribedChannels[symbol]--
	if m.SubscribedChannels[symbol] <= 0 {
		delete(m.SubscribedChannels, symbol)
	}
	return nil
}

func (m *MockPriceStore) RunPubSub(ctx context.Context, onMessage func(channel string, payload string)) {
	// No-op for unit tests
}

func (m *MockPriceStore) Close() error { return nil }

// MockBookWatcher records the feed's watch/unwatch traffic
type MockBookWatcher struct {
	Watched map[string]int
	Mu      sync.Mutex
}

func NewMockBookWatcher() *MockBookWatcher {
	return &MockBookWatcher{Watched: make(map[string]int)}
}

func (m *MockBookWatcher) Watch(symbol string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Watched[symbol]++
}

func (m *MockBookWatcher) Unwatch(symbol string) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Watched[symbol]--
	if m.Watched[symbol] <= 0 {
		delete(m.Watched, symbol)
	}
}
