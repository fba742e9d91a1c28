package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/protocol"
	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/repository"
	"github.com/Muhsin-Gun/aurora/pkg/models"
)

type ClientInterface interface {
	ID() string
	SendJSON(v interface{})
	SendBytes(b []byte)
	Close()
}

// BookWatcher is the order-book feed's subscription surface. The hub
// ref-counts clients per symbol and keeps the feed watching exactly the
// symbols someone is looking at.
type BookWatcher interface {
	Watch(symbol string)
	Unwatch(symbol string)
}

// Hub routes market streams to websocket clients. Quote subscriptions are
// many-per-client; the candle/book pair follows a single active symbol per
// client, mirroring one chart focus per terminal.
type Hub struct {
	subscribers map[string]map[ClientInterface]bool
	clientSubs  map[ClientInterface]map[string]bool

	active   map[ClientInterface]string
	bookSubs map[string]map[ClientInterface]bool

	store    repository.PriceStore
	books    BookWatcher
	logger   *zap.Logger
	mu       sync.RWMutex
	refCount map[string]int
}

func NewHub(store repository.PriceStore, books BookWatcher, logger *zap.Logger) *Hub {
	h := &Hub{
		subscribers: make(map[string]map[ClientInterface]bool),
		clientSubs:  make(map[ClientInterface]map[string]bool),
		active:      make(map[ClientInterface]string),
		bookSubs:    make(map[string]map[ClientInterface]bool),
		store:       store,
		books:       books,
		logger:      logger,
		refCount:    make(map[string]int),
	}

	go h.store.RunPubSub(context.Background(), h.BroadcastTick)

	return h
}

func (h *Hub) HandleCommand(client ClientInterface, req protocol.WSRequest, validTickers map[string]bool) {
	switch req.Action {
	case protocol.ActionSubscribe:
		h.handleSubscribe(client, req, validTickers)
	case protocol.ActionUnsubscribe:
		h.handleUnsubscribe(client, req)
	case protocol.ActionUnsubscribeAll:
		h.handleUnsubscribeAll(client, req)
	case protocol.ActionSetActive:
		h.handleSetActive(client, req, validTickers)
	default:
		h.sendError(client, req.ID, "Unknown action: "+req.Action)
	}
}

func (h *Hub) handleSubscribe(client ClientInterface, req protocol.WSRequest, validTickers map[string]bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var valid []string
	for _, s := range req.Payload.Symbols {
		if validTickers[s] {
			// Idempotency: Ignore if already subscribed
			if h.clientSubs[client] != nil && h.clientSubs[client][s] {
				continue
			}
			valid = append(valid, s)
		}
	}

	if len(valid) == 0 {
		h.sendError(client, req.ID, "No valid/new symbols provided")
		return
	}

	if h.clientSubs[client] == nil {
		h.clientSubs[client] = make(map[string]bool)
	}

	for _, sym := range valid {
		h.clientSubs[client][sym] = true
		if h.subscribers[sym] == nil {
			h.subscribers[sym] = make(map[ClientInterface]bool)
		}
		h.subscribers[sym][client] = true

		// Manage upstream subscription (ref counting)
		h.refCount[sym]++
		if h.refCount[sym] == 1 {
			if err := h.store.SubscribeToFeed(context.Background(), sym); err != nil {
				h.logger.Error("Failed to subscribe upstream", zap.String("symbol", sym), zap.Error(err))
			}
		}
	}

	h.sendAck(client, req.ID, "success", fmt.Sprintf("Subscribed to %v", valid))

	// Send snapshots (async to avoid blocking the lock)
	go func(targets []string) {
		snapshots, err := h.store.GetSnapshots(context.Background(), targets)
		if err != nil {
			return
		}
		for _, snap := range snapshots {
			client.SendJSON(protocol.WSResponse{Type: protocol.TypeTick, Data: json.RawMessage(snap)})
		}
	}(valid)
}

func (h *Hub) handleUnsubscribe(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var removed []string
	if subs, ok := h.clientSubs[client]; ok {
		for _, sym := range req.Payload.Symbols {
			if subs[sym] {
				delete(subs, sym)
				delete(h.subscribers[sym], client)
				removed = append(removed, sym)
				h.decreaseRefCount(sym)
			}
		}
	}

	if len(removed) > 0 {
		h.sendAck(client, req.ID, "success", fmt.Sprintf("Unsubscribed from %v", removed))
	} else {
		h.sendError(client, req.ID, fmt.Sprintf("Not subscribed to: %v", req.Payload.Symbols))
	}
}

func (h *Hub) handleUnsubscribeAll(client ClientInterface, req protocol.WSRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.clientSubs[client]; ok {
		for sym := range subs {
			delete(h.subscribers[sym], client)
			h.decreaseRefCount(sym)
		}
		// Clear the map but keep the client registered
		h.clientSubs[client] = make(map[string]bool)
	}
	h.dropActiveLocked(client)
	h.sendAck(client, req.ID, "success", "Unsubscribed from all symbols")
}

// handleSetActive retargets the client's candle and book streams to one
// symbol. Quote subscriptions and quote state are untouched: chart focus is
// independent of the watchlist.
func (h *Hub) handleSetActive(client ClientInterface, req protocol.WSRequest, validTickers map[string]bool) {
	sym := req.Payload.Symbol
	if !validTickers[sym] {
		h.sendError(client, req.ID, "Unknown symbol: "+sym)
		return
	}

	h.mu.Lock()
	prev := h.active[client]
	if prev != sym {
		h.dropActiveLocked(client)
		h.active[client] = sym
		if h.bookSubs[sym] == nil {
			h.bookSubs[sym] = make(map[ClientInterface]bool)
			h.books.Watch(sym)
		}
		h.bookSubs[sym][client] = true
	}
	h.mu.Unlock()

	h.sendAck(client, req.ID, "success", fmt.Sprintf("Active symbol set to %s", sym))

	// Candle snapshot so the chart is populated before the next live tick
	go func() {
		window, err := h.store.GetCandles(context.Background(), sym)
		if err != nil {
			h.logger.Debug("No candle window yet", zap.String("symbol", sym), zap.Error(err))
			return
		}
		data, err := json.Marshal(window)
		if err != nil {
			return
		}
		client.SendJSON(protocol.WSResponse{Type: protocol.TypeCandles, Symbol: sym, Data: data})
	}()
}

func (h *Hub) Unregister(client ClientInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if subs, ok := h.clientSubs[client]; ok {
		for sym := range subs {
			delete(h.subscribers[sym], client)
			h.decreaseRefCount(sym)
		}
		delete(h.clientSubs, client)
	}
	h.dropActiveLocked(client)
	client.Close()
}

// BroadcastTick fans a raw tick payload out to every quote subscriber.
func (h *Hub) BroadcastTick(symbol string, payload string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.subscribers[symbol]
	if !ok {
		return
	}
	frame, err := json.Marshal(protocol.WSResponse{
		Type:   protocol.TypeTick,
		Symbol: symbol,
		Data:   json.RawMessage(payload),
	})
	if err != nil {
		return
	}
	for client := range clients {
		client.SendBytes(frame)
	}
}

// BroadcastBook pushes a fresh ladder to every client focused on the symbol.
func (h *Hub) BroadcastBook(symbol string, book models.OrderBook) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.bookSubs[symbol]
	if !ok {
		return
	}
	data, err := json.Marshal(book)
	if err != nil {
		return
	}
	frame, err := json.Marshal(protocol.WSResponse{
		Type:   protocol.TypeBook,
		Symbol: symbol,
		Data:   data,
	})
	if err != nil {
		return
	}
	for client := range clients {
		client.SendBytes(frame)
	}
}

func (h *Hub) decreaseRefCount(symbol string) {
	h.refCount[symbol]--
	if h.refCount[symbol] <= 0 {
		if err := h.store.UnsubscribeFromFeed(context.Background(), symbol); err != nil {
			h.logger.Error("Failed to unsubscribe upstream", zap.String("symbol", symbol), zap.Error(err))
		}
		delete(h.refCount, symbol)
		delete(h.subscribers, symbol)
	}
}

// dropActiveLocked detaches the client's candle/book focus. Caller holds mu.
func (h *Hub) dropActiveLocked(client ClientInterface) {
	sym, ok := h.active[client]
	if !ok {
		return
	}
	delete(h.active, client)
	if subs, ok := h.bookSubs[sym]; ok {
		delete(subs, client)
		if len(subs) == 0 {
			delete(h.bookSubs, sym)
			h.books.Unwatch(sym)
		}
	}
}

func (h *Hub) sendAck(c ClientInterface, id, status, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeAck, ID: id, Status: status, Message: msg})
}

func (h *Hub) sendError(c ClientInterface, id, msg string) {
	c.SendJSON(protocol.WSResponse{Type: protocol.TypeError, ID: id, Message: msg})
}
