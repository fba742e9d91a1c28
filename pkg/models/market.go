package models

// Quote represents the current state of one tracked instrument.
// Change and ChangePercent are always derived from the same price that
// produced them; a published Quote never carries stale cross-field state.
type Quote struct {
	Symbol        string  `json:"symbol"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Volume        float64 `json:"volume"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	LastUpdate    int64   `json:"last_update"` // unix milli
	SeqID         int64   `json:"seq_id"`      // monotonic counter per symbol
}

// Candle is one OHLCV aggregate over a fixed time bucket.
type Candle struct {
	Time   int64   `json:"time"` // bucket start, unix milli
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Side marks which half of the book a level belongs to.
type Side string

const (
	Bid Side = "BID"
	Ask Side = "ASK"
)

// BookLevel is a single synthetic price level. Levels carry no identity
// across ticks; the whole ladder is replaced on every regeneration.
type BookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
	Side  Side    `json:"side"`
}

// OrderBook is a full snapshot of both ladders for one symbol.
type OrderBook struct {
	Symbol    string      `json:"symbol"`
	Asks      []BookLevel `json:"asks"`
	Bids      []BookLevel `json:"bids"`
	Timestamp int64       `json:"timestamp"` // unix milli
}
