package protocol

import "encoding/json"

const (
	ActionSubscribe      = "subscribe"
	ActionUnsubscribe    = "unsubscribe"
	ActionUnsubscribeAll = "unsubscribe_all"
	ActionSetActive      = "set_active"
)

// Frame types pushed to clients.
const (
	TypeAck     = "ack"
	TypeError   = "error"
	TypeTick    = "tick"
	TypeBook    = "book"
	TypeCandles = "candles"
)

type WSRequest struct {
	Action  string         `json:"action"`
	Payload RequestPayload `json:"payload"`
	ID      string         `json:"id,omitempty"`
}

type RequestPayload struct {
	Symbols []string `json:"symbols"`
	// Symbol targets set_active, which retargets exactly one instrument
	Symbol string `json:"symbol,omitempty"`
}

type WSResponse struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`     // Matches request ID
	Status  string          `json:"status,omitempty"` // "success", "error"
	Message string          `json:"message,omitempty"`
	Symbol  string          `json:"symbol,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}
