package gateway

import (
	"encoding/json"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"

	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/hub"
	"github.com/Muhsin-Gun/aurora/cmd/gateway/internal/protocol"
)

const maxMessageSize = 512 * 1024

// ClientAdapter bridges one raw websocket connection to the hub. Outbound
// frames go through a bounded queue; anything that cannot be queued is
// dropped so one slow reader never stalls a broadcast. After Close, sends
// become no-ops instead of panics, because frames can still arrive from
// snapshot goroutines racing the disconnect.
type ClientAdapter struct {
	conn         net.Conn
	hub          *hub.Hub
	logger       *zap.Logger
	validTickers map[string]bool

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	writeWait  time.Duration
	pongWait   time.Duration
	pingPeriod time.Duration
}

func NewClient(conn net.Conn, h *hub.Hub, logger *zap.Logger, validTickers map[string]bool) *ClientAdapter {
	return &ClientAdapter{
		conn:         conn,
		hub:          h,
		logger:       logger,
		validTickers: validTickers,
		send:         make(chan []byte, 256),
		done:         make(chan struct{}),
		writeWait:    5 * time.Second,
		pongWait:     60 * time.Second,
		pingPeriod:   50 * time.Second,
	}
}

func (c *ClientAdapter) Start() {
	go c.writePump()
	go c.readPump()
}

func (c *ClientAdapter) ID() string { return c.conn.RemoteAddr().String() }

// Close is idempotent. The send channel is never closed; writePump drains
// out via the done signal and closes the connection itself.
func (c *ClientAdapter) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *ClientAdapter) SendJSON(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Frame marshal failed", zap.Error(err))
		return
	}
	c.SendBytes(b)
}

func (c *ClientAdapter) SendBytes(b []byte) {
	select {
	case <-c.done:
		// Late frame after disconnect; drop it
	case c.send <- b:
	default:
		// Queue full: drop rather than stall the broadcast path
	}
}

func (c *ClientAdapter) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	ctrl := wsutil.ControlFrameHandler(c.conn, ws.StateServerSide)
	rd := wsutil.Reader{
		Source:         c.conn,
		State:          ws.StateServerSide,
		OnIntermediate: ctrl,
	}

	c.conn.SetReadDeadline(time.Now().Add(c.pongWait))

	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			return
		}

		if hdr.OpCode.IsControl() {
			// ControlFrameHandler answers pings and surfaces close as an error
			if err := ctrl(hdr, &rd); err != nil {
				return
			}
			if hdr.OpCode == ws.OpPong {
				c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
			}
			continue
		}

		payload, err := io.ReadAll(io.LimitReader(&rd, maxMessageSize+1))
		if err != nil {
			return
		}
		if len(payload) > maxMessageSize {
			c.logger.Warn("Dropping client: oversized message", zap.Int("size", len(payload)))
			return
		}
		if hdr.OpCode != ws.OpText {
			continue
		}

		c.dispatch(payload)
	}
}

// dispatch parses one inbound command, normalizes its symbols, and hands it
// to the hub.
func (c *ClientAdapter) dispatch(payload []byte) {
	var req protocol.WSRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		c.SendJSON(protocol.WSResponse{Type: protocol.TypeError, Message: "Invalid JSON"})
		return
	}

	for i, s := range req.Payload.Symbols {
		req.Payload.Symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	req.Payload.Symbol = strings.ToUpper(strings.TrimSpace(req.Payload.Symbol))

	c.hub.HandleCommand(c, req, c.validTickers)
}

func (c *ClientAdapter) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			c.conn.Write(ws.CompiledClose)
			return

		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := wsutil.WriteServerText(c.conn, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := wsutil.WriteServerMessage(c.conn, ws.OpPing, nil); err != nil {
				return
			}
		}
	}
}
