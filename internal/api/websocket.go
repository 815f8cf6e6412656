package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/versefinder/core/refparse"
	"github.com/FocuswithJustin/versefinder/internal/content"
	"github.com/FocuswithJustin/versefinder/internal/logging"
	"github.com/FocuswithJustin/versefinder/internal/server"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second

	wsSendBuffer  = 64
	wsQueueLength = 4
	wsMaxMessage  = 64 * 1024
)

// WSMessage is sent to WebSocket clients. A query produces one "parsed"
// message, one "result" per reference in completion order, then
// "complete". Failures are reported as "error".
type WSMessage struct {
	Type       string            `json:"type"` // "parsed", "result", "complete", "error"
	Query      string            `json:"query,omitempty"`
	BatchID    string            `json:"batch_id,omitempty"`
	References []ReferenceInfo   `json:"references,omitempty"`
	Result     *content.Resolved `json:"result,omitempty"`
	Total      int               `json:"total,omitempty"`
	Failed     int               `json:"failed,omitempty"`
	Message    string            `json:"message,omitempty"`
	Timestamp  string            `json:"timestamp"`
}

// wsClient is one WebSocket connection. Writes go through send so only
// writePump touches the connection's writer.
type wsClient struct {
	s       *Server
	conn    *websocket.Conn
	ip      string
	send    chan []byte
	queries chan string
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.ErrorContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	c := &wsClient{
		s:       s,
		conn:    conn,
		ip:      getClientIP(r, s.proxies),
		send:    make(chan []byte, wsSendBuffer),
		queries: make(chan string, wsQueueLength),
	}
	logging.WebSocketEvent(ctx, "client_connected", "client_ip", c.ip)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.writePump(ctx)
	}()
	go func() {
		defer wg.Done()
		c.work(ctx)
	}()

	// The request context ends when this handler returns, so the read
	// loop runs here rather than in its own goroutine.
	c.readPump(ctx)
	cancel()
	wg.Wait()
	conn.Close()

	logging.WebSocketEvent(r.Context(), "client_disconnected", "client_ip", c.ip)
}

// checkOrigin applies the configured origin list. An empty list allows
// every origin, matching the CORS middleware.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if server.OriginAllowed(origin, s.cfg.AllowedOrigins) {
		return true
	}
	logging.SecurityEvent("websocket_origin_rejected", "api", "origin", origin)
	return false
}

// readPump reads queries until the connection fails or closes.
func (c *wsClient) readPump(ctx context.Context) {
	c.conn.SetReadLimit(wsMaxMessage)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.ErrorContext(ctx, "websocket unexpected close", "error", err)
			}
			return
		}

		var req QueryRequest
		if err := json.Unmarshal(data, &req); err != nil {
			c.sendError(ctx, "Message must be JSON: {\"query\": \"...\"}")
			continue
		}
		if c.s.limiter != nil && !c.s.limiter.Allow(c.ip) {
			logging.SecurityEvent("rate_limit_exceeded", "websocket", "client_ip", c.ip)
			c.sendError(ctx, "Rate limit exceeded")
			continue
		}

		select {
		case c.queries <- req.Query:
		default:
			c.sendError(ctx, "Too many queries in progress")
		}
	}
}

// work answers queries one at a time, in arrival order.
func (c *wsClient) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case q := <-c.queries:
			c.lookup(ctx, q)
		}
	}
}

func (c *wsClient) lookup(ctx context.Context, query string) {
	query = server.SanitizeUserInput(query)
	if query == "" {
		c.sendError(ctx, "A query is required")
		return
	}
	if limit := c.s.cfg.MaxQueryBytes; limit > 0 && len(query) > limit {
		c.sendError(ctx, "Query is too long")
		return
	}

	opts := c.s.parser.ParseOptions()
	opts.Sink = logging.DiagnosticSink(ctx)
	res := refparse.Parse(query, c.s.parser.Registry(), opts)

	batchID := uuid.NewString()
	parsed := WSMessage{
		Type:       "parsed",
		Query:      res.Query,
		BatchID:    batchID,
		References: referenceInfos(res.References),
		Total:      len(res.References),
	}
	if res.Empty() {
		parsed.Message = noReferencesMessage
	}
	if !c.sendMessage(ctx, parsed) {
		return
	}

	if c.s.resolver == nil {
		c.sendError(ctx, "No content provider is configured")
		return
	}

	failed := 0
	for item := range c.s.resolver.Stream(ctx, res.References) {
		if item.Err != nil {
			failed++
		}
		if !c.sendMessage(ctx, WSMessage{Type: "result", BatchID: batchID, Result: &item}) {
			return
		}
	}
	if ctx.Err() != nil {
		return
	}

	c.sendMessage(ctx, WSMessage{
		Type:    "complete",
		BatchID: batchID,
		Total:   len(res.References),
		Failed:  failed,
	})
	logging.WebSocketEvent(ctx, "lookup_complete",
		"batch_id", batchID,
		"references", len(res.References),
		"failed", failed)
}

func (c *wsClient) sendError(ctx context.Context, message string) {
	c.sendMessage(ctx, WSMessage{Type: "error", Message: message})
}

// sendMessage queues msg for writing, blocking while the client is slow.
// It returns false once the connection is done.
func (c *wsClient) sendMessage(ctx context.Context, msg WSMessage) bool {
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		logging.ErrorContext(ctx, "failed to marshal websocket message", "error", err)
		return false
	}

	select {
	case c.send <- data:
		return true
	case <-ctx.Done():
		return false
	}
}

// writePump writes queued messages and keeps the connection alive with
// pings.
func (c *wsClient) writePump(ctx context.Context) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				// Closing unblocks readPump, which ends the connection
				c.conn.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.conn.Close()
				return
			}
		}
	}
}
