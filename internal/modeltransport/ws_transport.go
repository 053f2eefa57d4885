package modeltransport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// wireRequest and wireResponse frame one Request/Response pair with a
// correlation ID so concurrent calls on the same connection can be
// dispatched back to the right waiter, the way the teacher's WSClient
// dispatches incoming Messages by MessageType to registered handlers -
// generalized here to a one-shot reply channel keyed by request ID instead
// of a fan-out event handler, since a model call is request/response, not
// publish/subscribe.
type wireRequest struct {
	ID      string  `json:"id"`
	Request Request `json:"request"`
}

type wireResponse struct {
	ID       string   `json:"id"`
	Response Response `json:"response"`
	Error    string   `json:"error,omitempty"`
}

// WSTransport is the default ModelTransport: a single WebSocket connection
// to a model-serving endpoint, with requests multiplexed over it by
// correlation ID and bounded retry on transport-level failures.
type WSTransport struct {
	serverURL  string
	apiKey     string
	logger     *log.Logger
	maxRetries int

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan wireResponse
	nextID  uint64
	connMu  sync.Mutex
}

// NewWSTransport creates a transport pointed at a model-serving WebSocket
// endpoint. maxRetries bounds how many times Call sends one request on the
// existing connection (at least once; there is no reconnect); it is
// independent of the driver's own decision-parsing retry budget.
// apiKey, when non-empty, is sent as a bearer token on the initial
// handshake - it is §6's `OPENROUTER_API_KEY`, read from the environment
// by the caller and threaded through here rather than read directly by
// this package, since a transport shouldn't know where its credential
// comes from.
func NewWSTransport(serverURL, apiKey string, logger *log.Logger, maxRetries int) *WSTransport {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &WSTransport{
		serverURL:  serverURL,
		apiKey:     apiKey,
		logger:     logger.WithPrefix("modeltransport"),
		maxRetries: maxRetries,
		pending:    make(map[string]chan wireResponse),
	}
}

// Connect dials the WebSocket endpoint and starts the reader loop. Call
// exactly once before the first Call.
func (t *WSTransport) Connect(ctx context.Context) error {
	u, err := url.Parse(t.serverURL)
	if err != nil {
		return fmt.Errorf("modeltransport: invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		u.Scheme = "ws"
	}

	var header http.Header
	if t.apiKey != "" {
		header = http.Header{"Authorization": []string{"Bearer " + t.apiKey}}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		return fmt.Errorf("modeltransport: dial: %w", err)
	}

	t.connMu.Lock()
	t.conn = conn
	t.connMu.Unlock()

	go t.readLoop(conn)
	return nil
}

func (t *WSTransport) readLoop(conn *websocket.Conn) {
	for {
		var resp wireResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.logger.Error("read loop terminated", "error", err)
			return
		}
		t.mu.Lock()
		ch, ok := t.pending[resp.ID]
		if ok {
			delete(t.pending, resp.ID)
		}
		t.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

// Call sends req and blocks for the matching reply. A failed attempt (no
// connection, a write error, or an explicit error frame) is retried after a
// short backoff, up to maxRetries attempts in all. Call never redials, and
// an attempt whose reply never arrives waits until ctx is done.
func (t *WSTransport) Call(ctx context.Context, req Request) (Response, error) {
	var lastErr error
	for attempt := 0; attempt < t.maxRetries; attempt++ {
		resp, err := t.callOnce(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		t.logger.Warn("model call failed, retrying", "attempt", attempt+1, "error", err)

		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-time.After(backoff(attempt)):
		}
	}
	return Response{}, &ErrTransport{Op: "call", Err: lastErr}
}

func (t *WSTransport) callOnce(ctx context.Context, req Request) (Response, error) {
	t.connMu.Lock()
	conn := t.conn
	t.connMu.Unlock()
	if conn == nil {
		return Response{}, fmt.Errorf("modeltransport: not connected")
	}

	id := t.newID()
	ch := make(chan wireResponse, 1)
	t.mu.Lock()
	t.pending[id] = ch
	t.mu.Unlock()

	if err := conn.WriteJSON(wireRequest{ID: id, Request: req}); err != nil {
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		return Response{}, fmt.Errorf("modeltransport: write: %w", err)
	}

	select {
	case <-ctx.Done():
		t.mu.Lock()
		delete(t.pending, id)
		t.mu.Unlock()
		return Response{}, ctx.Err()
	case wr := <-ch:
		if wr.Error != "" {
			return Response{}, fmt.Errorf("modeltransport: remote error: %s", wr.Error)
		}
		return wr.Response, nil
	}
}

func (t *WSTransport) newID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	return fmt.Sprintf("req-%d", t.nextID)
}

func backoff(attempt int) time.Duration {
	d := time.Duration(attempt+1) * 200 * time.Millisecond
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	return d
}

// Close shuts the underlying connection down.
func (t *WSTransport) Close() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	if t.conn == nil {
		return nil
	}
	_ = t.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return t.conn.Close()
}
