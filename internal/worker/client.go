package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrNotConnected is returned by Do when the client has no open connection.
var ErrNotConnected = errors.New("not connected")

// Client talks to a Server. Requests may be issued concurrently; responses
// are matched to them by id.
type Client struct {
	url string
	log *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	pending   map[string]chan Response

	writeMu sync.Mutex
	seq     atomic.Uint64
}

// NewClient creates a client for the websocket at url.
func NewClient(url string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		url:     url,
		log:     log,
		pending: make(map[string]chan Response),
	}
}

// Connect dials the server.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return fmt.Errorf("already connected")
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.url, err)
	}

	c.conn = conn
	c.connected = true
	go c.readLoop(conn)
	return nil
}

// Disconnect closes the connection. Requests still waiting fail with
// ErrNotConnected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		c.writeMu.Lock()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		conn.Close()
	}
	c.drop(conn)
}

// IsConnected returns connection status.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Do sends req and waits for its response. An empty id is filled in.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	if req.ID == "" {
		req.ID = "req-" + strconv.FormatUint(c.seq.Add(1), 10)
	}

	ch := make(chan Response, 1)
	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return Response{}, ErrNotConnected
	}
	if _, dup := c.pending[req.ID]; dup {
		c.mu.Unlock()
		return Response{}, fmt.Errorf("request %q already in flight", req.ID)
	}
	c.pending[req.ID] = ch
	conn := c.conn
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	err := conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		return Response{}, fmt.Errorf("sending request %s: %w", req.ID, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return Response{}, ErrNotConnected
		}
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.drop(conn)
	for {
		var resp Response
		if err := conn.ReadJSON(&resp); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("read failed", zap.Error(err))
			}
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()

		if !ok {
			c.log.Warn("response for unknown request", zap.String("id", resp.ID))
			continue
		}
		ch <- resp
	}
}

// drop resets the connection state once, failing every pending request.
func (c *Client) drop(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if conn == nil || c.conn != conn {
		return
	}
	c.conn = nil
	c.connected = false
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}
