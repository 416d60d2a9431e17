package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyeahso/agentdash/internal/logging"
)

// writeWait bounds a single frame write to a slow browser.
const writeWait = 10 * time.Second

// Client is one WebSocket connection to /ws/run. Writes are serialized
// because run requests are answered from concurrent goroutines.
type Client struct {
	ConnID      string
	Remote      string
	Socket      *websocket.Conn
	ConnectedAt time.Time

	wmu    sync.Mutex
	closed bool
}

// NewClient wraps an upgraded connection under a fresh connection ID.
func NewClient(conn *websocket.Conn, remote string) *Client {
	return &Client{
		ConnID:      uuid.NewString(),
		Remote:      remote,
		Socket:      conn,
		ConnectedAt: time.Now(),
	}
}

// write puts one frame on the wire. A frame that failed to build is
// reported without touching the socket.
func (c *Client) write(f Frame, buildErr error) error {
	if buildErr != nil {
		return buildErr
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	c.Socket.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Socket.WriteJSON(f)
}

// SendEvent pushes a run.* or hello event.
func (c *Client) SendEvent(event string, payload any, seq int64) error {
	return c.write(NewEvent(event, payload, seq))
}

// Respond answers request reqID with payload.
func (c *Client) Respond(reqID string, payload any) error {
	return c.write(NewResponse(reqID, payload))
}

// RespondError answers request reqID with an error shape.
func (c *Client) RespondError(reqID string, shape ErrorShape) error {
	return c.write(NewErrorResponse(reqID, shape), nil)
}

// ReadFrame blocks for the next frame sent by the browser.
func (c *Client) ReadFrame() (Frame, error) {
	var f Frame
	err := c.Socket.ReadJSON(&f)
	return f, err
}

// Close marks the client closed and closes the socket once.
func (c *Client) Close() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.Socket == nil {
		return nil
	}
	return c.Socket.Close()
}

// clientSet tracks open connections so shutdown can close them and the
// health RPC can count them.
type clientSet struct {
	mu   sync.Mutex
	open map[string]*Client
	log  *logging.Logger
}

func newClientSet(log *logging.Logger) *clientSet {
	return &clientSet{open: map[string]*Client{}, log: log}
}

func (s *clientSet) add(c *Client) {
	s.mu.Lock()
	s.open[c.ConnID] = c
	s.mu.Unlock()
	s.log.Info().Str("connId", c.ConnID).Str("remote", c.Remote).Msg("client connected")
}

func (s *clientSet) remove(c *Client) {
	s.mu.Lock()
	delete(s.open, c.ConnID)
	s.mu.Unlock()
	s.log.Info().
		Str("connId", c.ConnID).
		Dur("connected", time.Since(c.ConnectedAt)).
		Msg("client disconnected")
}

func (s *clientSet) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.open)
}

// closeAll closes and forgets every open connection.
func (s *clientSet) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.open {
		c.Close()
		delete(s.open, id)
	}
}
