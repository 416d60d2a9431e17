package gateway

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// maxFramePayload is the read limit applied to each connection.
const maxFramePayload = 1 << 20

// handleWebSocket upgrades /ws/run and serves RPC frames until the client
// goes away. Requests are handled concurrently; in-flight runs are cancelled
// when the connection closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxFramePayload)

	client := NewClient(conn, r.RemoteAddr)
	s.clients.add(client)

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
		s.clients.remove(client)
		client.Close()
	}()

	err = client.SendEvent(EventHello, Hello{
		Protocol:  ProtocolVersion,
		Version:   s.version,
		ConnID:    client.ConnID,
		Namespace: s.dash.Namespace(),
		Methods:   s.Methods(),
		Events:    []string{EventHello, EventRunDelta, EventRunEvent},
	}, s.eventSeq.Add(1))
	if err != nil {
		s.log.Warn().Err(err).Str("connId", client.ConnID).Msg("sending hello")
		return
	}

	s.readLoop(ctx, client, &inflight)
}

// readLoop processes incoming frames from a connected client.
func (s *Server) readLoop(ctx context.Context, client *Client, inflight *sync.WaitGroup) {
	for {
		frame, err := client.ReadFrame()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug().Str("connId", client.ConnID).Msg("client closed connection")
			} else {
				s.log.Warn().Err(err).Str("connId", client.ConnID).Msg("read error")
			}
			return
		}

		if frame.Type != FrameTypeRequest {
			s.log.Debug().Str("type", frame.Type).Msg("ignoring non-request frame")
			continue
		}

		inflight.Add(1)
		go func() {
			defer inflight.Done()
			s.dispatch(ctx, client, frame)
		}()
	}
}

// dispatch routes a request frame to the appropriate handler.
func (s *Server) dispatch(ctx context.Context, client *Client, frame Frame) {
	handler, ok := s.handlers[frame.Method]
	if !ok {
		client.RespondError(frame.ID, ErrorShape{
			Code:    "method_not_found",
			Message: "unknown method: " + frame.Method,
		})
		return
	}

	handler(&RequestContext{
		Client:  client,
		Frame:   frame,
		Server:  s,
		Context: ctx,
	})
}
