package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/devricklin/echo-relay/internal/service"
)

const wsWriteTimeout = 5 * time.Second

// handleEvents streams hub events to a websocket client. The first frame is
// a state snapshot so the page can render before anything happens.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Error("Failed to accept WebSocket", "error", err)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			s.log.Debug("Failed to close websocket", "error", closeErr)
		}
	}()

	events, unsubscribe := s.events.Subscribe()
	defer unsubscribe()

	// Client frames are ignored; CloseRead cancels ctx when the peer goes away
	ctx := ws.CloseRead(r.Context())

	snap, err := s.dashboard.Snapshot(ctx)
	if err != nil {
		s.log.Warn("Failed to build snapshot", "error", err)
	} else if err := s.writeEvent(ctx, ws, service.Event{Type: service.EventState, Data: snap, At: time.Now()}); err != nil {
		return
	}

	s.log.Debug("Event stream opened", "subscribers", s.events.SubscriberCount())
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.writeEvent(ctx, ws, ev); err != nil {
				if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
					s.log.Debug("WebSocket write error", "error", err)
				}
				return
			}
		}
	}
}

func (s *Server) writeEvent(ctx context.Context, ws *websocket.Conn, ev service.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, data)
}
