package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/DroopyTersen/mayi-sub006/engine"
	"github.com/DroopyTersen/mayi-sub006/internal/game"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// Client message types.
const (
	MsgCommand     = "command"
	MsgRequestSync = "request_state"
)

// ClientMessage is what a socket sends. Command.PlayerID is ignored; the seat
// comes from the token.
type ClientMessage struct {
	Type      string         `json:"type"`
	RequestID string         `json:"requestId,omitempty"`
	Command   engine.Command `json:"command"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	rm, externalID, ok := s.authorize(w, r)
	if !ok {
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket accept")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	log := s.log.WithField("room", rm.session.RoomID).WithField("player", externalID)
	c := &client{conn: conn, externalID: externalID}
	ctx := r.Context()

	// Attach before the first view so no commit falls between them. Clients
	// order views by revision.
	rm.hub.add(c)
	defer rm.hub.remove(c)
	view, err := rm.session.View(ctx, externalID)
	if err != nil {
		log.WithError(err).Error("initial view")
		return
	}
	if err := c.send(ctx, game.GameEvent{Type: game.EventPrivateSyncState, State: &view}); err != nil {
		return
	}
	log.Debug("socket attached")

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				log.WithError(err).Debug("socket read")
			}
			return
		}
		if err := s.handleMessage(ctx, rm, c, msg); err != nil {
			log.WithError(err).Debug("socket write")
			return
		}
	}
}

func (s *Server) handleMessage(ctx context.Context, rm *room, c *client, msg ClientMessage) error {
	switch msg.Type {
	case MsgRequestSync:
		view, err := rm.session.View(ctx, c.externalID)
		if err != nil {
			return c.send(ctx, errorEvent(msg.RequestID, err))
		}
		return c.send(ctx, game.GameEvent{Type: game.EventPrivateSyncState, State: &view})
	case MsgCommand:
		// The new state reaches this client through the hub broadcast.
		_, err := rm.session.HandleCommand(ctx, c.externalID, msg.Command)
		if err == nil {
			return nil
		}
		if engine.IsRejection(err) {
			return c.send(ctx, game.GameEvent{
				Type: game.EventPrivateCommandRejected,
				Payload: map[string]any{
					"requestId": msg.RequestID,
					"action":    msg.Command.Action,
					"message":   err.Error(),
				},
			})
		}
		return c.send(ctx, errorEvent(msg.RequestID, err))
	}
	return c.send(ctx, game.GameEvent{
		Type:    game.EventError,
		Payload: map[string]any{"requestId": msg.RequestID, "message": "unknown message type " + msg.Type},
	})
}

func errorEvent(requestID string, err error) game.GameEvent {
	return game.GameEvent{Type: game.EventError, Payload: map[string]any{"requestId": requestID, "message": err.Error()}}
}
