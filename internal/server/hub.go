package server

import (
	"context"
	"sync"
	"time"

	"github.com/DroopyTersen/mayi-sub006/internal/game"
	"github.com/DroopyTersen/mayi-sub006/internal/models"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const writeTimeout = 5 * time.Second

// client is one socket attached to a room.
type client struct {
	conn       *websocket.Conn
	externalID string
}

func (c *client) send(ctx context.Context, evt game.GameEvent) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, evt)
}

// Hub tracks the sockets of one room and implements game.Broadcaster.
type Hub struct {
	roomID uuid.UUID
	mu     sync.Mutex
	conns  map[*client]struct{}
	log    *logrus.Entry
}

func NewHub(roomID uuid.UUID, log *logrus.Entry) *Hub {
	return &Hub{roomID: roomID, conns: make(map[*client]struct{}), log: log}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// Len reports how many sockets are attached.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast sends every client its own view of st. Clients whose write fails
// are dropped.
func (h *Hub) Broadcast(st *models.StoredGameState) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.Unlock()
	if len(targets) == 0 {
		return
	}

	var eg errgroup.Group
	for _, c := range targets {
		eg.Go(func() error {
			view, err := game.BuildView(st, c.externalID)
			if err != nil {
				return err
			}
			if err := c.send(context.Background(), game.GameEvent{Type: game.EventPrivateSyncState, State: &view}); err != nil {
				h.log.WithError(err).Debugf("dropping client %s", c.externalID)
				h.remove(c)
				c.conn.Close(websocket.StatusGoingAway, "write failed")
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		h.log.WithError(err).Errorf("broadcast revision %d", st.Revision)
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll(reason string) {
	h.mu.Lock()
	targets := h.conns
	h.conns = make(map[*client]struct{})
	h.mu.Unlock()
	for c := range targets {
		c.conn.Close(websocket.StatusGoingAway, reason)
	}
}
