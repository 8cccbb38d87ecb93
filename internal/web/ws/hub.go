package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mcoot/typerace/internal/model"
)

const opQueueSize = 1024

type opKind int

const (
	opRegister opKind = iota
	opUnregister
	opJoin
	opLeave
	opBroadcast
	opSend
	opClose
	opStats
)

// op is one hub instruction. All instructions flow through a single queue so a
// connection sees broadcasts and acknowledgements in the order they were issued.
type op struct {
	kind    opKind
	client  *Client
	roomID  model.RoomID
	key     model.PlayerKey
	message []byte
	reply   chan hubStats
}

type hubStats struct {
	clients int
	members int
}

// Hub tracks connections and room broadcast groups
type Hub struct {
	logger *slog.Logger

	clients map[model.PlayerKey]*Client
	groups  map[model.RoomID]map[model.PlayerKey]struct{}

	ops  chan op
	done chan struct{}
}

// NewHub creates a Hub. Start it with Run.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With(slog.String("component", "ws-hub")),
		clients: make(map[model.PlayerKey]*Client),
		groups:  make(map[model.RoomID]map[model.PlayerKey]struct{}),
		ops:     make(chan op, opQueueSize),
		done:    make(chan struct{}),
	}
}

// Run processes hub instructions until ctx is cancelled, then disconnects every client
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub started")
	defer close(h.done)

	for {
		select {
		case o := <-h.ops:
			h.apply(o)
		case <-ctx.Done():
			for key, client := range h.clients {
				close(client.send)
				delete(h.clients, key)
			}
			clear(h.groups)
			h.logger.Info("ws hub stopped")
			return
		}
	}
}

func (h *Hub) apply(o op) {
	switch o.kind {
	case opRegister:
		if old, ok := h.clients[o.client.key]; ok {
			close(old.send)
		}
		h.clients[o.client.key] = o.client
		h.logger.Debug("ws client registered",
			slog.String("connection_id", string(o.client.key)),
			slog.Int("total_clients", len(h.clients)))

	case opUnregister:
		if current, ok := h.clients[o.client.key]; ok && current == o.client {
			delete(h.clients, o.client.key)
			close(o.client.send)
			for roomID, members := range h.groups {
				delete(members, o.client.key)
				if len(members) == 0 {
					delete(h.groups, roomID)
				}
			}
			h.logger.Debug("ws client unregistered",
				slog.String("connection_id", string(o.client.key)),
				slog.Int("total_clients", len(h.clients)))
		}

	case opJoin:
		members, ok := h.groups[o.roomID]
		if !ok {
			members = make(map[model.PlayerKey]struct{})
			h.groups[o.roomID] = members
		}
		members[o.key] = struct{}{}

	case opLeave:
		if members, ok := h.groups[o.roomID]; ok {
			delete(members, o.key)
			if len(members) == 0 {
				delete(h.groups, o.roomID)
			}
		}

	case opBroadcast:
		sent, dropped := 0, 0
		for key := range h.groups[o.roomID] {
			if h.deliver(key, o.message) {
				sent++
			} else {
				dropped++
			}
		}
		if dropped > 0 {
			h.logger.Warn("ws broadcast partial failure",
				slog.String("room_id", string(o.roomID)),
				slog.Int("sent", sent),
				slog.Int("dropped", dropped))
		}

	case opSend:
		if !h.deliver(o.key, o.message) {
			h.logger.Warn("ws message dropped", slog.String("connection_id", string(o.key)))
		}

	case opClose:
		delete(h.groups, o.roomID)

	case opStats:
		o.reply <- hubStats{clients: len(h.clients), members: len(h.groups[o.roomID])}
	}
}

// deliver queues a message on a client without blocking the hub
func (h *Hub) deliver(key model.PlayerKey, message []byte) bool {
	client, ok := h.clients[key]
	if !ok {
		return false
	}
	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

func (h *Hub) enqueue(o op) {
	select {
	case h.ops <- o:
	case <-h.done:
	}
}

// Register adds a connection
func (h *Hub) Register(client *Client) {
	h.enqueue(op{kind: opRegister, client: client})
}

// Unregister removes a connection from the hub and every group, closing its send channel
func (h *Hub) Unregister(client *Client) {
	h.enqueue(op{kind: opUnregister, client: client})
}

// Join adds a connection to a room's broadcast group
func (h *Hub) Join(roomID model.RoomID, key model.PlayerKey) {
	h.enqueue(op{kind: opJoin, roomID: roomID, key: key})
}

// Leave removes a connection from a room's broadcast group
func (h *Hub) Leave(roomID model.RoomID, key model.PlayerKey) {
	h.enqueue(op{kind: opLeave, roomID: roomID, key: key})
}

// Broadcast sends an event to every member of a room
func (h *Hub) Broadcast(roomID model.RoomID, event model.EventType, payload any) {
	message, err := json.Marshal(Outbound{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("failed to encode broadcast", slog.String("event", string(event)), slog.Any("error", err))
		return
	}
	h.enqueue(op{kind: opBroadcast, roomID: roomID, message: message})
}

// Send delivers a message to one connection
func (h *Hub) Send(key model.PlayerKey, message Outbound) {
	encoded, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to encode message", slog.String("event", string(message.Event)), slog.Any("error", err))
		return
	}
	h.enqueue(op{kind: opSend, key: key, message: encoded})
}

// Close drops a room's broadcast group
func (h *Hub) Close(roomID model.RoomID) {
	h.enqueue(op{kind: opClose, roomID: roomID})
}

// ClientCount returns the number of registered connections
func (h *Hub) ClientCount() int {
	return h.stats("").clients
}

// GroupSize returns the number of connections in a room's broadcast group
func (h *Hub) GroupSize(roomID model.RoomID) int {
	return h.stats(roomID).members
}

func (h *Hub) stats(roomID model.RoomID) hubStats {
	reply := make(chan hubStats, 1)
	select {
	case h.ops <- op{kind: opStats, roomID: roomID, reply: reply}:
	case <-h.done:
		return hubStats{}
	}
	select {
	case s := <-reply:
		return s
	case <-h.done:
		return hubStats{}
	}
}
