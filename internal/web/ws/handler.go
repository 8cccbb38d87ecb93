package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/typerace/internal/middleware"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/room"
)

// Acknowledgement error kinds
const (
	ErrKindRoomNotFound       = "room_not_found"
	ErrKindRaceFinished       = "race_finished"
	ErrKindRaceAlreadyStarted = "race_already_started"
	ErrKindCreateFailed       = "create_failed"
	ErrKindJoinFailed         = "join_failed"
	ErrKindInvalidRequest     = "invalid_request"
	ErrKindInternal           = "internal_error"
)

var errInvalidRequest = errors.New("invalid request")

// defaultAccuracy applies when a progress event omits accuracy
const defaultAccuracy = 100

// RoomService is the room registry as seen by a connection
type RoomService interface {
	Create(ctx context.Context, key model.PlayerKey, identity model.Identity, req room.CreateRequest) (model.RoomSnapshot, error)
	CreateBot(ctx context.Context, key model.PlayerKey, identity model.Identity, username string, botCount int) (model.RoomSnapshot, error)
	Join(ctx context.Context, roomID model.RoomID, key model.PlayerKey, identity model.Identity, username string) (model.RoomSnapshot, error)
	Leave(ctx context.Context, roomID model.RoomID, key model.PlayerKey) error
	Disconnect(ctx context.Context, key model.PlayerKey)
	StartRace(ctx context.Context, roomID model.RoomID, countdownSec *int) (time.Time, error)
	UpdateProgress(ctx context.Context, roomID model.RoomID, key model.PlayerKey, update room.ProgressUpdate) error
	Finish(ctx context.Context, roomID model.RoomID, key model.PlayerKey) error
}

// TokenVerifier resolves a bearer token to an identity, falling back to anonymous
type TokenVerifier interface {
	VerifyToken(token string) model.Identity
}

// Config holds WebSocket endpoint configuration
type Config struct {
	// AllowedOrigins lists origins permitted to connect; empty or "*" allows any
	AllowedOrigins []string
}

// Handler upgrades HTTP requests and dispatches connection events to rooms
type Handler struct {
	hub      *Hub
	rooms    RoomService
	verifier TokenVerifier
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a WebSocket Handler
func NewHandler(hub *Hub, rooms RoomService, verifier TokenVerifier, cfg Config, logger *slog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		rooms:    rooms,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(cfg.AllowedOrigins),
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// ServeHTTP verifies the caller's token, upgrades the connection and starts its pumps.
// A missing or invalid token yields an anonymous connection rather than a rejection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity := h.verifier.VerifyToken(middleware.Token(r))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := newClient(model.PlayerKey(uuid.NewString()), identity, conn)
	h.hub.Register(client)
	h.hub.Send(client.key, Outbound{
		Event: model.EventConnected,
		Data: ConnectedData{
			ConnectionID: client.key,
			UserID:       identity.UserID,
			Username:     identity.Username,
		},
	})

	h.logger.Info("websocket connected",
		slog.String("connection_id", string(client.key)),
		slog.Bool("authenticated", !identity.IsAnonymous()),
	)

	go client.writePump()
	go h.readPump(client)
}

// readPump reads client messages until the connection fails, then cleans up every room
// the connection belonged to
func (h *Handler) readPump(c *Client) {
	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		h.rooms.Disconnect(ctx, c.key)
		cancel()
		h.hub.Unregister(c)
		_ = c.conn.Close()
		h.logger.Info("websocket disconnected", slog.String("connection_id", string(c.key)))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error",
					slog.String("connection_id", string(c.key)),
					slog.Any("error", err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var in Inbound
		if err := json.Unmarshal(data, &in); err != nil {
			h.logger.Warn("malformed websocket message",
				slog.String("connection_id", string(c.key)),
				slog.Any("error", err))
			continue
		}
		h.dispatch(ctx, c, in)
	}
}

// dispatch routes one event. Create, join and start events are acknowledged;
// progress, finish and leave fail silently apart from logging.
func (h *Handler) dispatch(ctx context.Context, c *Client, in Inbound) {
	switch in.Event {
	case model.EventRoomCreate:
		var p createPayload
		if !h.decode(c, in, &p) {
			return
		}
		snap, err := h.rooms.Create(ctx, c.key, c.identity, room.CreateRequest{Universe: p.Universe, Username: p.Username})
		if err != nil {
			h.ackError(c, in, err)
			return
		}
		h.ack(c, in, AckData{OK: true, RoomID: snap.ID, Room: &snap})

	case model.EventRoomJoin:
		var p joinPayload
		if !h.decode(c, in, &p) {
			return
		}
		snap, err := h.rooms.Join(ctx, p.RoomID, c.key, c.identity, p.Username)
		if err != nil {
			h.ackError(c, in, err)
			return
		}
		h.ack(c, in, AckData{OK: true, RoomID: snap.ID, Room: &snap})

	case model.EventRoomCreateBot:
		var p createBotPayload
		if !h.decode(c, in, &p) {
			return
		}
		snap, err := h.rooms.CreateBot(ctx, c.key, c.identity, p.Username, p.BotCount)
		if err != nil {
			h.ackError(c, in, err)
			return
		}
		h.ack(c, in, AckData{OK: true, RoomID: snap.ID, Room: &snap})

	case model.EventRaceStart:
		var p startPayload
		if !h.decode(c, in, &p) {
			return
		}
		startAt, err := h.rooms.StartRace(ctx, p.RoomID, p.CountdownSec)
		if err != nil {
			h.ackError(c, in, err)
			return
		}
		h.ack(c, in, AckData{OK: true, StartAt: &startAt})

	case model.EventRaceProgress:
		var p progressPayload
		if !h.decode(c, in, &p) {
			return
		}
		accuracy := float64(defaultAccuracy)
		if p.Accuracy != nil {
			accuracy = *p.Accuracy
		}
		err := h.rooms.UpdateProgress(ctx, p.RoomID, c.key, room.ProgressUpdate{
			Progress: p.Progress,
			WPM:      p.WPM,
			Accuracy: accuracy,
		})
		h.logSilent(c, in.Event, p.RoomID, err)

	case model.EventRaceFinish:
		var p roomPayload
		if !h.decode(c, in, &p) {
			return
		}
		h.logSilent(c, in.Event, p.RoomID, h.rooms.Finish(ctx, p.RoomID, c.key))

	case model.EventRoomLeave:
		var p roomPayload
		if !h.decode(c, in, &p) {
			return
		}
		h.logSilent(c, in.Event, p.RoomID, h.rooms.Leave(ctx, p.RoomID, c.key))

	default:
		h.logger.Warn("unknown websocket event",
			slog.String("connection_id", string(c.key)),
			slog.String("event", string(in.Event)))
		h.ackError(c, in, errInvalidRequest)
	}
}

// decode unmarshals the event payload, acknowledging invalid_request on failure
func (h *Handler) decode(c *Client, in Inbound, v any) bool {
	if len(in.Data) == 0 || string(in.Data) == "null" {
		return true
	}
	if err := json.Unmarshal(in.Data, v); err != nil {
		h.logger.Warn("invalid websocket payload",
			slog.String("connection_id", string(c.key)),
			slog.String("event", string(in.Event)),
			slog.Any("error", err))
		h.ackError(c, in, errInvalidRequest)
		return false
	}
	return true
}

func (h *Handler) ack(c *Client, in Inbound, data AckData) {
	if in.Ack == "" {
		return
	}
	h.hub.Send(c.key, Outbound{Event: model.EventAck, Ack: in.Ack, Data: data})
}

func (h *Handler) ackError(c *Client, in Inbound, err error) {
	kind := ackErrorCode(in.Event, err)
	if kind == ErrKindInternal || kind == ErrKindCreateFailed || kind == ErrKindJoinFailed {
		h.logger.Error("websocket event failed",
			slog.String("connection_id", string(c.key)),
			slog.String("event", string(in.Event)),
			slog.Any("error", err))
	}
	h.ack(c, in, AckData{OK: false, Error: kind})
}

func (h *Handler) logSilent(c *Client, event model.EventType, roomID model.RoomID, err error) {
	if err == nil {
		return
	}
	h.logger.Warn("websocket event ignored",
		slog.String("connection_id", string(c.key)),
		slog.String("event", string(event)),
		slog.String("room_id", string(roomID)),
		slog.Any("error", err))
}

// ackErrorCode maps an error to its wire kind. Unclassified failures fall back to the
// event's own failure kind.
func ackErrorCode(event model.EventType, err error) string {
	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		return ErrKindRoomNotFound
	case errors.Is(err, model.ErrRaceFinished):
		return ErrKindRaceFinished
	case errors.Is(err, model.ErrRaceAlreadyStarted):
		return ErrKindRaceAlreadyStarted
	case errors.Is(err, model.ErrCreateFailed):
		return ErrKindCreateFailed
	case errors.Is(err, model.ErrJoinFailed):
		return ErrKindJoinFailed
	case errors.Is(err, errInvalidRequest):
		return ErrKindInvalidRequest
	}

	switch event {
	case model.EventRoomCreate, model.EventRoomCreateBot:
		return ErrKindCreateFailed
	case model.EventRoomJoin:
		return ErrKindJoinFailed
	default:
		return ErrKindInternal
	}
}
