package ws

import (
	"encoding/json"
	"time"

	"github.com/mcoot/typerace/internal/model"
)

// Inbound is a client message. Ack is an opaque id echoed on the acknowledgement.
type Inbound struct {
	Event model.EventType `json:"event"`
	Ack   string          `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is a server message: a broadcast, a direct event or an acknowledgement
type Outbound struct {
	Event model.EventType `json:"event"`
	Ack   string          `json:"ack,omitempty"`
	Data  any             `json:"data,omitempty"`
}

// AckData is the body of an acknowledgement
type AckData struct {
	OK      bool                `json:"ok"`
	Error   string              `json:"error,omitempty"`
	RoomID  model.RoomID        `json:"roomId,omitempty"`
	Room    *model.RoomSnapshot `json:"room,omitempty"`
	StartAt *time.Time          `json:"startAt,omitempty"`
}

// ConnectedData is sent once when a connection is accepted
type ConnectedData struct {
	ConnectionID model.PlayerKey `json:"connection_id"`
	UserID       model.UserID    `json:"user_id,omitempty"`
	Username     string          `json:"username,omitempty"`
}

// Client payloads

type createPayload struct {
	Universe string `json:"universe"`
	Username string `json:"username"`
}

// joinPayload carries no user id: user ids come only from verified tokens
type joinPayload struct {
	RoomID   model.RoomID `json:"roomId"`
	Username string       `json:"username"`
}

type createBotPayload struct {
	Username string `json:"username"`
	BotCount int    `json:"botCount"`
}

type startPayload struct {
	RoomID       model.RoomID `json:"roomId"`
	CountdownSec *int         `json:"countdownSec"`
}

type progressPayload struct {
	RoomID   model.RoomID `json:"roomId"`
	Progress float64      `json:"progress"`
	WPM      float64      `json:"wpm"`
	Accuracy *float64     `json:"accuracy"`
}

type roomPayload struct {
	RoomID model.RoomID `json:"roomId"`
}
