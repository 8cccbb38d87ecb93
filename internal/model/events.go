package model

import "time"

// EventType names a message exchanged over a connection
type EventType string

// Client-originated events
const (
	EventRoomCreate    EventType = "room:create"
	EventRoomJoin      EventType = "room:join"
	EventRoomCreateBot EventType = "room:createBotRoom"
	EventRoomLeave     EventType = "room:leave"
	EventRaceStart     EventType = "race:start"
	EventRaceProgress  EventType = "race:progress"
	EventRaceFinish    EventType = "race:finish"
)

// Server-originated events
const (
	EventConnected        EventType = "connected"
	EventAck              EventType = "ack"
	EventRoomState        EventType = "room:state"
	EventRoomPlayerJoined EventType = "room:playerJoined"
	EventRoomPlayerLeft   EventType = "room:playerLeft"
	EventRoomNewHost      EventType = "room:newHost"
	EventRoomClosed       EventType = "room:closed"
	EventRaceCountdown    EventType = "race:countdown"
	EventRaceStarted      EventType = "race:started"
	EventRaceLeaderboard  EventType = "race:leaderboard"
	EventRaceFinished     EventType = "race:finished"
)

// RoomStatePayload carries a full room snapshot
type RoomStatePayload struct {
	Room RoomSnapshot `json:"room"`
}

// PlayerJoinedPayload is broadcast when a player enters a room
type PlayerJoinedPayload struct {
	Player  LeaderboardEntry   `json:"player"`
	Players []LeaderboardEntry `json:"players"`
}

// PlayerLeftPayload is broadcast when a player leaves or disconnects
type PlayerLeftPayload struct {
	ConnectionID PlayerKey          `json:"connection_id"`
	Players      []LeaderboardEntry `json:"players"`
}

// NewHostPayload is broadcast after host promotion
type NewHostPayload struct {
	HostConnectionID PlayerKey `json:"host_connection_id"`
}

// RoomClosedPayload is broadcast when the server closes a room
type RoomClosedPayload struct {
	RoomID RoomID `json:"room_id"`
	Reason string `json:"reason"`
}

// CountdownPayload is broadcast when the host starts the countdown
type CountdownPayload struct {
	StartAt      time.Time `json:"start_at"`
	CountdownSec int       `json:"countdown_sec"`
}

// RaceStartedPayload is broadcast when the race begins
type RaceStartedPayload struct {
	StartedAt   time.Time `json:"started_at"`
	PassageText string    `json:"passage_text"`
}

// LeaderboardPayload is broadcast after every race mutation
type LeaderboardPayload struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// RaceFinishedPayload is broadcast once when the last player finishes
type RaceFinishedPayload struct {
	FinalLeaderboard []LeaderboardEntry `json:"final_leaderboard"`
	Winner           *LeaderboardEntry  `json:"winner"`
}

// RoomFinished summarises a completed race for downstream consumers
type RoomFinished struct {
	RoomID      RoomID             `json:"room_id"`
	PassageID   PassageID          `json:"passage_id,omitempty"`
	Winner      PlayerKey          `json:"winner_connection_id"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	StartedAt   *time.Time         `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
}
