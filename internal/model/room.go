package model

import "time"

// RoomID is the human-typeable identifier for a race room
type RoomID string

// RoomKind distinguishes shared rooms from single-player bot rooms
type RoomKind string

const (
	RoomKindHuman RoomKind = "human"
	RoomKindBot   RoomKind = "bot"
)

// RoomStatus represents the race state of a room
type RoomStatus string

const (
	RoomStatusWaiting   RoomStatus = "waiting"
	RoomStatusCountdown RoomStatus = "countdown"
	RoomStatusRunning   RoomStatus = "running"
	RoomStatusFinished  RoomStatus = "finished"
)

// NoPassageText is the passage used when the catalogue is empty
const NoPassageText = "No passage available."

var roomStatusOrder = map[RoomStatus]int{
	RoomStatusWaiting:   0,
	RoomStatusCountdown: 1,
	RoomStatusRunning:   2,
	RoomStatusFinished:  3,
}

// CanTransitionTo reports whether moving from s to next keeps status monotonic
func (s RoomStatus) CanTransitionTo(next RoomStatus) bool {
	from, ok := roomStatusOrder[s]
	if !ok {
		return false
	}
	to, ok := roomStatusOrder[next]
	if !ok {
		return false
	}
	return to > from
}

// Room is one race's shared state: passage, players, status, timing
type Room struct {
	ID          RoomID
	Kind        RoomKind
	PassageID   PassageID
	PassageText string // snapshot taken at creation
	HostKey     PlayerKey
	Status      RoomStatus
	StartedAt   *time.Time
	WinnerKey   PlayerKey
	Players     map[PlayerKey]*Player

	CreatedAt    time.Time
	LastActivity time.Time
}

// GetPlayer returns the player with the given key, or nil
func (r *Room) GetPlayer(key PlayerKey) *Player {
	return r.Players[key]
}

// UnfinishedCount returns the number of players still racing
func (r *Room) UnfinishedCount() int {
	n := 0
	for _, p := range r.Players {
		if !p.Finished {
			n++
		}
	}
	return n
}

// HumanCount returns the number of non-bot players
func (r *Room) HumanCount() int {
	n := 0
	for _, p := range r.Players {
		if !p.IsBot {
			n++
		}
	}
	return n
}

// NextHost picks the successor host: the earliest-joined human. Bots never host, and a
// room with no humans left is deleted rather than handed over.
func (r *Room) NextHost() *Player {
	var best *Player
	for _, p := range r.Players {
		if p.IsBot {
			continue
		}
		if best == nil || p.JoinSeq < best.JoinSeq {
			best = p
		}
	}
	return best
}

// NextJoinSeq returns a join sequence number greater than every current player's
func (r *Room) NextJoinSeq() int {
	next := 0
	for _, p := range r.Players {
		if p.JoinSeq >= next {
			next = p.JoinSeq + 1
		}
	}
	return next
}

// LeaderboardEntry is the broadcast-safe projection of a Player
type LeaderboardEntry struct {
	ConnectionID PlayerKey  `json:"connection_id"`
	UserID       UserID     `json:"user_id,omitempty"`
	Username     string     `json:"username"`
	Progress     float64    `json:"progress"`
	WPM          float64    `json:"wpm"`
	Accuracy     float64    `json:"accuracy"`
	Finished     bool       `json:"finished"`
	FinishTime   *time.Time `json:"finish_time"`
}

// EntryFromPlayer projects a player into a leaderboard entry
func EntryFromPlayer(p *Player) LeaderboardEntry {
	return LeaderboardEntry{
		ConnectionID: p.Key,
		UserID:       p.UserID,
		Username:     p.DisplayName,
		Progress:     p.Progress,
		WPM:          p.WPM,
		Accuracy:     p.Accuracy,
		Finished:     p.Finished,
		FinishTime:   p.FinishedAt,
	}
}

// RoomSnapshot is a read-only copy of a room for acknowledgements and REST reads
type RoomSnapshot struct {
	ID          RoomID             `json:"id"`
	Kind        RoomKind           `json:"kind"`
	PassageID   PassageID          `json:"passage_id,omitempty"`
	PassageText string             `json:"passage_text"`
	HostKey     PlayerKey          `json:"host_connection_id"`
	Status      RoomStatus         `json:"status"`
	StartedAt   *time.Time         `json:"started_at"`
	WinnerKey   PlayerKey          `json:"winner_connection_id,omitempty"`
	Players     []LeaderboardEntry `json:"players"`
}
