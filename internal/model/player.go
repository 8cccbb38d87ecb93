package model

import "time"

// PlayerKey identifies a player within a room. It is the owning connection's id.
type PlayerKey string

// Identity is the verified identity of a connection. UserID is empty for anonymous connections.
type Identity struct {
	UserID   UserID
	Username string
}

// Anonymous returns the identity used when token verification fails or no token is presented
func Anonymous() Identity {
	return Identity{}
}

// IsAnonymous reports whether the identity carries no user id
func (i Identity) IsAnonymous() bool {
	return i.UserID == ""
}

// Player is one participant's live race state within a room
type Player struct {
	Key         PlayerKey
	UserID      UserID // empty for anonymous players and bots
	DisplayName string
	IsBot       bool

	Progress float64 // 0-100
	WPM      float64
	Accuracy float64 // 0-100

	Finished   bool
	FinishedAt *time.Time
	Persisted  bool

	// JoinSeq orders players by arrival; used for deterministic host promotion and ranking ties
	JoinSeq int
}

// NewPlayer returns a player with the default starting stats
func NewPlayer(key PlayerKey, userID UserID, displayName string) *Player {
	return &Player{
		Key:         key,
		UserID:      userID,
		DisplayName: displayName,
		Accuracy:    100,
	}
}

// Rejoin refreshes the identity of a player joining again on the same connection.
// Race stats restart only while the player has not finished; a finished player keeps
// its result, finish time and persisted flag.
func (p *Player) Rejoin(userID UserID, displayName string) {
	p.UserID = userID
	p.DisplayName = displayName
	if p.Finished {
		return
	}
	p.Progress = 0
	p.WPM = 0
	p.Accuracy = 100
}

// IsPerfect reports a completed passage typed with full accuracy
func (p *Player) IsPerfect() bool {
	return p.Progress >= 100 && p.Accuracy == 100
}

// MarkFinished flips the player to finished. Returns false if the player had already finished.
func (p *Player) MarkFinished(at time.Time) bool {
	if p.Finished {
		return false
	}
	p.Finished = true
	p.FinishedAt = &at
	return true
}
