package model

import "time"

// RaceResultID uniquely identifies a stored race result
type RaceResultID string

// RaceResult is one finished race by one player
type RaceResult struct {
	ID         RaceResultID `json:"id"`
	UserID     UserID       `json:"user_id,omitempty"`
	PassageID  PassageID    `json:"passage_id,omitempty"`
	WPM        float64      `json:"wpm"`
	Accuracy   float64      `json:"accuracy"`
	CharsTyped int          `json:"chars_typed"`
	DurationMs int64        `json:"duration_ms"`
	CreatedAt  time.Time    `json:"created_at"`
}
