package model

import "time"

// PassageID uniquely identifies a passage
type PassageID string

// Passage defaults
const (
	DefaultPassageSource   = "user-submission"
	DefaultPassageUniverse = "general"
)

// Passage is a text players race to type
type Passage struct {
	ID        PassageID `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Universe  string    `json:"universe"`
	Length    int       `json:"length"`
	CreatedAt time.Time `json:"created_at"`
}
