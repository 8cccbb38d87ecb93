package model

import "time"

// UserID uniquely identifies a registered user
type UserID string

// User is a stored account with aggregate race stats
type User struct {
	ID           UserID    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"password_hash,omitempty"` // bcrypt hash; empty for users created without credentials
	AvgWPM       float64   `json:"avg_wpm"`
	BestWPM      float64   `json:"best_wpm"`
	RacesCount   int       `json:"races_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// RecordRace folds one race into the aggregate stats
func (u *User) RecordRace(wpm float64) {
	count := float64(u.RacesCount)
	u.AvgWPM = (u.AvgWPM*count + wpm) / (count + 1)
	u.BestWPM = max(u.BestWPM, wpm)
	u.RacesCount++
}
