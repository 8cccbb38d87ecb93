package response

import (
	"time"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/auth"
	"github.com/mcoot/typerace/internal/services/results"
)

// User represents a user in API responses. The password hash is never exposed.
type User struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email,omitempty"`
	AvgWPM     float64   `json:"avg_wpm"`
	BestWPM    float64   `json:"best_wpm"`
	RacesCount int       `json:"races_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserFromModel converts a model.User to a response User
func UserFromModel(u *model.User) User {
	return User{
		ID:         string(u.ID),
		Username:   u.Username,
		Email:      u.Email,
		AvgWPM:     u.AvgWPM,
		BestWPM:    u.BestWPM,
		RacesCount: u.RacesCount,
		CreatedAt:  u.CreatedAt,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		User:  UserFromModel(&s.User),
		Token: s.Token,
	}
}

// Passage represents a passage in API responses
type Passage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Universe  string    `json:"universe"`
	Length    int       `json:"length"`
	CreatedAt time.Time `json:"created_at"`
}

// PassageFromModel converts a model.Passage
func PassageFromModel(p *model.Passage) Passage {
	return Passage{
		ID:        string(p.ID),
		Text:      p.Text,
		Source:    p.Source,
		Universe:  p.Universe,
		Length:    p.Length,
		CreatedAt: p.CreatedAt,
	}
}

// PassagePage is one page of the passage catalogue
type PassagePage struct {
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Data  []Passage `json:"data"`
}

// RaceResult represents a stored race result
type RaceResult struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	PassageID   string    `json:"passage_id,omitempty"`
	PassageText string    `json:"passage_text,omitempty"`
	WPM         float64   `json:"wpm"`
	Accuracy    float64   `json:"accuracy"`
	CharsTyped  int       `json:"chars_typed"`
	DurationMs  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// RaceResultFromModel converts a model.RaceResult
func RaceResultFromModel(r *model.RaceResult) RaceResult {
	return RaceResult{
		ID:         string(r.ID),
		UserID:     string(r.UserID),
		PassageID:  string(r.PassageID),
		WPM:        r.WPM,
		Accuracy:   r.Accuracy,
		CharsTyped: r.CharsTyped,
		DurationMs: r.DurationMs,
		CreatedAt:  r.CreatedAt,
	}
}

// RaceResultsFromViews converts results with resolved passage text
func RaceResultsFromViews(views []results.ResultView) []RaceResult {
	out := make([]RaceResult, 0, len(views))
	for _, v := range views {
		r := RaceResultFromModel(v.RaceResult)
		r.PassageText = v.PassageText
		out = append(out, r)
	}
	return out
}

// Health is the health check response
type Health struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
