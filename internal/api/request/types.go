package request

// RegisterRequest is the request body for registering a user
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// LoginRequest is the request body for logging in
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateUserRequest is the request body for creating a user without credentials
type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// CreatePassageRequest is the request body for adding a passage
type CreatePassageRequest struct {
	Text     string `json:"text"`
	Source   string `json:"source,omitempty"`
	Universe string `json:"universe,omitempty"`
}

// RecordRaceRequest is the request body for recording a race result
type RecordRaceRequest struct {
	UserID     string  `json:"user_id,omitempty"`
	PassageID  string  `json:"passage_id,omitempty"`
	WPM        float64 `json:"wpm"`
	Accuracy   float64 `json:"accuracy"`
	CharsTyped int     `json:"chars_typed,omitempty"`
	DurationMs int64   `json:"duration_ms"`
}
