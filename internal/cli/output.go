package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

// StreamEvent is one WebSocket event as printed in JSON mode
type StreamEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// PrintEvent outputs one streamed event, as a JSON line or a timestamped summary
func (o *Output) PrintEvent(at time.Time, event string, data json.RawMessage) {
	if o.format == "json" {
		line, _ := json.Marshal(StreamEvent{Time: at, Event: event, Data: data})
		_, _ = fmt.Fprintln(o.w, string(line))
		return
	}

	// Truncate data if it's too long for display
	display := string(data)
	if len(display) > 100 {
		display = display[:100] + "..."
	}
	_, _ = fmt.Fprintf(o.w, "[%s] %s: %s\n", at.Format("2006-01-02 15:04:05"), event, display)
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case User:
		o.printUser(v)
	case AuthResult:
		o.printUser(v.User)
		o.printf("Token: %s\n", v.Token)
	case Passage:
		o.printPassage(v)
	case PassagePage:
		o.printPassagePage(v)
	case RaceResult:
		o.printRaceResult(v)
	case RaceResults:
		o.printRaceResults(v)
	case Room:
		o.printRoom(v)
	case HealthResult:
		o.printf("Status: %s\n", v.Status)
		o.printf("Service: %s\n", v.Service)
		o.printf("Uptime: %s\n", time.Duration(v.UptimeSeconds)*time.Second)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

// User response type (matches API)
type User struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email,omitempty"`
	AvgWPM     float64 `json:"avg_wpm"`
	BestWPM    float64 `json:"best_wpm"`
	RacesCount int     `json:"races_count"`
}

// AuthResult combines user and token
type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Passage response type
type Passage struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Source   string `json:"source"`
	Universe string `json:"universe"`
	Length   int    `json:"length"`
}

// PassagePage response type
type PassagePage struct {
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Data  []Passage `json:"data"`
}

// RaceResult response type
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

// RaceResults is a user's race history
type RaceResults []RaceResult

// RoomPlayer is one leaderboard row of a room
type RoomPlayer struct {
	ConnectionID string  `json:"connection_id"`
	UserID       string  `json:"user_id,omitempty"`
	Username     string  `json:"username"`
	Progress     float64 `json:"progress"`
	WPM          float64 `json:"wpm"`
	Accuracy     float64 `json:"accuracy"`
	Finished     bool    `json:"finished"`
}

// Room response type
type Room struct {
	ID          string       `json:"id"`
	Kind        string       `json:"kind"`
	PassageText string       `json:"passage_text"`
	HostKey     string       `json:"host_connection_id"`
	Status      string       `json:"status"`
	WinnerKey   string       `json:"winner_connection_id,omitempty"`
	Players     []RoomPlayer `json:"players"`
}

// HealthResult response type
type HealthResult struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (o *Output) printUser(u User) {
	o.printf("User: %s (%s)\n", u.Username, u.ID)
	if u.Email != "" {
		o.printf("Email: %s\n", u.Email)
	}
	o.printf("Races: %d\n", u.RacesCount)
	o.printf("Average WPM: %.1f\n", u.AvgWPM)
	o.printf("Best WPM: %.1f\n", u.BestWPM)
}

func (o *Output) printPassage(p Passage) {
	o.printf("Passage: %s\n", p.ID)
	o.printf("Universe: %s\n", p.Universe)
	o.printf("Source: %s\n", p.Source)
	o.printf("Length: %d\n", p.Length)
	o.printf("\n%s\n", p.Text)
}

func (o *Output) printPassagePage(page PassagePage) {
	o.printf("Page %d (limit %d), %d passages:\n", page.Page, page.Limit, len(page.Data))
	for _, p := range page.Data {
		o.printf("  - %s [%s] %s\n", p.ID, p.Universe, truncate(p.Text, 60))
	}
}

func (o *Output) printRaceResult(r RaceResult) {
	o.printf("Result: %s\n", r.ID)
	if r.UserID != "" {
		o.printf("User: %s\n", r.UserID)
	}
	o.printf("WPM: %.1f\n", r.WPM)
	o.printf("Accuracy: %.1f%%\n", r.Accuracy)
	o.printf("Duration: %s\n", time.Duration(r.DurationMs)*time.Millisecond)
}

func (o *Output) printRaceResults(results RaceResults) {
	if len(results) == 0 {
		o.printf("No races recorded\n")
		return
	}
	for _, r := range results {
		o.printf("  %s  %6.1f wpm  %5.1f%%  %s\n",
			r.CreatedAt.Format("2006-01-02 15:04"), r.WPM, r.Accuracy, truncate(r.PassageText, 40))
	}
}

func (o *Output) printRoom(r Room) {
	o.printf("Room: %s (%s)\n", r.ID, r.Kind)
	o.printf("Status: %s\n", r.Status)
	o.printf("Passage: %s\n", truncate(r.PassageText, 60))
	o.printf("Players (%d):\n", len(r.Players))
	for i, p := range r.Players {
		var tags []string
		if p.ConnectionID == r.HostKey {
			tags = append(tags, "host")
		}
		if p.ConnectionID == r.WinnerKey {
			tags = append(tags, "winner")
		}
		if p.Finished {
			tags = append(tags, "finished")
		}
		suffix := ""
		if len(tags) > 0 {
			suffix = " [" + strings.Join(tags, ", ") + "]"
		}
		o.printf("  %d. %s  %5.1f%%  %5.1f wpm  %5.1f%% acc%s\n",
			i+1, p.Username, p.Progress, p.WPM, p.Accuracy, suffix)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
