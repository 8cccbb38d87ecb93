package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

func newRaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "race",
		Short: "Race result and live race commands",
	}

	cmd.AddCommand(newRaceRecordCmd())
	cmd.AddCommand(newRaceWatchCmd())

	return cmd
}

func newRaceRecordCmd() *cobra.Command {
	var (
		userID, passageID string
		wpm, accuracy     float64
		chars             int
		duration          time.Duration
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a finished race",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"user_id":     userID,
				"passage_id":  passageID,
				"wpm":         wpm,
				"accuracy":    accuracy,
				"chars_typed": chars,
				"duration_ms": duration.Milliseconds(),
			}
			var result RaceResult

			if err := client.Post("/api/v1/races", req, &result); err != nil {
				return err
			}

			NewOutput(cfg.Output, cmd.OutOrStdout()).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "User id")
	cmd.Flags().StringVar(&passageID, "passage", "", "Passage id")
	cmd.Flags().Float64Var(&wpm, "wpm", 0, "Words per minute (required)")
	cmd.Flags().Float64Var(&accuracy, "accuracy", 100, "Accuracy percentage")
	cmd.Flags().IntVar(&chars, "chars", 0, "Characters typed")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Race duration (e.g. 42s)")
	_ = cmd.MarkFlagRequired("wpm")

	return cmd
}

func newRaceWatchCmd() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "watch <room-id>",
		Short: "Join a live room and stream its events",
		Long: `Join a room over the WebSocket and print every event it broadcasts.

Events include:
  - room:playerJoined / room:playerLeft: membership changed
  - room:newHost: host left and another player took over
  - race:countdown / race:started: the race is starting
  - race:leaderboard: standings after every update
  - race:finished: final standings and winner

The command exits when the race finishes or the room closes. Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return watchRoom(ctx, args[0], username, NewOutput(cfg.Output, cmd.OutOrStdout()))
		},
	}

	cmd.Flags().StringVar(&username, "name", "", "Display name for anonymous connections")

	return cmd
}

// wireMessage is a server message on the WebSocket
type wireMessage struct {
	Event string          `json:"event"`
	Ack   string          `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ackData struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

const joinAck = "join"

func watchRoom(ctx context.Context, roomID, username string, out *Output) error {
	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.WebSocketURL(), header)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Unblock the read loop on cancellation
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	join := map[string]any{
		"event": "room:join",
		"ack":   joinAck,
		"data":  map[string]string{"roomId": roomID, "username": username},
	}
	if err := conn.WriteJSON(join); err != nil {
		return fmt.Errorf("join failed: %w", err)
	}

	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				out.PrintMessage("Disconnected")
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}

		if msg.Event == "ack" && msg.Ack == joinAck {
			var ack ackData
			if err := json.Unmarshal(msg.Data, &ack); err != nil {
				return fmt.Errorf("malformed ack: %w", err)
			}
			if !ack.OK {
				return fmt.Errorf("could not join room %s: %s", roomID, ack.Error)
			}
			out.PrintMessage(fmt.Sprintf("Joined room %s", roomID))
			continue
		}

		out.PrintEvent(time.Now(), msg.Event, msg.Data)
		if msg.Event == "race:finished" || msg.Event == "room:closed" {
			return nil
		}
	}
}
