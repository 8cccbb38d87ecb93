package room

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/leaderboard"
	"github.com/mcoot/typerace/internal/services/results"
)

// liveRoom is a registered room with its lock and scheduled work
type liveRoom struct {
	mu   sync.Mutex
	room *model.Room

	// closed is set once the room leaves the registry; scheduled callbacks check it
	closed    bool
	ctx       context.Context
	cancel    context.CancelFunc
	countdown clock.Timer
}

func (lr *liveRoom) touch(now time.Time) {
	lr.room.LastActivity = now
}

func (lr *liveRoom) snapshot() model.RoomSnapshot {
	room := lr.room
	return model.RoomSnapshot{
		ID:          room.ID,
		Kind:        room.Kind,
		PassageID:   room.PassageID,
		PassageText: room.PassageText,
		HostKey:     room.HostKey,
		Status:      room.Status,
		StartedAt:   room.StartedAt,
		WinnerKey:   room.WinnerKey,
		Players:     leaderboard.RankRoom(room),
	}
}

// effects is work that must run after the room lock is released
type effects struct {
	persist  []results.Record
	finished *model.RoomFinished
	removed  bool
}

// mutatePlayer runs fn against a player of a running race. Events for rooms that are not
// running are ignored.
func (r *Registry) mutatePlayer(ctx context.Context, roomID model.RoomID, key model.PlayerKey, fn func(*liveRoom, *model.Player) effects) error {
	lr, err := r.lookup(roomID)
	if err != nil {
		return err
	}

	lr.mu.Lock()
	if lr.closed {
		lr.mu.Unlock()
		return model.ErrRoomNotFound
	}
	player := lr.room.GetPlayer(key)
	if player == nil {
		lr.mu.Unlock()
		return model.ErrPlayerNotInRoom
	}
	if lr.room.Status != model.RoomStatusRunning {
		status := lr.room.Status
		lr.mu.Unlock()
		r.logger.Debug("ignoring race event outside running race",
			slog.String("room_id", string(roomID)),
			slog.String("status", string(status)),
		)
		return nil
	}
	fx := fn(lr, player)
	lr.mu.Unlock()

	r.settle(ctx, lr, fx)
	return nil
}

// applyProgress is the shared mutation path for human and bot progress. Caller holds lr.mu.
func (r *Registry) applyProgress(lr *liveRoom, p *model.Player, update ProgressUpdate) effects {
	p.Progress = clamp(update.Progress, 0, 100)
	p.WPM = max(update.WPM, 0)
	p.Accuracy = clamp(update.Accuracy, 0, 100)
	lr.touch(r.clock.Now())

	var fx effects
	if p.Progress >= 100 {
		fx = r.finishPlayer(lr, p)
	}
	r.broadcastLeaderboard(lr)
	fx.finished = r.checkComplete(lr)
	return fx
}

// finishPlayer flips a player to finished at most once and queues persistence for
// authenticated players. Caller holds lr.mu.
func (r *Registry) finishPlayer(lr *liveRoom, p *model.Player) effects {
	now := r.clock.Now()
	lr.touch(now)
	if !p.MarkFinished(now) {
		return effects{}
	}

	var fx effects
	if p.UserID != "" && !p.Persisted {
		p.Persisted = true
		fx.persist = append(fx.persist, recordFor(lr.room, p))
	}
	return fx
}

// checkComplete transitions a running room with no unfinished players to finished.
// Caller holds lr.mu.
func (r *Registry) checkComplete(lr *liveRoom) *model.RoomFinished {
	room := lr.room
	if room.Status != model.RoomStatusRunning || len(room.Players) == 0 || room.UnfinishedCount() > 0 {
		return nil
	}

	room.Status = model.RoomStatusFinished
	ranking := leaderboard.RankRoom(room)
	winner := ranking[0]
	room.WinnerKey = winner.ConnectionID

	r.hub.Broadcast(room.ID, model.EventRaceFinished, model.RaceFinishedPayload{
		FinalLeaderboard: ranking,
		Winner:           &winner,
	})

	// Bots have nothing left to do
	lr.cancel()

	r.logger.Info("race finished",
		slog.String("room_id", string(room.ID)),
		slog.String("winner", string(winner.ConnectionID)),
	)
	return &model.RoomFinished{
		RoomID:      room.ID,
		PassageID:   room.PassageID,
		Winner:      winner.ConnectionID,
		Leaderboard: ranking,
		StartedAt:   room.StartedAt,
		FinishedAt:  r.clock.Now(),
	}
}

// removePlayer drops a player and handles host promotion and room deletion. Caller holds lr.mu.
func (r *Registry) removePlayer(lr *liveRoom, key model.PlayerKey) (effects, error) {
	room := lr.room
	if room.GetPlayer(key) == nil {
		return effects{}, model.ErrPlayerNotInRoom
	}

	delete(room.Players, key)
	lr.touch(r.clock.Now())
	r.hub.Leave(room.ID, key)
	r.hub.Broadcast(room.ID, model.EventRoomPlayerLeft, model.PlayerLeftPayload{
		ConnectionID: key,
		Players:      leaderboard.RankRoom(room),
	})

	var fx effects
	if room.HumanCount() == 0 {
		r.closeRoom(lr, "")
		fx.removed = true
		r.logger.Info("room deleted", slog.String("room_id", string(room.ID)), slog.Int("bots_left", len(room.Players)))
		return fx, nil
	}

	if room.HostKey == key {
		if next := room.NextHost(); next != nil {
			room.HostKey = next.Key
			r.hub.Broadcast(room.ID, model.EventRoomNewHost, model.NewHostPayload{HostConnectionID: next.Key})
		}
	}

	fx.finished = r.checkComplete(lr)
	return fx, nil
}

func (r *Registry) onCountdownElapsed(lr *liveRoom) {
	if current, err := r.lookup(lr.room.ID); err != nil || current != lr {
		return
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.closed || lr.room.Status != model.RoomStatusCountdown {
		return
	}
	r.startRunning(lr)
}

// startRunning enters the running state. Caller holds lr.mu.
func (r *Registry) startRunning(lr *liveRoom) {
	room := lr.room
	if !room.Status.CanTransitionTo(model.RoomStatusRunning) {
		return
	}
	now := r.clock.Now()
	room.Status = model.RoomStatusRunning
	if room.StartedAt == nil {
		room.StartedAt = &now
	}
	lr.touch(now)

	r.hub.Broadcast(room.ID, model.EventRaceStarted, model.RaceStartedPayload{
		StartedAt:   *room.StartedAt,
		PassageText: room.PassageText,
	})
	r.broadcastLeaderboard(lr)
	r.logger.Info("race started", slog.String("room_id", string(room.ID)))
}

// closeRoom marks a room closed and cancels its scheduled work. A non-empty reason is
// announced to members. Caller holds lr.mu.
func (r *Registry) closeRoom(lr *liveRoom, reason string) {
	if reason != "" {
		r.hub.Broadcast(lr.room.ID, model.EventRoomClosed, model.RoomClosedPayload{
			RoomID: lr.room.ID,
			Reason: reason,
		})
	}
	lr.closed = true
	lr.cancel()
	if lr.countdown != nil {
		lr.countdown.Stop()
	}
}

// Caller holds lr.mu.
func (r *Registry) broadcastLeaderboard(lr *liveRoom) {
	r.hub.Broadcast(lr.room.ID, model.EventRaceLeaderboard, model.LeaderboardPayload{
		Leaderboard: leaderboard.RankRoom(lr.room),
	})
}

// settle runs deferred work once the room lock is released
func (r *Registry) settle(ctx context.Context, lr *liveRoom, fx effects) {
	for _, rec := range fx.persist {
		r.persist(ctx, rec)
	}
	if fx.finished != nil {
		if err := r.publisher.PublishRoomFinished(context.WithoutCancel(ctx), fx.finished); err != nil {
			r.logger.Error("failed to publish room finished",
				slog.String("room_id", string(fx.finished.RoomID)),
				slog.Any("error", err),
			)
		}
	}
	if fx.removed {
		r.remove(lr)
	}
}

// persist saves a result. Failures are logged and never retried.
func (r *Registry) persist(ctx context.Context, rec results.Record) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.PersistTimeout)
	defer cancel()

	if _, err := r.recorder.Record(ctx, rec); err != nil {
		r.logger.Error("failed to persist race result",
			slog.String("user_id", string(rec.UserID)),
			slog.Any("error", err),
		)
	}
}

func recordFor(room *model.Room, p *model.Player) results.Record {
	var durationMs int64
	if p.FinishedAt != nil && room.StartedAt != nil {
		durationMs = max(0, p.FinishedAt.Sub(*room.StartedAt).Milliseconds())
	}
	return results.Record{
		UserID:     p.UserID,
		PassageID:  room.PassageID,
		WPM:        p.WPM,
		Accuracy:   p.Accuracy,
		CharsTyped: utf8.RuneCountInString(room.PassageText),
		DurationMs: durationMs,
	}
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
