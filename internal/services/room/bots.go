package room

import (
	"fmt"
	"log/slog"

	"github.com/mcoot/typerace/internal/model"
)

// Bot stat ranges, drawn once per bot
const (
	botMinWPM        = 20
	botWPMRange      = 81 // 20-100 inclusive
	botMinAccuracy   = 95
	botAccuracyRange = 6 // 95-100 inclusive
	botMaxStep       = 5.0
)

// addBots seats count bots in the room. Caller holds lr.mu.
func (r *Registry) addBots(lr *liveRoom, count int) []model.PlayerKey {
	room := lr.room
	keys := make([]model.PlayerKey, 0, count)
	for i := 1; i <= count; i++ {
		key := model.PlayerKey(fmt.Sprintf("bot-%s-%d", room.ID, i))
		bot := model.NewPlayer(key, "", fmt.Sprintf("Bot %d", i))
		bot.IsBot = true
		bot.WPM = float64(botMinWPM + r.random.Intn(botWPMRange))
		bot.Accuracy = float64(botMinAccuracy + r.random.Intn(botAccuracyRange))
		bot.JoinSeq = room.NextJoinSeq()
		room.Players[key] = bot
		keys = append(keys, key)
	}
	return keys
}

// runBot advances one bot every tick until it finishes or the room is cancelled.
// The goroutine was counted in r.wg when the room was registered.
func (r *Registry) runBot(lr *liveRoom, key model.PlayerKey) {
	defer r.wg.Done()

	ticker := r.clock.NewTicker(r.cfg.BotTick)
	defer ticker.Stop()

	for {
		select {
		case <-lr.ctx.Done():
			return
		case <-ticker.Chan():
			if done := r.stepBot(lr, key); done {
				r.logger.Debug("bot stopped",
					slog.String("room_id", string(lr.room.ID)),
					slog.String("bot", string(key)),
				)
				return
			}
		}
	}
}

// stepBot adds one random increment of progress through the shared progress path.
// Returns true once the bot has nothing left to do.
func (r *Registry) stepBot(lr *liveRoom, key model.PlayerKey) bool {
	lr.mu.Lock()
	if lr.closed || lr.room.Status != model.RoomStatusRunning {
		lr.mu.Unlock()
		return true
	}
	bot := lr.room.GetPlayer(key)
	if bot == nil || bot.Finished {
		lr.mu.Unlock()
		return true
	}

	fx := r.applyProgress(lr, bot, ProgressUpdate{
		Progress: bot.Progress + r.random.Float64()*botMaxStep,
		WPM:      bot.WPM,
		Accuracy: bot.Accuracy,
	})
	done := bot.Finished
	lr.mu.Unlock()

	r.settle(r.ctx, lr, fx)
	return done
}
