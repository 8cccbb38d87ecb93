package room

import (
	"time"

	"github.com/mcoot/typerace/internal/model"
)

func (s *RegistrySuite) createBotRoom(id string, botCount int) model.RoomSnapshot {
	s.random.QueueString(id)
	snap, err := s.registry.CreateBot(s.ctx, "human", alice, "", botCount)
	s.Require().NoError(err)
	return snap
}

func (s *RegistrySuite) TestCreateBotRoomStartsImmediately() {
	s.random.QueueIntn(0, 0, 80, 5)
	snap := s.createBotRoom("bots01", 2)

	s.Equal(model.RoomID("bots01"), snap.ID)
	s.Equal(model.RoomKindBot, snap.Kind)
	s.Equal(model.RoomStatusRunning, snap.Status)
	s.Require().NotNil(snap.StartedAt)
	s.Equal(base, *snap.StartedAt)
	s.Len(snap.Players, 3)

	bot1 := playerByKey(snap, "bot-bots01-1")
	s.Equal("Bot 1", bot1.Username)
	s.Equal(20.0, bot1.WPM)
	s.Equal(95.0, bot1.Accuracy)
	s.Empty(bot1.UserID)

	bot2 := playerByKey(snap, "bot-bots01-2")
	s.Equal("Bot 2", bot2.Username)
	s.Equal(100.0, bot2.WPM)
	s.Equal(100.0, bot2.Accuracy)

	s.Equal("alice", playerByKey(snap, "human").Username)
	s.Len(s.hub.eventsOf(snap.ID, model.EventRaceStarted), 1)
	s.True(s.hub.isMember(snap.ID, "human"))
}

func (s *RegistrySuite) TestCreateBotRoomNames() {
	s.random.QueueString("room01")
	snap, err := s.registry.CreateBot(s.ctx, "c1", alice, "racer", 1)
	s.Require().NoError(err)
	s.Equal("racer", playerByKey(snap, "c1").Username)

	s.random.QueueString("room02")
	snap, err = s.registry.CreateBot(s.ctx, "c2", anon, "", 1)
	s.Require().NoError(err)
	s.Equal("Player", playerByKey(snap, "c2").Username)
}

func (s *RegistrySuite) TestCreateBotRoomClampsBotCount() {
	snap := s.createBotRoom("few001", 0)
	s.Len(snap.Players, 2)

	snap = s.createBotRoom("many01", 50)
	s.Len(snap.Players, 1+DefaultConfig().MaxBots)
}

func (s *RegistrySuite) TestStepBotAdvancesAndFinishes() {
	snap := s.createBotRoom("step01", 1)
	lr, err := s.registry.lookup(snap.ID)
	s.Require().NoError(err)
	key := model.PlayerKey("bot-step01-1")

	s.random.QueueFloat64(0.5)
	s.False(s.registry.stepBot(lr, key))
	s.InDelta(2.5, playerByKey(s.snapshot(snap.ID), key).Progress, 1e-9)

	s.random.SetFloat64Default(1.0)
	done := false
	for range 30 {
		if done = s.registry.stepBot(lr, key); done {
			break
		}
	}
	s.True(done)

	bot := playerByKey(s.snapshot(snap.ID), key)
	s.Equal(100.0, bot.Progress)
	s.True(bot.Finished)
	s.NotNil(bot.FinishTime)

	// Finished bots stop without mutating
	s.True(s.registry.stepBot(lr, key))
	s.Empty(s.recorder.calls())
}

func (s *RegistrySuite) TestBotRoomScenario() {
	s.random.QueueIntn(10, 5, 60, 1)
	s.random.SetFloat64Default(1.0)
	snap := s.createBotRoom("race01", 2)

	s.Require().NoError(s.registry.Finish(s.ctx, snap.ID, "human"))
	s.Len(s.recorder.calls(), 1)

	s.Require().NoError(s.clock.BlockUntilContext(s.ctx, 2))
	s.Eventually(func() bool {
		s.clock.Advance(time.Second)
		current, err := s.registry.Snapshot(snap.ID)
		return err == nil && current.Status == model.RoomStatusFinished
	}, 5*time.Second, 2*time.Millisecond)

	final := s.snapshot(snap.ID)
	s.Require().Len(final.Players, 3)
	for _, p := range final.Players {
		s.True(p.Finished, "player %s should be finished", p.ConnectionID)
	}
	s.NotEmpty(final.WinnerKey)

	finished := s.hub.eventsOf(snap.ID, model.EventRaceFinished)
	s.Require().Len(finished, 1)
	s.Len(finished[0].Payload.(model.RaceFinishedPayload).FinalLeaderboard, 3)

	// Bots are never persisted
	s.Len(s.recorder.calls(), 1)
}

func (s *RegistrySuite) TestHumanLeavingBotRoomStopsBots() {
	snap := s.createBotRoom("left01", 3)
	s.Require().NoError(s.clock.BlockUntilContext(s.ctx, 3))

	s.Require().NoError(s.registry.Leave(s.ctx, snap.ID, "human"))

	_, err := s.registry.Snapshot(snap.ID)
	s.ErrorIs(err, model.ErrRoomNotFound)

	done := make(chan struct{})
	go func() {
		s.registry.Shutdown()
		close(done)
	}()
	s.Eventually(func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func (s *RegistrySuite) TestBotsNeverInheritHost() {
	snap := s.createBotRoom("bots09", 2)
	_, err := s.registry.Join(s.ctx, snap.ID, "guest", bob, "")
	s.Require().NoError(err)

	s.Require().NoError(s.registry.Leave(s.ctx, snap.ID, "human"))
	s.Equal(model.PlayerKey("guest"), s.snapshot(snap.ID).HostKey)

	// Only bots left: the room goes away
	s.Require().NoError(s.registry.Leave(s.ctx, snap.ID, "guest"))
	_, err = s.registry.Snapshot(snap.ID)
	s.ErrorIs(err, model.ErrRoomNotFound)
	s.True(s.hub.wasClosed(snap.ID))
}
