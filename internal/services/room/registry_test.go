package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/typerace/internal/dependencies/mocks"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/testutil"
)

var (
	base  = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	alice = model.Identity{UserID: "u-alice", Username: "alice"}
	bob   = model.Identity{UserID: "u-bob", Username: "bob"}
	anon  = model.Anonymous()
)

func intPtr(v int) *int {
	return &v
}

type RegistrySuite struct {
	suite.Suite
	hub       *recordingHub
	passages  *stubPassages
	recorder  *fakeRecorder
	publisher *mocks.MockPublisher
	clock     *mocks.MockClock
	random    *mocks.MockRandom
	registry  *Registry
	ctx       context.Context
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.hub = newRecordingHub()
	s.passages = &stubPassages{passage: &model.Passage{ID: "p1", Text: "héllo world"}}
	s.recorder = &fakeRecorder{}
	s.publisher = &mocks.MockPublisher{}
	s.publisher.On("PublishRoomFinished", mock.Anything, mock.Anything).Return(nil).Maybe()
	s.clock = mocks.NewMockClock(base)
	s.random = mocks.NewMockRandom()
	s.registry = NewRegistry(DefaultConfig(), s.passages, s.recorder, s.publisher, s.hub, s.clock, s.random, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *RegistrySuite) TearDownTest() {
	s.registry.Shutdown()
}

// createRoom opens a human room whose id is 100000+n
func (s *RegistrySuite) createRoom(n int, key model.PlayerKey, identity model.Identity) model.RoomID {
	s.random.QueueIntn(n)
	snap, err := s.registry.Create(s.ctx, key, identity, CreateRequest{})
	s.Require().NoError(err)
	return snap.ID
}

func (s *RegistrySuite) snapshot(id model.RoomID) model.RoomSnapshot {
	snap, err := s.registry.Snapshot(id)
	s.Require().NoError(err)
	return snap
}

func (s *RegistrySuite) startRunning(id model.RoomID) {
	_, err := s.registry.StartRace(s.ctx, id, intPtr(0))
	s.Require().NoError(err)
	s.Require().Equal(model.RoomStatusRunning, s.snapshot(id).Status)
}

// Create tests

func (s *RegistrySuite) TestCreateRoom() {
	s.random.QueueIntn(23456)
	snap, err := s.registry.Create(s.ctx, "c1", alice, CreateRequest{})
	s.Require().NoError(err)

	s.Equal(model.RoomID("123456"), snap.ID)
	s.Equal(model.RoomKindHuman, snap.Kind)
	s.Equal(model.RoomStatusWaiting, snap.Status)
	s.Equal(model.PlayerKey("c1"), snap.HostKey)
	s.Equal(model.PassageID("p1"), snap.PassageID)
	s.Equal("héllo world", snap.PassageText)
	s.Nil(snap.StartedAt)
	s.Require().Len(snap.Players, 1)
	s.Equal("alice", snap.Players[0].Username)
	s.Equal(model.UserID("u-alice"), snap.Players[0].UserID)
	s.Equal(100.0, snap.Players[0].Accuracy)

	s.True(s.hub.isMember(snap.ID, "c1"))
	s.Len(s.hub.eventsOf(snap.ID, model.EventRoomState), 1)
	s.Equal(1, s.registry.Count())
}

func (s *RegistrySuite) TestCreateRetriesOnIDCollision() {
	first := s.createRoom(5, "c1", alice)
	s.random.QueueIntn(5, 6)
	snap, err := s.registry.Create(s.ctx, "c2", bob, CreateRequest{})
	s.Require().NoError(err)

	s.Equal(model.RoomID("100005"), first)
	s.Equal(model.RoomID("100006"), snap.ID)
}

func (s *RegistrySuite) TestCreateFailsWhenIDsExhausted() {
	s.createRoom(0, "c1", alice)

	// The mock returns 0 once the queue is empty, colliding every time
	_, err := s.registry.Create(s.ctx, "c2", bob, CreateRequest{})
	s.ErrorIs(err, model.ErrCreateFailed)
}

func (s *RegistrySuite) TestCreateFallsBackWhenNoPassage() {
	s.passages.err = model.ErrPassageNotFound

	snap, err := s.registry.Create(s.ctx, "c1", alice, CreateRequest{Universe: "poetry"})
	s.Require().NoError(err)
	s.Equal(model.NoPassageText, snap.PassageText)
	s.Empty(snap.PassageID)
}

func (s *RegistrySuite) TestCreateFailsOnStoreError() {
	s.passages.err = errors.New("connection refused")

	_, err := s.registry.Create(s.ctx, "c1", alice, CreateRequest{})
	s.ErrorIs(err, model.ErrCreateFailed)
	s.Equal(0, s.registry.Count())
}

func (s *RegistrySuite) TestDisplayNames() {
	snap, err := s.registry.Create(s.ctx, "c1", anon, CreateRequest{Username: "zed"})
	s.Require().NoError(err)
	s.Equal("zed", snap.Players[0].Username)
	s.Empty(snap.Players[0].UserID)

	snap, err = s.registry.Join(s.ctx, snap.ID, "c2", anon, "")
	s.Require().NoError(err)
	s.Equal("Anonymous", playerByKey(snap, "c2").Username)

	snap, err = s.registry.Join(s.ctx, snap.ID, "c3", alice, "impostor")
	s.Require().NoError(err)
	s.Equal("alice", playerByKey(snap, "c3").Username)
}

// Join tests

func (s *RegistrySuite) TestJoinUnknownRoom() {
	_, err := s.registry.Join(s.ctx, "999999", "c1", alice, "")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *RegistrySuite) TestJoinFinishedRoom() {
	id := s.createRoom(1, "c1", alice)
	s.startRunning(id)
	s.Require().NoError(s.registry.Finish(s.ctx, id, "c1"))
	s.Require().Equal(model.RoomStatusFinished, s.snapshot(id).Status)

	_, err := s.registry.Join(s.ctx, id, "c2", bob, "")
	s.ErrorIs(err, model.ErrRaceFinished)
}

func (s *RegistrySuite) TestJoinBroadcastsAndAddsMember() {
	id := s.createRoom(1, "c1", alice)

	snap, err := s.registry.Join(s.ctx, id, "c2", bob, "")
	s.Require().NoError(err)
	s.Len(snap.Players, 2)
	s.True(s.hub.isMember(id, "c2"))

	joined := s.hub.eventsOf(id, model.EventRoomPlayerJoined)
	s.Require().Len(joined, 1)
	payload := joined[0].Payload.(model.PlayerJoinedPayload)
	s.Equal(model.PlayerKey("c2"), payload.Player.ConnectionID)
	s.Len(payload.Players, 2)
}

func (s *RegistrySuite) TestJoinTwiceOverwritesPlayer() {
	id := s.createRoom(1, "c1", alice)
	_, err := s.registry.Join(s.ctx, id, "c2", bob, "")
	s.Require().NoError(err)

	snap, err := s.registry.Join(s.ctx, id, "c2", anon, "renamed")
	s.Require().NoError(err)
	s.Len(snap.Players, 2)
	s.Equal("renamed", playerByKey(snap, "c2").Username)
	s.Equal(model.PlayerKey("c1"), snap.HostKey)
}

func (s *RegistrySuite) TestRejoinAfterFinishKeepsResult() {
	id := s.createRoom(1, "c1", alice)
	_, err := s.registry.Join(s.ctx, id, "c2", bob, "")
	s.Require().NoError(err)
	s.startRunning(id)

	s.clock.Advance(2 * time.Second)
	s.Require().NoError(s.registry.UpdateProgress(s.ctx, id, "c1", ProgressUpdate{Progress: 100, WPM: 60, Accuracy: 100}))
	s.Require().Len(s.recorder.calls(), 1)
	finishedAt := playerByKey(s.snapshot(id), "c1").FinishTime

	snap, err := s.registry.Join(s.ctx, id, "c1", alice, "alice-again")
	s.Require().NoError(err)
	entry := playerByKey(snap, "c1")
	s.True(entry.Finished)
	s.Equal(100.0, entry.Progress)
	s.Equal(60.0, entry.WPM)
	s.Equal("alice-again", entry.Username)

	s.clock.Advance(time.Second)
	s.Require().NoError(s.registry.UpdateProgress(s.ctx, id, "c1", ProgressUpdate{Progress: 100, WPM: 90, Accuracy: 100}))
	s.Require().NoError(s.registry.Finish(s.ctx, id, "c1"))

	records := s.recorder.calls()
	s.Require().Len(records, 1)
	s.Equal(60.0, records[0].WPM)
	entry = playerByKey(s.snapshot(id), "c1")
	s.True(entry.Finished)
	s.Equal(finishedAt, entry.FinishTime)
}

func (s *RegistrySuite) TestRejoinBeforeFinishRestartsStats() {
	id := s.createRoom(1, "c1", alice)
	s.startRunning(id)
	s.Require().NoError(s.registry.UpdateProgress(s.ctx, id, "c1", ProgressUpdate{Progress: 40, WPM: 50, Accuracy: 90}))

	snap, err := s.registry.Join(s.ctx, id, "c1", alice, "")
	s.Require().NoError(err)
	entry := playerByKey(snap, "c1")
	s.False(entry.Finished)
	s.Equal(0.0, entry.Progress)
	s.Equal(100.0, entry.Accuracy)
}

// StartRace tests

func (s *RegistrySuite) TestStartRaceUnknownRoom() {
	_, err := s.registry.StartRace(s.ctx, "nope", nil)
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *RegistrySuite) TestStartRaceDefaultCountdown() {
	id := s.createRoom(1, "c1", alice)

	startAt, err := s.registry.StartRace(s.ctx, id, nil)
	s.Require().NoError(err)
	s.Equal(base.Add(3*time.Second), startAt)

	snap := s.snapshot(id)
	s.Equal(model.RoomStatusCountdown, snap.Status)
	s.Require().NotNil(snap.StartedAt)
	s.Equal(startAt, *snap.StartedAt)

	countdowns := s.hub.eventsOf(id, model.EventRaceCountdown)
	s.Require().Len(countdowns, 1)
	s.Equal(3, countdowns[0].Payload.(model.CountdownPayload).CountdownSec)
}

func (s *RegistrySuite) TestStartRaceClampsCountdown() {
	id := s.createRoom(1, "c1", alice)
	startAt, err := s.registry.StartRace(s.ctx, id, intPtr(1000))
	s.Require().NoError(err)
	s.Equal(base.Add(60*time.Second), startAt)

	other := s.createRoom(2, "c2", bob)
	startAt, err = s.registry.StartRace(s.ctx, other, intPtr(-5))
	s.Require().NoError(err)
	s.Equal(base, startAt)
	s.Equal(model.RoomStatusRunning, s.snapshot(other).Status)
}

func (s *RegistrySuite) TestStartRaceTwiceFails() {
	id := s.createRoom(1, "c1", alice)
	_, err := s.registry.StartRace(s.ctx, id, intPtr(3))
	s.Require().NoError(err)

	_, err = s.registry.StartRace(s.ctx, id, intPtr(3))
	s.ErrorIs(err, model.ErrRaceAlreadyStarted)
}

func (s *RegistrySuite) TestRaceEventsDroppedWhileWaiting() {
	id := s.createRoom(1, "c1", alice)

	s.NoError(s.registry.UpdateProgress(s.ctx, id, "c1", ProgressUpdate{Progress: 100, WPM: 70, Accuracy: 100}))
	s.NoError(s.registry.Finish(s.ctx, id, "c1"))

	entry := playerByKey(s.snapshot(id), "c1")
	s.False(entry.Finished)
	s.Equal(0.0, entry.Progress)
	s.Equal(model.RoomStatusWaiting, s.snapshot(id).Status)
	s.Empty(s.hub.eventsOf(id, model.EventRaceLeaderboard))
	s.Empty(s.recorder.calls())
}

func (s *RegistrySuite) TestCountdownElapsesIntoRunning() {
	id := s.createRoom(1, "c1", alice)
	_, err := s.registry.StartRace(s.ctx, id, intPtr(3))
	s.Require().NoError(err)

	// Progress during the countdown is ignored
	s.NoError(s.registry.UpdateProgress(s.ctx, id, "c1", ProgressUpdate{Progress: 50, WPM: 40, Accuracy: 100}))
	s.Empty(s.hub.eventsOf(id, model.EventRaceLeaderboard))

	s.clock.Advance(3 * time.Second)
	s.Eventually(func() bool {
		snap, err := s.registry.Snapshot(id)
		return err == nil && snap.Status == model.RoomStatusRunning
	}, time.Second, 5*time.Millisecond)

	started := s.hub.eventsOf(id, model.EventRaceStarted)
	s.Require().Len(started, 1)
	payload := started[0].Payload.(model.RaceStartedPayload)
	s.Equal(base.Add(3*time.Second), payload.StartedAt)
	s.Equal("héllo world", payload.PassageText)
	s.NotEmpty(s.hub.eventsOf(id, model.EventRaceLeaderboard))
}

func (s *RegistrySuite) TestCountdownIsNoopAfterRoomDeleted() {
	id := s.createRoom(1, "c1", alice)
	lr, err := s.registry.lookup(id)
	s.Require().NoError(err)
	_, err = s.registry.StartRace(s.ctx, id, intPtr(3))
	s.Require().NoError(err)

	s.Require().NoError(s.registry.Leave(s.ctx, id, "c1"))
	_, err = s.registry.Snapshot(id)
	s.Require().ErrorIs(err, model.ErrRoomNotFound)

	s.clock.Advance(5 * time.Second)
	s.registry.onCountdownElapsed(lr)

	s.Empty(s.hub.eventsOf(id, model.EventRaceStarted))
	s.Equal(model.RoomStatusCountdown, lr.room.Status)
}

// Race flow tests

func (s *RegistrySuite) TestTwoPerfectPlayersScenario() {
	id := s.createRoom(1, "host", alice)
	_, err := s.registry.Join(s.ctx, id, "guest", bob, "")
	s.Require().NoError(err)
	s.startRunning(id)

	s.clock.Advance(2 * time.Second)
	s.Require().NoError(s.registry.UpdateProgress(s.ctx, id, "host", ProgressUpdate{Progress: 100, WPM: 80, Accuracy: 100}))
	s.Equal(model.RoomStatusRunning, s.snapshot(id).Status)

	s.clock.Advance(3 * time.Second)
	s.Require().NoError(s.registry.UpdateProgress(s.ctx, id, "guest", ProgressUpdate{Progress: 100, WPM: 95, Accuracy: 100}))

	snap := s.snapshot(id)
	s.Equal(model.RoomStatusFinished, snap.Status)
	s.Equal(model.PlayerKey("host"), snap.WinnerKey)
	s.Equal(model.PlayerKey("host"), snap.Players[0].ConnectionID)
	s.Equal(model.PlayerKey("guest"), snap.Players[1].ConnectionID)

	finished := s.hub.eventsOf(id, model.EventRaceFinished)
	s.Require().Len(finished, 1)
	payload := finished[0].Payload.(model.RaceFinishedPayload)
	s.Require().NotNil(payload.Winner)
	s.Equal(model.PlayerKey("host"), payload.Winner.ConnectionID)
	s.Len(payload.FinalLeaderboard, 2)

	// Later events never re-finish the room
	s.NoError(s.registry.UpdateProgress(s.ctx, id, "guest", ProgressUpdate{Progress: 100, WPM: 99, Accuracy: 100}))
	s.NoError(s.registry.Finish(s.ctx, id, "host"))
	s.Len(s.hub.eventsOf(id, model.EventRaceFinished), 1)
	s.publisher.AssertNumberOfCalls(s.T(), "PublishRoomFinished", 1)

	records := s.recorder.calls()
	s.Require().Len(records, 2)
	s.Equal(model.UserID("u-alice"), records[0].UserID)
	s.Equal(int64(2000), records[0].DurationMs)
	s.Equal(model.UserID("u-bob"), records[1].UserID)
	s.Equal(int64(5000), records[1].DurationMs)
	s.Equal(11, records[0].CharsTyped)
	s.Equal(model.PassageID("p1"), records[0].PassageID)
	s.Equal(80.0, records[0].WPM)
}

func (s *RegistrySuite) TestProgressIsClamped() {
	id := s.createRoom(1, "c1", alice)
	_, err := s.registry.Join(s.ctx, id, "c2", bob, "")
	s.Require().NoError(err)
	s.startRunning(id)

	s.Require().NoError(s.registry.UpdateProgress(s.ctx, id, "c1", ProgressUpdate{Progress: -10, WPM: -3, Accuracy: 140}))
	p := playerByKey(s.snapshot(id), "c1")
	s.Equal(0.0, p.Progress)
	s.Equal(0.0, p.WPM)
	s.Equal(100.0, p.Accuracy)

	s.Require().NoError(s.registry.UpdateProgress(s.ctx, id, "c1", ProgressUpdate{Progress: 250, WPM: 60, Accuracy: 97}))
	p = playerByKey(s.snapshot(id), "c1")
	s.Equal(100.0, p.Progress)
	s.True(p.Finished)
}

func (s *RegistrySuite) TestFinishIsIdempotent() {
	id := s.createRoom(1, "c1", alice)
	_, err := s.registry.Join(s.ctx, id, "c2", bob, "")
	s.Require().NoError(err)
	s.startRunning(id)

	s.Require().NoError(s.registry.Finish(s.ctx, id, "c1"))
	first := playerByKey(s.snapshot(id), "c1").FinishTime
	s.Require().NotNil(first)

	s.clock.Advance(time.Second)
	s.Require().NoError(s.registry.Finish(s.ctx, id, "c1"))
	s.Require().NoError(s.registry.UpdateProgress(s.ctx, id, "c1", ProgressUpdate{Progress: 100, WPM: 50, Accuracy: 100}))

	s.Equal(*first, *playerByKey(s.snapshot(id), "c1").FinishTime)
	s.Len(s.recorder.calls(), 1)
}

func (s *RegistrySuite) TestAnonymousFinishIsNotPersisted() {
	snap, err := s.registry.Create(s.ctx, "c1", anon, CreateRequest{})
	s.Require().NoError(err)
	s.startRunning(snap.ID)

	s.NoError(s.registry.UpdateProgress(s.ctx, snap.ID, "c1", ProgressUpdate{Progress: 100, WPM: 70, Accuracy: 100}))
	s.Equal(model.RoomStatusFinished, s.snapshot(snap.ID).Status)
	s.Empty(s.recorder.calls())
}

func (s *RegistrySuite) TestPersistenceFailureDoesNotStopRace() {
	s.recorder.err = errors.New("database unavailable")
	id := s.createRoom(1, "c1", alice)
	s.startRunning(id)

	s.NoError(s.registry.Finish(s.ctx, id, "c1"))
	s.Equal(model.RoomStatusFinished, s.snapshot(id).Status)
	s.Len(s.hub.eventsOf(id, model.EventRaceFinished), 1)
	s.Len(s.recorder.calls(), 1)
}

func (s *RegistrySuite) TestEventsForUnknownPlayerOrRoom() {
	id := s.createRoom(1, "c1", alice)
	s.startRunning(id)

	s.ErrorIs(s.registry.UpdateProgress(s.ctx, id, "stranger", ProgressUpdate{Progress: 10}), model.ErrPlayerNotInRoom)
	s.ErrorIs(s.registry.Finish(s.ctx, "missing", "c1"), model.ErrRoomNotFound)
}

// Leave tests

func (s *RegistrySuite) TestHostLeavePromotesEarliestJoiner() {
	id := s.createRoom(1, "host", alice)
	_, err := s.registry.Join(s.ctx, id, "second", bob, "")
	s.Require().NoError(err)
	_, err = s.registry.Join(s.ctx, id, "third", anon, "")
	s.Require().NoError(err)

	s.Require().NoError(s.registry.Leave(s.ctx, id, "host"))

	snap := s.snapshot(id)
	s.Equal(model.PlayerKey("second"), snap.HostKey)
	s.Len(snap.Players, 2)
	s.False(s.hub.isMember(id, "host"))

	left := s.hub.eventsOf(id, model.EventRoomPlayerLeft)
	s.Require().Len(left, 1)
	s.Equal(model.PlayerKey("host"), left[0].Payload.(model.PlayerLeftPayload).ConnectionID)

	hosts := s.hub.eventsOf(id, model.EventRoomNewHost)
	s.Require().Len(hosts, 1)
	s.Equal(model.PlayerKey("second"), hosts[0].Payload.(model.NewHostPayload).HostConnectionID)
}

func (s *RegistrySuite) TestNonHostLeaveKeepsHost() {
	id := s.createRoom(1, "host", alice)
	_, err := s.registry.Join(s.ctx, id, "guest", bob, "")
	s.Require().NoError(err)

	s.Require().NoError(s.registry.Leave(s.ctx, id, "guest"))
	s.Equal(model.PlayerKey("host"), s.snapshot(id).HostKey)
	s.Empty(s.hub.eventsOf(id, model.EventRoomNewHost))
}

func (s *RegistrySuite) TestLastLeaveDeletesRoom() {
	id := s.createRoom(1, "c1", alice)

	s.Require().NoError(s.registry.Leave(s.ctx, id, "c1"))

	_, err := s.registry.Snapshot(id)
	s.ErrorIs(err, model.ErrRoomNotFound)
	s.Equal(0, s.registry.Count())
	s.True(s.hub.wasClosed(id))
	s.ErrorIs(s.registry.Leave(s.ctx, id, "c1"), model.ErrRoomNotFound)
}

func (s *RegistrySuite) TestLeaveUnknownPlayer() {
	id := s.createRoom(1, "c1", alice)
	s.ErrorIs(s.registry.Leave(s.ctx, id, "stranger"), model.ErrPlayerNotInRoom)
}

func (s *RegistrySuite) TestLeaveCompletesRace() {
	id := s.createRoom(1, "c1", alice)
	_, err := s.registry.Join(s.ctx, id, "c2", bob, "")
	s.Require().NoError(err)
	s.startRunning(id)
	s.Require().NoError(s.registry.Finish(s.ctx, id, "c1"))

	s.Require().NoError(s.registry.Leave(s.ctx, id, "c2"))

	snap := s.snapshot(id)
	s.Equal(model.RoomStatusFinished, snap.Status)
	s.Equal(model.PlayerKey("c1"), snap.WinnerKey)
	s.Len(s.hub.eventsOf(id, model.EventRaceFinished), 1)
}

func (s *RegistrySuite) TestDisconnectSweepsEveryRoom() {
	a := s.createRoom(1, "c1", alice)
	b := s.createRoom(2, "c2", bob)
	_, err := s.registry.Join(s.ctx, b, "c1", alice, "")
	s.Require().NoError(err)

	s.registry.Disconnect(s.ctx, "c1")

	_, err = s.registry.Snapshot(a)
	s.ErrorIs(err, model.ErrRoomNotFound)
	snap := s.snapshot(b)
	s.Require().Len(snap.Players, 1)
	s.Equal(model.PlayerKey("c2"), snap.Players[0].ConnectionID)
	s.Len(s.hub.eventsOf(b, model.EventRoomPlayerLeft), 1)
}

// Idle sweep tests

func (s *RegistrySuite) TestSweepIdleClosesStaleRooms() {
	stale := s.createRoom(1, "c1", alice)
	s.clock.Advance(20 * time.Minute)
	active := s.createRoom(2, "c2", bob)

	s.Equal(0, s.registry.SweepIdle())

	s.clock.Advance(11 * time.Minute)
	s.Equal(1, s.registry.SweepIdle())

	_, err := s.registry.Snapshot(stale)
	s.ErrorIs(err, model.ErrRoomNotFound)
	s.snapshot(active)

	closed := s.hub.eventsOf(stale, model.EventRoomClosed)
	s.Require().Len(closed, 1)
	s.Equal(model.RoomClosedPayload{RoomID: stale, Reason: IdleReason}, closed[0].Payload)
}

func (s *RegistrySuite) TestActivityKeepsRoomAlive() {
	id := s.createRoom(1, "c1", alice)
	s.clock.Advance(20 * time.Minute)
	_, err := s.registry.Join(s.ctx, id, "c2", bob, "")
	s.Require().NoError(err)
	s.clock.Advance(20 * time.Minute)

	s.Equal(0, s.registry.SweepIdle())
}

func (s *RegistrySuite) TestRunSweepsOnTicker() {
	s.createRoom(1, "c1", alice)
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.registry.Run(ctx)
		close(done)
	}()

	s.Require().NoError(s.clock.BlockUntilContext(ctx, 1))
	s.clock.Advance(31 * time.Minute)
	s.Eventually(func() bool { return s.registry.Count() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	s.Eventually(func() bool {
		select {
		case <-done:
			return true
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

// Shutdown tests

func (s *RegistrySuite) TestShutdownClosesEverything() {
	id := s.createRoom(1, "c1", alice)
	_, err := s.registry.StartRace(s.ctx, id, intPtr(3))
	s.Require().NoError(err)

	s.registry.Shutdown()

	s.Equal(0, s.registry.Count())
	s.True(s.hub.wasClosed(id))
	closed := s.hub.eventsOf(id, model.EventRoomClosed)
	s.Require().Len(closed, 1)
	s.Equal(ShutdownReason, closed[0].Payload.(model.RoomClosedPayload).Reason)

	s.clock.Advance(5 * time.Second)
	s.Empty(s.hub.eventsOf(id, model.EventRaceStarted))

	_, err = s.registry.Create(s.ctx, "c2", bob, CreateRequest{})
	s.ErrorIs(err, model.ErrCreateFailed)

	_, err = s.registry.Join(s.ctx, id, "c2", bob, "")
	s.ErrorIs(err, model.ErrJoinFailed)
}

func playerByKey(snap model.RoomSnapshot, key model.PlayerKey) model.LeaderboardEntry {
	for _, p := range snap.Players {
		if p.ConnectionID == key {
			return p
		}
	}
	return model.LeaderboardEntry{}
}
