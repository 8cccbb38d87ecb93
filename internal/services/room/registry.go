package room

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/mcoot/typerace/internal/dependencies/clock"
	"github.com/mcoot/typerace/internal/dependencies/random"
	"github.com/mcoot/typerace/internal/events"
	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/services/results"
)

const (
	// BotRoomIDLength is the length of generated bot room ids
	BotRoomIDLength = 6
	// BotRoomIDAlphabet is the character set for bot room ids
	BotRoomIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	// MaxIDAttempts bounds room id collision retries
	MaxIDAttempts = 20

	// IdleReason is sent in room:closed when the idle sweep closes a room
	IdleReason = "idle"
	// ShutdownReason is sent in room:closed when the server stops
	ShutdownReason = "shutdown"

	anonymousName = "Anonymous"
	botRoomName   = "Player"
)

// Broadcaster delivers events to every connection in a room's broadcast group.
// Implementations must not block and must not call back into the registry.
type Broadcaster interface {
	Join(roomID model.RoomID, key model.PlayerKey)
	Leave(roomID model.RoomID, key model.PlayerKey)
	Broadcast(roomID model.RoomID, event model.EventType, payload any)
	Close(roomID model.RoomID)
}

// PassagePicker chooses the passage for a new room
type PassagePicker interface {
	Random(ctx context.Context, universe string) (*model.Passage, error)
}

// ResultRecorder persists a finished player's result
type ResultRecorder interface {
	Record(ctx context.Context, rec results.Record) (*model.RaceResult, error)
}

// Config holds timing configuration for rooms
type Config struct {
	DefaultCountdown time.Duration
	MaxCountdown     time.Duration
	BotTick          time.Duration
	MaxBots          int
	IdleTTL          time.Duration
	SweepInterval    time.Duration
	PersistTimeout   time.Duration
}

// DefaultConfig returns default room configuration
func DefaultConfig() Config {
	return Config{
		DefaultCountdown: 3 * time.Second,
		MaxCountdown:     60 * time.Second,
		BotTick:          time.Second,
		MaxBots:          10,
		IdleTTL:          30 * time.Minute,
		SweepInterval:    time.Minute,
		PersistTimeout:   5 * time.Second,
	}
}

// Registry owns every live room. Room state is guarded by a per-room mutex; the registry
// mutex guards only the room map. The two are never held at the same time except while
// registering a freshly built room.
type Registry struct {
	cfg       Config
	passages  PassagePicker
	recorder  ResultRecorder
	publisher events.Publisher
	hub       Broadcaster
	clock     clock.Clock
	random    random.Random
	logger    *slog.Logger

	mu     sync.Mutex
	rooms  map[model.RoomID]*liveRoom
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates a Registry. Call Shutdown to stop bot timers.
func NewRegistry(
	cfg Config,
	passages PassagePicker,
	recorder ResultRecorder,
	publisher events.Publisher,
	hub Broadcaster,
	clk clock.Clock,
	rnd random.Random,
	logger *slog.Logger,
) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		cfg:       cfg,
		passages:  passages,
		recorder:  recorder,
		publisher: publisher,
		hub:       hub,
		clock:     clk,
		random:    rnd,
		logger:    logger.With(slog.String("component", "room-registry")),
		rooms:     make(map[model.RoomID]*liveRoom),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// CreateRequest carries the optional fields of room:create
type CreateRequest struct {
	Universe string
	Username string
}

// Create opens a shared room with the caller as first player and host
func (r *Registry) Create(ctx context.Context, key model.PlayerKey, identity model.Identity, req CreateRequest) (model.RoomSnapshot, error) {
	passageID, text, err := r.pickPassage(ctx, req.Universe)
	if err != nil {
		return model.RoomSnapshot{}, err
	}

	now := r.clock.Now()
	host := model.NewPlayer(key, identity.UserID, displayName(identity, req.Username))
	room := &model.Room{
		Kind:         model.RoomKindHuman,
		PassageID:    passageID,
		PassageText:  text,
		HostKey:      key,
		Status:       model.RoomStatusWaiting,
		Players:      map[model.PlayerKey]*model.Player{key: host},
		CreatedAt:    now,
		LastActivity: now,
	}

	lr, err := r.register(room, 0, func() model.RoomID {
		return model.RoomID(strconv.Itoa(100000 + r.random.Intn(900000)))
	})
	if err != nil {
		return model.RoomSnapshot{}, err
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	r.hub.Join(room.ID, key)
	snapshot := lr.snapshot()
	r.hub.Broadcast(room.ID, model.EventRoomState, model.RoomStatePayload{Room: snapshot})

	r.logger.Info("room created",
		slog.String("room_id", string(room.ID)),
		slog.String("host", string(key)),
		slog.String("passage_id", string(passageID)),
	)
	return snapshot, nil
}

// CreateBot opens a single-player room against botCount bots. The race starts immediately.
func (r *Registry) CreateBot(ctx context.Context, key model.PlayerKey, identity model.Identity, username string, botCount int) (model.RoomSnapshot, error) {
	if botCount < 1 {
		botCount = 1
	}
	botCount = min(botCount, r.cfg.MaxBots)

	passageID, text, err := r.pickPassage(ctx, "")
	if err != nil {
		return model.RoomSnapshot{}, err
	}

	name := username
	if name == "" {
		name = identity.Username
	}
	if name == "" {
		name = botRoomName
	}

	now := r.clock.Now()
	human := model.NewPlayer(key, identity.UserID, name)
	room := &model.Room{
		Kind:         model.RoomKindBot,
		PassageID:    passageID,
		PassageText:  text,
		HostKey:      key,
		Status:       model.RoomStatusRunning,
		StartedAt:    &now,
		Players:      map[model.PlayerKey]*model.Player{key: human},
		CreatedAt:    now,
		LastActivity: now,
	}

	lr, err := r.register(room, botCount, func() model.RoomID {
		return model.RoomID(r.random.String(BotRoomIDLength, BotRoomIDAlphabet))
	})
	if err != nil {
		return model.RoomSnapshot{}, err
	}

	lr.mu.Lock()
	bots := r.addBots(lr, botCount)
	r.hub.Join(room.ID, key)
	r.hub.Broadcast(room.ID, model.EventRaceStarted, model.RaceStartedPayload{
		StartedAt:   now,
		PassageText: room.PassageText,
	})
	r.broadcastLeaderboard(lr)
	snapshot := lr.snapshot()
	lr.mu.Unlock()

	for _, bot := range bots {
		go r.runBot(lr, bot)
	}

	r.logger.Info("bot room created",
		slog.String("room_id", string(room.ID)),
		slog.String("host", string(key)),
		slog.Int("bots", botCount),
	)
	return snapshot, nil
}

// Join adds a connection to a room. Joining again with the same key refreshes the player's
// name and user id; a finished player keeps its result and is never persisted twice.
func (r *Registry) Join(ctx context.Context, roomID model.RoomID, key model.PlayerKey, identity model.Identity, username string) (model.RoomSnapshot, error) {
	r.mu.Lock()
	shutDown := r.closed
	r.mu.Unlock()
	if shutDown {
		return model.RoomSnapshot{}, fmt.Errorf("%w: registry is shut down", model.ErrJoinFailed)
	}

	lr, err := r.lookup(roomID)
	if err != nil {
		return model.RoomSnapshot{}, err
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.closed {
		return model.RoomSnapshot{}, model.ErrRoomNotFound
	}
	room := lr.room
	if room.Status == model.RoomStatusFinished {
		return model.RoomSnapshot{}, model.ErrRaceFinished
	}

	name := displayName(identity, username)
	player := room.GetPlayer(key)
	if player != nil {
		player.Rejoin(identity.UserID, name)
	} else {
		player = model.NewPlayer(key, identity.UserID, name)
		player.JoinSeq = room.NextJoinSeq()
		room.Players[key] = player
	}
	lr.touch(r.clock.Now())

	r.hub.Join(roomID, key)
	snapshot := lr.snapshot()
	r.hub.Broadcast(roomID, model.EventRoomPlayerJoined, model.PlayerJoinedPayload{
		Player:  model.EntryFromPlayer(player),
		Players: snapshot.Players,
	})
	return snapshot, nil
}

// Leave removes a connection from a room, promoting a new host or deleting the room as needed
func (r *Registry) Leave(ctx context.Context, roomID model.RoomID, key model.PlayerKey) error {
	lr, err := r.lookup(roomID)
	if err != nil {
		return err
	}

	lr.mu.Lock()
	if lr.closed {
		lr.mu.Unlock()
		return model.ErrRoomNotFound
	}
	fx, err := r.removePlayer(lr, key)
	lr.mu.Unlock()
	if err != nil {
		return err
	}

	r.settle(ctx, lr, fx)
	return nil
}

// Disconnect removes a connection from every room it belongs to
func (r *Registry) Disconnect(ctx context.Context, key model.PlayerKey) {
	for _, lr := range r.liveRooms() {
		lr.mu.Lock()
		if lr.closed || lr.room.GetPlayer(key) == nil {
			lr.mu.Unlock()
			continue
		}
		fx, err := r.removePlayer(lr, key)
		lr.mu.Unlock()
		if err != nil {
			continue
		}
		r.settle(ctx, lr, fx)
	}
}

// StartRace begins the countdown. A nil countdownSec uses the configured default.
// Returns the time the race will start.
func (r *Registry) StartRace(ctx context.Context, roomID model.RoomID, countdownSec *int) (time.Time, error) {
	lr, err := r.lookup(roomID)
	if err != nil {
		return time.Time{}, err
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.closed {
		return time.Time{}, model.ErrRoomNotFound
	}
	room := lr.room
	switch room.Status {
	case model.RoomStatusWaiting:
	case model.RoomStatusFinished:
		return time.Time{}, model.ErrRaceFinished
	default:
		return time.Time{}, model.ErrRaceAlreadyStarted
	}

	countdown := r.clampCountdown(countdownSec)
	now := r.clock.Now()
	startAt := now.Add(countdown)
	room.Status = model.RoomStatusCountdown
	room.StartedAt = &startAt
	lr.touch(now)

	r.hub.Broadcast(roomID, model.EventRaceCountdown, model.CountdownPayload{
		StartAt:      startAt,
		CountdownSec: int(countdown / time.Second),
	})

	if countdown == 0 {
		r.startRunning(lr)
	} else {
		lr.countdown = r.clock.AfterFunc(countdown, func() {
			r.onCountdownElapsed(lr)
		})
	}

	r.logger.Info("race countdown started",
		slog.String("room_id", string(roomID)),
		slog.Duration("countdown", countdown),
	)
	return startAt, nil
}

// ProgressUpdate is a client-reported progress sample
type ProgressUpdate struct {
	Progress float64
	WPM      float64
	Accuracy float64
}

// UpdateProgress applies a progress sample. Samples sent while the room is waiting, counting
// down or finished are dropped without an error or broadcast.
func (r *Registry) UpdateProgress(ctx context.Context, roomID model.RoomID, key model.PlayerKey, update ProgressUpdate) error {
	return r.mutatePlayer(ctx, roomID, key, func(lr *liveRoom, p *model.Player) effects {
		return r.applyProgress(lr, p, update)
	})
}

// Finish marks a player finished. Finishing twice has no further effect, and finish events
// outside a running race are dropped like progress samples.
func (r *Registry) Finish(ctx context.Context, roomID model.RoomID, key model.PlayerKey) error {
	return r.mutatePlayer(ctx, roomID, key, func(lr *liveRoom, p *model.Player) effects {
		fx := r.finishPlayer(lr, p)
		r.broadcastLeaderboard(lr)
		fx.finished = r.checkComplete(lr)
		return fx
	})
}

// Snapshot returns a read-only copy of a room
func (r *Registry) Snapshot(roomID model.RoomID) (model.RoomSnapshot, error) {
	lr, err := r.lookup(roomID)
	if err != nil {
		return model.RoomSnapshot{}, err
	}
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.closed {
		return model.RoomSnapshot{}, model.ErrRoomNotFound
	}
	return lr.snapshot(), nil
}

// Count returns the number of live rooms
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// SweepIdle closes rooms with no activity for the configured idle TTL. Returns the number closed.
func (r *Registry) SweepIdle() int {
	now := r.clock.Now()
	closed := 0
	for _, lr := range r.liveRooms() {
		lr.mu.Lock()
		idle := !lr.closed && now.Sub(lr.room.LastActivity) >= r.cfg.IdleTTL
		if idle {
			r.closeRoom(lr, IdleReason)
		}
		lr.mu.Unlock()

		if idle {
			r.remove(lr)
			closed++
			r.logger.Info("idle room closed", slog.String("room_id", string(lr.room.ID)))
		}
	}
	return closed
}

// Run sweeps idle rooms on every tick until ctx is cancelled
func (r *Registry) Run(ctx context.Context) {
	ticker := r.clock.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			r.SweepIdle()
		case <-ctx.Done():
			return
		case <-r.ctx.Done():
			return
		}
	}
}

// Shutdown closes every room, cancels countdowns and bots, and waits for bot goroutines to exit
func (r *Registry) Shutdown() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	rooms := make([]*liveRoom, 0, len(r.rooms))
	for _, lr := range r.rooms {
		rooms = append(rooms, lr)
	}
	clear(r.rooms)
	r.mu.Unlock()

	r.cancel()
	for _, lr := range rooms {
		lr.mu.Lock()
		if !lr.closed {
			r.closeRoom(lr, ShutdownReason)
		}
		lr.mu.Unlock()
		r.hub.Close(lr.room.ID)
	}

	r.wg.Wait()
	r.logger.Info("room registry shut down", slog.Int("rooms_closed", len(rooms)))
}

// register assigns a fresh id and adds the room to the map.
// Bot goroutines are counted here so Shutdown cannot miss them.
func (r *Registry) register(room *model.Room, bots int, nextID func() model.RoomID) (*liveRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("%w: registry is shut down", model.ErrCreateFailed)
	}

	for range MaxIDAttempts {
		id := nextID()
		if id == "" {
			continue
		}
		if _, exists := r.rooms[id]; exists {
			continue
		}
		room.ID = id
		ctx, cancel := context.WithCancel(r.ctx)
		lr := &liveRoom{room: room, ctx: ctx, cancel: cancel}
		r.rooms[id] = lr
		r.wg.Add(bots)
		return lr, nil
	}

	return nil, fmt.Errorf("%w: no free room id after %d attempts", model.ErrCreateFailed, MaxIDAttempts)
}

func (r *Registry) lookup(roomID model.RoomID) (*liveRoom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lr, ok := r.rooms[roomID]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return lr, nil
}

func (r *Registry) liveRooms() []*liveRoom {
	r.mu.Lock()
	defer r.mu.Unlock()
	rooms := make([]*liveRoom, 0, len(r.rooms))
	for _, lr := range r.rooms {
		rooms = append(rooms, lr)
	}
	return rooms
}

// remove drops a closed room from the map and its broadcast group
func (r *Registry) remove(lr *liveRoom) {
	id := lr.room.ID
	r.mu.Lock()
	if r.rooms[id] == lr {
		delete(r.rooms, id)
	}
	r.mu.Unlock()
	r.hub.Close(id)
}

func (r *Registry) pickPassage(ctx context.Context, universe string) (model.PassageID, string, error) {
	p, err := r.passages.Random(ctx, universe)
	if err != nil {
		if errors.Is(err, model.ErrPassageNotFound) {
			return "", model.NoPassageText, nil
		}
		r.logger.Error("failed to pick passage", slog.String("universe", universe), slog.Any("error", err))
		return "", "", fmt.Errorf("%w: %w", model.ErrCreateFailed, err)
	}
	return p.ID, p.Text, nil
}

func (r *Registry) clampCountdown(countdownSec *int) time.Duration {
	countdown := r.cfg.DefaultCountdown
	if countdownSec != nil {
		countdown = time.Duration(*countdownSec) * time.Second
	}
	return min(max(countdown, 0), r.cfg.MaxCountdown)
}

func displayName(identity model.Identity, username string) string {
	if identity.Username != "" {
		return identity.Username
	}
	if username != "" {
		return username
	}
	return anonymousName
}
