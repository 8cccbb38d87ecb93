package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/typerace/internal/model"
	"github.com/mcoot/typerace/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}

	// Claim the username first so concurrent registrations cannot both succeed
	claimed, err := s.client.SetNX(ctx, usernameIndexKey(user.Username), string(user.ID), 0).Result()
	if err != nil {
		return err
	}
	if !claimed {
		return model.ErrUsernameExists
	}

	if err := s.client.Set(ctx, userKey(user.ID), data, 0).Err(); err != nil {
		_ = s.client.Del(ctx, usernameIndexKey(user.Username)).Err()
		return err
	}
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	data, err := s.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	userID, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	return s.GetUser(ctx, model.UserID(userID))
}

func (s *Storage) RecordUserRace(ctx context.Context, id model.UserID, wpm float64) (*model.User, error) {
	key := userKey(id)
	var updated model.User

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return model.ErrUserNotFound
			}
			return err
		}

		var user model.User
		if err := json.Unmarshal(data, &user); err != nil {
			return err
		}
		user.RecordRace(wpm)

		newData, err := json.Marshal(&user)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newData, 0)
			return nil
		})
		if err == nil {
			updated = user
		}
		return err
	}

	for range max(s.cfg.MaxTxRetries, 1) {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return &updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("record race for user %s: too much contention", id)
}

// Passage operations

func (s *Storage) SavePassage(ctx context.Context, passage *model.Passage) error {
	data, err := json.Marshal(passage)
	if err != nil {
		return err
	}

	member := redis.Z{Score: float64(passage.CreatedAt.UnixNano()), Member: string(passage.ID)}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, passageKey(passage.ID), data, 0)
	pipe.ZAdd(ctx, passagesIndexKey(), member)
	pipe.ZAdd(ctx, passagesInUniverseIndexKey(passage.Universe), member)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetPassage(ctx context.Context, id model.PassageID) (*model.Passage, error) {
	data, err := s.client.Get(ctx, passageKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPassageNotFound
		}
		return nil, err
	}

	var passage model.Passage
	if err := json.Unmarshal(data, &passage); err != nil {
		return nil, err
	}
	return &passage, nil
}

func (s *Storage) ListPassages(ctx context.Context, offset, limit int) ([]*model.Passage, error) {
	passages := []*model.Passage{}
	if limit <= 0 {
		return passages, nil
	}

	ids, err := s.client.ZRevRange(ctx, passagesIndexKey(), int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return passages, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = passageKey(model.PassageID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var passage model.Passage
		if err := json.Unmarshal([]byte(raw), &passage); err != nil {
			return nil, err
		}
		passages = append(passages, &passage)
	}
	return passages, nil
}

func (s *Storage) CountPassages(ctx context.Context, universe string) (int, error) {
	n, err := s.client.ZCard(ctx, s.passageIndexFor(universe)).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *Storage) NthPassage(ctx context.Context, universe string, n int) (*model.Passage, error) {
	if n < 0 {
		return nil, model.ErrPassageNotFound
	}
	ids, err := s.client.ZRange(ctx, s.passageIndexFor(universe), int64(n), int64(n)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, model.ErrPassageNotFound
	}
	return s.GetPassage(ctx, model.PassageID(ids[0]))
}

func (s *Storage) passageIndexFor(universe string) string {
	if universe == "" {
		return passagesIndexKey()
	}
	return passagesInUniverseIndexKey(universe)
}

// Race result operations

func (s *Storage) SaveRaceResult(ctx context.Context, result *model.RaceResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	key := raceResultKey(result.ID)

	// Results without a user are not indexed and expire
	if result.UserID == "" {
		return s.client.Set(ctx, key, data, s.cfg.AnonymousResultTTL).Err()
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, 0)
	pipe.ZAdd(ctx, resultsForUserIndexKey(result.UserID), redis.Z{
		Score:  float64(result.CreatedAt.UnixNano()),
		Member: string(result.ID),
	})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) ListRaceResultsByUser(ctx context.Context, userID model.UserID) ([]*model.RaceResult, error) {
	results := []*model.RaceResult{}

	ids, err := s.client.ZRevRange(ctx, resultsForUserIndexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return results, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = raceResultKey(model.RaceResultID(id))
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var result model.RaceResult
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}
	return results, nil
}
