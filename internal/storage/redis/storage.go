package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/storage"
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

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	data, err := json.Marshal(player)
	if err != nil {
		return err
	}

	// The scores ZSET is authoritative once the player exists
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, playerKey(player.ID), data, 0)
	pipe.Set(ctx, nameIndexKey(player.Name), string(player.ID), 0)
	pipe.ZAdd(ctx, scoresKey(), redis.Z{Score: float64(player.Score), Member: string(player.ID)})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	data, err := s.client.Get(ctx, playerKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	var player model.Player
	if err := json.Unmarshal(data, &player); err != nil {
		return nil, err
	}

	score, err := s.client.ZScore(ctx, scoresKey(), string(id)).Result()
	switch {
	case err == nil:
		player.Score = int(score)
	case !errors.Is(err, redis.Nil):
		return nil, err
	}
	return &player, nil
}

func (s *Storage) GetPlayerByName(ctx context.Context, name string) (*model.Player, error) {
	id, err := s.client.Get(ctx, nameIndexKey(name)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrPlayerNotFound
		}
		return nil, err
	}

	return s.GetPlayer(ctx, model.PlayerID(id))
}

func (s *Storage) ListPlayersByScore(ctx context.Context, limit int) ([]*model.Player, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ranked, err := s.client.ZRevRangeWithScores(ctx, scoresKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return []*model.Player{}, nil
	}

	keys := make([]string, len(ranked))
	for i, z := range ranked {
		keys[i] = playerKey(model.PlayerID(z.Member.(string)))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	players := make([]*model.Player, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var player model.Player
		if err := json.Unmarshal([]byte(raw), &player); err != nil {
			return nil, err
		}
		player.Score = int(ranked[i].Score)
		players = append(players, &player)
	}
	return players, nil
}

// Match operations

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return getMatch(ctx, s.client, id)
}

func (s *Storage) GetActiveMatchForPlayer(ctx context.Context, playerID model.PlayerID) (*model.Match, error) {
	id, err := s.client.Get(ctx, playerActiveKey(playerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	match, err := s.GetMatch(ctx, model.MatchID(id))
	if err != nil {
		return nil, err
	}
	if !match.InProgress {
		return nil, model.ErrMatchNotFound
	}
	return match, nil
}

func (s *Storage) GetWaitingMatchForPlayer(ctx context.Context, playerID model.PlayerID) (*model.Match, error) {
	id, err := s.client.Get(ctx, playerWaitingKey(playerID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	match, err := s.GetMatch(ctx, model.MatchID(id))
	if err != nil {
		return nil, err
	}
	if !match.IsWaiting() {
		return nil, model.ErrMatchNotFound
	}
	return match, nil
}

func (s *Storage) FindWaitingMatch(ctx context.Context, excludePlayerID model.PlayerID, gameType model.GameType) (*model.Match, error) {
	queue := waitingQueueKey(gameType)
	ids, err := s.client.LRange(ctx, queue, 0, -1).Result()
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		match, err := s.GetMatch(ctx, model.MatchID(id))
		if errors.Is(err, model.ErrMatchNotFound) || (err == nil && !match.IsWaiting()) {
			// Expired or already paired; drop the stale entry
			if err := s.client.LRem(ctx, queue, 0, id).Err(); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, err
		}
		if match.Player1ID != excludePlayerID {
			return match, nil
		}
	}
	return nil, model.ErrMatchNotFound
}

func (s *Storage) CreateWaitingMatch(ctx context.Context, playerID model.PlayerID, gameType model.GameType) (model.MatchID, error) {
	now := time.Now().UTC()
	match := &model.Match{
		ID:        model.MatchID(uuid.NewString()),
		Player1ID: playerID,
		GameType:  gameType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(match)
	if err != nil {
		return "", err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, matchKey(match.ID), data, s.cfg.WaitingMatchTTL)
	pipe.Set(ctx, playerWaitingKey(playerID), string(match.ID), s.cfg.WaitingMatchTTL)
	pipe.RPush(ctx, waitingQueueKey(gameType), string(match.ID))
	pipe.SAdd(ctx, playerMatchesKey(playerID), string(match.ID))
	if _, err := pipe.Exec(ctx); err != nil {
		return "", err
	}
	return match.ID, nil
}

func (s *Storage) JoinWaitingMatch(ctx context.Context, id model.MatchID, player2ID model.PlayerID, firstPlayer model.Slot, state json.RawMessage) error {
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		match, err := getMatch(ctx, tx, id)
		if errors.Is(err, model.ErrMatchNotFound) {
			return model.ErrMatchNotWaiting
		}
		if err != nil {
			return err
		}
		if !match.IsWaiting() {
			return model.ErrMatchNotWaiting
		}

		match.Player2ID = player2ID
		match.CurrentPlayer = firstPlayer
		match.GameState = state
		match.InProgress = true
		match.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(match)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, matchKey(id), data, 0)
			pipe.LRem(ctx, waitingQueueKey(match.GameType), 0, string(id))
			pipe.Del(ctx, playerWaitingKey(match.Player1ID))
			pipe.Set(ctx, playerActiveKey(match.Player1ID), string(id), 0)
			pipe.Set(ctx, playerActiveKey(player2ID), string(id), 0)
			pipe.SAdd(ctx, playerMatchesKey(player2ID), string(id))
			return nil
		})
		return err
	}, matchKey(id))

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrMatchNotWaiting
	}
	return err
}

func (s *Storage) UpdateMatch(ctx context.Context, id model.MatchID, update model.MatchUpdate) error {
	return s.client.Watch(ctx, func(tx *redis.Tx) error {
		match, err := getMatch(ctx, tx, id)
		if err != nil {
			return err
		}
		if update.UpdatedAt.IsZero() {
			update.UpdatedAt = time.Now().UTC()
		}
		update.Apply(match)
		data, err := json.Marshal(match)
		if err != nil {
			return err
		}

		var stale []string
		if !match.InProgress {
			for _, p := range match.Players() {
				current, err := tx.Get(ctx, playerActiveKey(p)).Result()
				if err != nil && !errors.Is(err, redis.Nil) {
					return err
				}
				if current == string(id) {
					stale = append(stale, playerActiveKey(p))
				}
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, matchKey(id), data, 0)
			if len(stale) > 0 {
				pipe.Del(ctx, stale...)
			}
			return nil
		})
		return err
	}, matchKey(id))
}

func (s *Storage) DeleteMatch(ctx context.Context, id model.MatchID) error {
	match, err := s.GetMatch(ctx, id)
	if errors.Is(err, model.ErrMatchNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, matchKey(id))
	pipe.LRem(ctx, waitingQueueKey(match.GameType), 0, string(id))
	if match.IsWaiting() {
		pipe.Del(ctx, playerWaitingKey(match.Player1ID))
	}
	for _, p := range match.Players() {
		pipe.SRem(ctx, playerMatchesKey(p), string(id))
		if match.InProgress {
			pipe.Del(ctx, playerActiveKey(p))
		}
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) ListMatchesForPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Match, error) {
	ids, err := s.client.SMembers(ctx, playerMatchesKey(playerID)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = matchKey(model.MatchID(id))
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	matches := make([]*model.Match, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var match model.Match
		if err := json.Unmarshal([]byte(raw), &match); err != nil {
			return nil, err
		}
		matches = append(matches, &match)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches, nil
}

func (s *Storage) ApplyOutcomeToScores(ctx context.Context, match *model.Match) error {
	if match.Outcome == nil {
		return nil
	}
	p1, p2 := model.ScoreDeltas(*match.Outcome)

	for _, delta := range []struct {
		player model.PlayerID
		points int
	}{{match.Player1ID, p1}, {match.Player2ID, p2}} {
		exists, err := s.client.Exists(ctx, playerKey(delta.player)).Result()
		if err != nil {
			return err
		}
		if exists == 0 {
			continue
		}
		if err := s.client.ZIncrBy(ctx, scoresKey(), float64(delta.points), string(delta.player)).Err(); err != nil {
			return err
		}
	}
	return nil
}

// getMatch reads a match through any command issuer (client or transaction)
func getMatch(ctx context.Context, c redis.Cmdable, id model.MatchID) (*model.Match, error) {
	data, err := c.Get(ctx, matchKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrMatchNotFound
		}
		return nil, err
	}

	var match model.Match
	if err := json.Unmarshal(data, &match); err != nil {
		return nil, err
	}
	return &match, nil
}
