package matchmaking

import (
	"context"
	"errors"
	"log/slog"

	"github.com/curzel-it/battld/internal/dependencies/keylock"
	"github.com/curzel-it/battld/internal/dependencies/random"
	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/services/router"
	"github.com/curzel-it/battld/internal/storage"
)

// maxPairAttempts bounds the retries when a waiting match is taken concurrently
const maxPairAttempts = 5

// JoinKind describes how a join request was resolved
type JoinKind int

const (
	// JoinResumed means the player already had an in-progress match
	JoinResumed JoinKind = iota
	// JoinWaiting means the player sits in a queue
	JoinWaiting
	// JoinPaired means the player was seated in someone's waiting match
	JoinPaired
)

func (k JoinKind) String() string {
	switch k {
	case JoinResumed:
		return "resumed"
	case JoinWaiting:
		return "waiting"
	case JoinPaired:
		return "paired"
	}
	return "unknown"
}

// JoinResult is the outcome of Join
type JoinResult struct {
	Kind  JoinKind
	Match *model.Match
	// Queued is set when this call created the waiting match
	Queued bool
}

// Service pairs players into matches, one FIFO queue per game type
type Service struct {
	storage storage.Storage
	router  *router.Router
	random  random.Random
	locks   *keylock.Map[model.GameType]
	players *keylock.Map[model.PlayerID]
	logger  *slog.Logger
}

// New creates a matchmaking service
func New(storage storage.Storage, router *router.Router, random random.Random, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		router:  router,
		random:  random,
		locks:   keylock.New[model.GameType](),
		players: keylock.New[model.PlayerID](),
		logger:  logger.With(slog.String("component", "matchmaking")),
	}
}

// Join places the player in a match of gameType
func (s *Service) Join(ctx context.Context, playerID model.PlayerID, gameType model.GameType) (*JoinResult, error) {
	if !s.router.Supports(gameType) {
		return nil, model.ErrUnknownGameType
	}

	// Player before game type, so joins of different types by the same
	// player cannot both pass the checks below
	unlockPlayer := s.players.Lock(playerID)
	defer unlockPlayer()
	unlock := s.locks.Lock(gameType)
	defer unlock()

	// The waiting lookup goes first: a waiting match can still be paired by
	// someone else, after which it shows up as active. The reverse cannot
	// happen while the player lock is held.
	waiting, err := s.storage.GetWaitingMatchForPlayer(ctx, playerID)
	if err == nil {
		return &JoinResult{Kind: JoinWaiting, Match: waiting}, nil
	}
	if !errors.Is(err, model.ErrMatchNotFound) {
		return nil, err
	}

	// An in-progress match of any type wins over a new request
	active, err := s.storage.GetActiveMatchForPlayer(ctx, playerID)
	if err == nil {
		return &JoinResult{Kind: JoinResumed, Match: active}, nil
	}
	if !errors.Is(err, model.ErrMatchNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < maxPairAttempts; attempt++ {
		candidate, err := s.storage.FindWaitingMatch(ctx, playerID, gameType)
		if errors.Is(err, model.ErrMatchNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}

		match, err := s.pair(ctx, candidate, playerID)
		if errors.Is(err, model.ErrMatchNotWaiting) {
			s.logger.Debug("waiting match taken, retrying",
				slog.String("match_id", string(candidate.ID)),
				slog.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, err
		}
		return &JoinResult{Kind: JoinPaired, Match: match}, nil
	}

	id, err := s.storage.CreateWaitingMatch(ctx, playerID, gameType)
	if err != nil {
		return nil, err
	}
	match, err := s.storage.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("player queued",
		slog.String("player_id", string(playerID)),
		slog.String("game_type", string(gameType)),
		slog.String("match_id", string(id)))
	return &JoinResult{Kind: JoinWaiting, Match: match, Queued: true}, nil
}

func (s *Service) pair(ctx context.Context, candidate *model.Match, playerID model.PlayerID) (*model.Match, error) {
	first := model.Slot(s.random.Intn(2) + 1)
	state, err := s.router.InitialState(candidate.GameType, first, s.random)
	if err != nil {
		return nil, err
	}

	if err := s.storage.JoinWaitingMatch(ctx, candidate.ID, playerID, first, state); err != nil {
		return nil, err
	}

	match, err := s.storage.GetMatch(ctx, candidate.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("match paired",
		slog.String("match_id", string(match.ID)),
		slog.String("game_type", string(match.GameType)),
		slog.String("player1_id", string(match.Player1ID)),
		slog.String("player2_id", string(match.Player2ID)),
		slog.Int("first_player", int(first)))
	return match, nil
}

// Leave removes the player's waiting match. It returns the removed match,
// or nil when the player was not queued.
func (s *Service) Leave(ctx context.Context, playerID model.PlayerID) (*model.Match, error) {
	unlockPlayer := s.players.Lock(playerID)
	defer unlockPlayer()

	waiting, err := s.storage.GetWaitingMatchForPlayer(ctx, playerID)
	if errors.Is(err, model.ErrMatchNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(waiting.GameType)
	defer unlock()

	// Re-read under the lock: a pairing may have won the race
	current, err := s.storage.GetMatch(ctx, waiting.ID)
	if errors.Is(err, model.ErrMatchNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !current.IsWaiting() {
		return nil, nil
	}

	if err := s.storage.DeleteMatch(ctx, current.ID); err != nil {
		return nil, err
	}

	s.logger.Info("player left queue",
		slog.String("player_id", string(playerID)),
		slog.String("game_type", string(current.GameType)))
	return current, nil
}
