package storage

import (
	"context"
	"encoding/json"

	"github.com/curzel-it/battld/internal/model"
)

// Storage defines the interface for data persistence.
// Lookups that find nothing return model.ErrPlayerNotFound or model.ErrMatchNotFound.
type Storage interface {
	// Player operations
	SavePlayer(ctx context.Context, player *model.Player) error
	GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error)
	GetPlayerByName(ctx context.Context, name string) (*model.Player, error)
	ListPlayersByScore(ctx context.Context, limit int) ([]*model.Player, error)

	// Match operations
	GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error)
	// GetActiveMatchForPlayer returns the player's paired, in-progress match
	GetActiveMatchForPlayer(ctx context.Context, playerID model.PlayerID) (*model.Match, error)
	// GetWaitingMatchForPlayer returns the match the player is queued in
	GetWaitingMatchForPlayer(ctx context.Context, playerID model.PlayerID) (*model.Match, error)
	// FindWaitingMatch returns the oldest waiting match of gameType not owned by excludePlayerID
	FindWaitingMatch(ctx context.Context, excludePlayerID model.PlayerID, gameType model.GameType) (*model.Match, error)
	CreateWaitingMatch(ctx context.Context, playerID model.PlayerID, gameType model.GameType) (model.MatchID, error)
	// JoinWaitingMatch atomically seats player2 and starts the match.
	// It fails with model.ErrMatchNotWaiting if the match was joined or removed meanwhile.
	JoinWaitingMatch(ctx context.Context, id model.MatchID, player2ID model.PlayerID, firstPlayer model.Slot, state json.RawMessage) error
	UpdateMatch(ctx context.Context, id model.MatchID, update model.MatchUpdate) error
	DeleteMatch(ctx context.Context, id model.MatchID) error
	ListMatchesForPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Match, error)

	// ApplyOutcomeToScores adjusts both players' scores for a finished match
	ApplyOutcomeToScores(ctx context.Context, match *model.Match) error
}
