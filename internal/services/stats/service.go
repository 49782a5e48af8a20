package stats

import (
	"context"

	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/storage"
)

// DefaultLeaderboardSize is used when no limit is requested
const DefaultLeaderboardSize = 10

// Service computes per-player records and the leaderboard
type Service struct {
	storage storage.Storage
}

// New creates a stats service
func New(storage storage.Storage) *Service {
	return &Service{storage: storage}
}

// PlayerStats tallies the player's finished matches
func (s *Service) PlayerStats(ctx context.Context, playerID model.PlayerID) (*model.PlayerStats, error) {
	player, err := s.storage.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	matches, err := s.storage.ListMatchesForPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	stats := &model.PlayerStats{
		PlayerID: player.ID,
		Name:     player.Name,
		Score:    player.Score,
	}
	for _, m := range matches {
		if m.InProgress || m.Outcome == nil {
			continue
		}
		slot, ok := m.SlotOf(playerID)
		if !ok {
			continue
		}

		stats.Total++
		winner := m.Outcome.Winner()
		switch {
		case winner == model.NoSlot:
			stats.Drawn++
		case winner == slot:
			stats.Won++
		default:
			stats.Lost++
			if m.EndReason != nil && *m.EndReason == model.EndReasonDisconnected {
				stats.Dropped++
			}
		}
	}
	return stats, nil
}

// Leaderboard ranks players by score, best first
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}
	players, err := s.storage.ListPlayersByScore(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, len(players))
	for i, p := range players {
		entries[i] = model.LeaderboardEntry{
			Rank:     i + 1,
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
		}
	}
	return entries, nil
}
