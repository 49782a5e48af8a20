package response

import (
	"time"

	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/services/auth"
)

// Player represents a player in API responses
type Player struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// PlayerFromModel converts a model.Player to a response Player
func PlayerFromModel(p *model.Player) Player {
	return Player{
		ID:        string(p.ID),
		Name:      p.Name,
		Score:     p.Score,
		CreatedAt: p.CreatedAt,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	Player    Player    `json:"player"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		Player:    PlayerFromModel(&s.Player),
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
	}
}

// Stats is a player's match record
type Stats struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Won      int    `json:"won"`
	Lost     int    `json:"lost"`
	Drawn    int    `json:"drawn"`
	Dropped  int    `json:"dropped"`
	Total    int    `json:"total"`
	Score    int    `json:"score"`
}

// StatsFromModel converts model.PlayerStats
func StatsFromModel(s *model.PlayerStats) Stats {
	return Stats{
		PlayerID: string(s.PlayerID),
		Name:     s.Name,
		Won:      s.Won,
		Lost:     s.Lost,
		Drawn:    s.Drawn,
		Dropped:  s.Dropped,
		Total:    s.Total,
		Score:    s.Score,
	}
}

// LeaderboardEntry is one ranked player
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

// Leaderboard is the response for the leaderboard endpoint
type Leaderboard struct {
	Entries []LeaderboardEntry `json:"entries"`
}

// LeaderboardFromModel converts ranked entries
func LeaderboardFromModel(entries []model.LeaderboardEntry) Leaderboard {
	out := Leaderboard{Entries: make([]LeaderboardEntry, len(entries))}
	for i, e := range entries {
		out.Entries[i] = LeaderboardEntry{
			Rank:     e.Rank,
			PlayerID: string(e.PlayerID),
			Name:     e.Name,
			Score:    e.Score,
		}
	}
	return out
}

// Health is the response for the health endpoint
type Health struct {
	Status string `json:"status"`
}
