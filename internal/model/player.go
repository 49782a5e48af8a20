package model

import "time"

// PlayerID uniquely identifies a player across the system
type PlayerID string

// Player is a registered participant
type Player struct {
	ID         PlayerID  `json:"id"`
	Name       string    `json:"name"`        // login name (unique)
	SecretHash string    `json:"secret_hash"` // bcrypt hash
	Score      int       `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}

// PlayerStats summarises a player's finished matches
type PlayerStats struct {
	PlayerID PlayerID `json:"player_id"`
	Name     string   `json:"name"`
	Won      int      `json:"won"`
	Lost     int      `json:"lost"`
	Drawn    int      `json:"drawn"`
	Dropped  int      `json:"dropped"` // lost by disconnecting
	Total    int      `json:"total"`
	Score    int      `json:"score"`
}

// LeaderboardEntry is one row of the score ranking
type LeaderboardEntry struct {
	Rank     int      `json:"rank"`
	PlayerID PlayerID `json:"player_id"`
	Name     string   `json:"name"`
	Score    int      `json:"score"`
}

// Score deltas applied when a match finishes
const (
	ScoreWin  = 3
	ScoreLoss = -1
	ScoreDraw = 1
)

// ScoreDeltas returns the score change for each slot of a finished match
func ScoreDeltas(outcome Outcome) (p1, p2 int) {
	switch outcome {
	case OutcomePlayer1Win:
		return ScoreWin, ScoreLoss
	case OutcomePlayer2Win:
		return ScoreLoss, ScoreWin
	default:
		return ScoreDraw, ScoreDraw
	}
}
