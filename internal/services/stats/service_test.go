package stats

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/storage/memory"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.service = New(s.storage)
	s.ctx = context.Background()

	for _, name := range []string{"alice", "bob", "carol"} {
		s.Require().NoError(s.storage.SavePlayer(s.ctx, &model.Player{ID: model.PlayerID(name), Name: name}))
	}
}

func (s *ServiceSuite) play(p1, p2 model.PlayerID, outcome model.Outcome, reason model.EndReason) {
	id, err := s.storage.CreateWaitingMatch(s.ctx, p1, model.GameTypeRPS)
	s.Require().NoError(err)
	s.Require().NoError(s.storage.JoinWaitingMatch(s.ctx, id, p2, model.Slot1, json.RawMessage(`{}`)))
	s.Require().NoError(s.storage.UpdateMatch(s.ctx, id, model.MatchUpdate{
		Outcome:   &outcome,
		EndReason: &reason,
	}))
	match, err := s.storage.GetMatch(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NoError(s.storage.ApplyOutcomeToScores(s.ctx, match))
}

func (s *ServiceSuite) TestPlayerStats() {
	s.play("alice", "bob", model.OutcomePlayer1Win, model.EndReasonEnded)
	s.play("bob", "alice", model.OutcomePlayer1Win, model.EndReasonDisconnected)
	s.play("alice", "carol", model.OutcomeDraw, model.EndReasonEnded)

	// an unfinished match does not count
	id, err := s.storage.CreateWaitingMatch(s.ctx, "alice", model.GameTypeTicTacToe)
	s.Require().NoError(err)
	s.Require().NoError(s.storage.JoinWaitingMatch(s.ctx, id, "carol", model.Slot1, json.RawMessage(`{}`)))

	stats, err := s.service.PlayerStats(s.ctx, "alice")
	s.Require().NoError(err)

	s.Equal(model.PlayerStats{
		PlayerID: "alice",
		Name:     "alice",
		Won:      1,
		Lost:     1,
		Drawn:    1,
		Dropped:  1,
		Total:    3,
		Score:    3,
	}, *stats)
}

func (s *ServiceSuite) TestPlayerStatsUnknownPlayer() {
	_, err := s.service.PlayerStats(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *ServiceSuite) TestLeaderboard() {
	s.play("alice", "bob", model.OutcomePlayer1Win, model.EndReasonEnded)
	s.play("carol", "bob", model.OutcomeDraw, model.EndReasonEnded)

	entries, err := s.service.Leaderboard(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)

	s.Equal(model.LeaderboardEntry{Rank: 1, PlayerID: "alice", Name: "alice", Score: 3}, entries[0])
	s.Equal(model.LeaderboardEntry{Rank: 2, PlayerID: "carol", Name: "carol", Score: 1}, entries[1])
	s.Equal(model.LeaderboardEntry{Rank: 3, PlayerID: "bob", Name: "bob", Score: 0}, entries[2])

	top, err := s.service.Leaderboard(s.ctx, 1)
	s.Require().NoError(err)
	s.Len(top, 1)
}
