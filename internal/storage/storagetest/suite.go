// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/storage"
)

// Suite runs the storage contract against the backend returned by NewStorage
type Suite struct {
	suite.Suite

	// NewStorage returns a fresh, empty backend for each test
	NewStorage func(t *testing.T) storage.Storage

	store storage.Storage
	ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.store = s.NewStorage(s.T())
	s.ctx = context.Background()
}

func (s *Suite) savePlayer(id model.PlayerID, name string, score int) {
	err := s.store.SavePlayer(s.ctx, &model.Player{
		ID:         id,
		Name:       name,
		SecretHash: "hash-" + name,
		Score:      score,
		CreatedAt:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)
}

func (s *Suite) pair(p1, p2 model.PlayerID, gameType model.GameType) model.MatchID {
	id, err := s.store.CreateWaitingMatch(s.ctx, p1, gameType)
	s.Require().NoError(err)
	err = s.store.JoinWaitingMatch(s.ctx, id, p2, model.Slot1, json.RawMessage(`{"rounds":[[null,null]]}`))
	s.Require().NoError(err)
	return id
}

func (s *Suite) finish(id model.MatchID, outcome model.Outcome, reason model.EndReason) {
	err := s.store.UpdateMatch(s.ctx, id, model.MatchUpdate{
		CurrentPlayer: model.Slot1,
		GameState:     json.RawMessage(`{"rounds":[]}`),
		InProgress:    false,
		Outcome:       &outcome,
		EndReason:     &reason,
	})
	s.Require().NoError(err)
}

// Player tests

func (s *Suite) TestSaveAndGetPlayer() {
	s.savePlayer("p_alice", "alice", 5)

	player, err := s.store.GetPlayer(s.ctx, "p_alice")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p_alice"), player.ID)
	s.Equal("alice", player.Name)
	s.Equal("hash-alice", player.SecretHash)
	s.Equal(5, player.Score)
}

func (s *Suite) TestGetPlayerNotFound() {
	_, err := s.store.GetPlayer(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)

	_, err = s.store.GetPlayerByName(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrPlayerNotFound)
}

func (s *Suite) TestGetPlayerByName() {
	s.savePlayer("p_bob", "bob", 0)

	player, err := s.store.GetPlayerByName(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(model.PlayerID("p_bob"), player.ID)
}

func (s *Suite) TestListPlayersByScore() {
	s.savePlayer("p_a", "alice", 3)
	s.savePlayer("p_b", "bob", 10)
	s.savePlayer("p_c", "carol", -1)

	players, err := s.store.ListPlayersByScore(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(players, 2)
	s.Equal("bob", players[0].Name)
	s.Equal(10, players[0].Score)
	s.Equal("alice", players[1].Name)

	all, err := s.store.ListPlayersByScore(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(all, 3)
	s.Equal("carol", all[2].Name)
}

// Waiting queue tests

func (s *Suite) TestCreateWaitingMatch() {
	id, err := s.store.CreateWaitingMatch(s.ctx, "alice", model.GameTypeTicTacToe)
	s.Require().NoError(err)
	s.NotEmpty(id)

	match, err := s.store.GetMatch(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice"), match.Player1ID)
	s.True(match.IsWaiting())
	s.False(match.InProgress)
	s.Nil(match.Outcome)
	s.Equal(model.GameTypeTicTacToe, match.GameType)
}

func (s *Suite) TestGetMatchNotFound() {
	_, err := s.store.GetMatch(s.ctx, "missing")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *Suite) TestFindWaitingMatchExcludesOwnMatches() {
	_, err := s.store.CreateWaitingMatch(s.ctx, "alice", model.GameTypeRPS)
	s.Require().NoError(err)

	_, err = s.store.FindWaitingMatch(s.ctx, "alice", model.GameTypeRPS)
	s.ErrorIs(err, model.ErrMatchNotFound)

	match, err := s.store.FindWaitingMatch(s.ctx, "bob", model.GameTypeRPS)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("alice"), match.Player1ID)
}

func (s *Suite) TestFindWaitingMatchFiltersGameType() {
	_, err := s.store.CreateWaitingMatch(s.ctx, "alice", model.GameTypeTicTacToe)
	s.Require().NoError(err)

	_, err = s.store.FindWaitingMatch(s.ctx, "bob", model.GameTypeRPS)
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *Suite) TestFindWaitingMatchReturnsOldestFirst() {
	first, err := s.store.CreateWaitingMatch(s.ctx, "alice", model.GameTypeBriscola)
	s.Require().NoError(err)
	_, err = s.store.CreateWaitingMatch(s.ctx, "carol", model.GameTypeBriscola)
	s.Require().NoError(err)

	match, err := s.store.FindWaitingMatch(s.ctx, "bob", model.GameTypeBriscola)
	s.Require().NoError(err)
	s.Equal(first, match.ID)
}

func (s *Suite) TestGetWaitingMatchForPlayer() {
	id, err := s.store.CreateWaitingMatch(s.ctx, "alice", model.GameTypeRPS)
	s.Require().NoError(err)

	match, err := s.store.GetWaitingMatchForPlayer(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal(id, match.ID)

	_, err = s.store.GetWaitingMatchForPlayer(s.ctx, "bob")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

// Pairing tests

func (s *Suite) TestJoinWaitingMatchStartsMatch() {
	id, err := s.store.CreateWaitingMatch(s.ctx, "alice", model.GameTypeRPS)
	s.Require().NoError(err)

	state := json.RawMessage(`{"rounds":[[null,null]]}`)
	err = s.store.JoinWaitingMatch(s.ctx, id, "bob", model.Slot2, state)
	s.Require().NoError(err)

	match, err := s.store.GetMatch(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("bob"), match.Player2ID)
	s.True(match.InProgress)
	s.Equal(model.Slot2, match.CurrentPlayer)
	s.JSONEq(string(state), string(match.GameState))
	s.Nil(match.Outcome)

	_, err = s.store.FindWaitingMatch(s.ctx, "carol", model.GameTypeRPS)
	s.ErrorIs(err, model.ErrMatchNotFound, "joined match leaves the queue")

	_, err = s.store.GetWaitingMatchForPlayer(s.ctx, "alice")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *Suite) TestJoinWaitingMatchOnlyOnce() {
	id, err := s.store.CreateWaitingMatch(s.ctx, "alice", model.GameTypeRPS)
	s.Require().NoError(err)
	s.Require().NoError(s.store.JoinWaitingMatch(s.ctx, id, "bob", model.Slot1, json.RawMessage(`{}`)))

	err = s.store.JoinWaitingMatch(s.ctx, id, "carol", model.Slot1, json.RawMessage(`{}`))
	s.ErrorIs(err, model.ErrMatchNotWaiting)

	match, err := s.store.GetMatch(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(model.PlayerID("bob"), match.Player2ID)
}

func (s *Suite) TestJoinDeletedMatchFails() {
	id, err := s.store.CreateWaitingMatch(s.ctx, "alice", model.GameTypeRPS)
	s.Require().NoError(err)
	s.Require().NoError(s.store.DeleteMatch(s.ctx, id))

	err = s.store.JoinWaitingMatch(s.ctx, id, "bob", model.Slot1, json.RawMessage(`{}`))
	s.ErrorIs(err, model.ErrMatchNotWaiting)
}

func (s *Suite) TestConcurrentJoinsSeatExactlyOnePlayer() {
	id, err := s.store.CreateWaitingMatch(s.ctx, "alice", model.GameTypeTicTacToe)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.store.JoinWaitingMatch(s.ctx, id, model.PlayerID(fmt.Sprintf("p%d", i)), model.Slot1, json.RawMessage(`{}`))
		}(i)
	}
	wg.Wait()

	joined := 0
	for _, err := range results {
		if err == nil {
			joined++
		} else {
			s.ErrorIs(err, model.ErrMatchNotWaiting)
		}
	}
	s.Equal(1, joined)
}

// Active match tests

func (s *Suite) TestGetActiveMatchForPlayer() {
	id := s.pair("alice", "bob", model.GameTypeRPS)

	for _, p := range []model.PlayerID{"alice", "bob"} {
		match, err := s.store.GetActiveMatchForPlayer(s.ctx, p)
		s.Require().NoError(err)
		s.Equal(id, match.ID)
	}

	_, err := s.store.GetActiveMatchForPlayer(s.ctx, "carol")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *Suite) TestWaitingMatchIsNotActive() {
	_, err := s.store.CreateWaitingMatch(s.ctx, "alice", model.GameTypeRPS)
	s.Require().NoError(err)

	_, err = s.store.GetActiveMatchForPlayer(s.ctx, "alice")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *Suite) TestUpdateMatch() {
	id := s.pair("alice", "bob", model.GameTypeTicTacToe)

	err := s.store.UpdateMatch(s.ctx, id, model.MatchUpdate{
		CurrentPlayer: model.Slot2,
		GameState:     json.RawMessage(`{"board":[1,0,0,0,0,0,0,0,0]}`),
		InProgress:    true,
	})
	s.Require().NoError(err)

	match, err := s.store.GetMatch(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(model.Slot2, match.CurrentPlayer)
	s.JSONEq(`{"board":[1,0,0,0,0,0,0,0,0]}`, string(match.GameState))
	s.True(match.InProgress)
}

func (s *Suite) TestFinishedMatchIsNoLongerActive() {
	id := s.pair("alice", "bob", model.GameTypeRPS)
	s.finish(id, model.OutcomePlayer2Win, model.EndReasonDisconnected)

	_, err := s.store.GetActiveMatchForPlayer(s.ctx, "alice")
	s.ErrorIs(err, model.ErrMatchNotFound)

	match, err := s.store.GetMatch(s.ctx, id)
	s.Require().NoError(err)
	s.False(match.InProgress)
	s.Require().NotNil(match.Outcome)
	s.Equal(model.OutcomePlayer2Win, *match.Outcome)
	s.Require().NotNil(match.EndReason)
	s.Equal(model.EndReasonDisconnected, *match.EndReason)
}

func (s *Suite) TestUpdateMissingMatch() {
	err := s.store.UpdateMatch(s.ctx, "missing", model.MatchUpdate{InProgress: true})
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *Suite) TestDeleteMatch() {
	id, err := s.store.CreateWaitingMatch(s.ctx, "alice", model.GameTypeRPS)
	s.Require().NoError(err)

	s.Require().NoError(s.store.DeleteMatch(s.ctx, id))

	_, err = s.store.GetMatch(s.ctx, id)
	s.ErrorIs(err, model.ErrMatchNotFound)
	_, err = s.store.FindWaitingMatch(s.ctx, "bob", model.GameTypeRPS)
	s.ErrorIs(err, model.ErrMatchNotFound)
	_, err = s.store.GetWaitingMatchForPlayer(s.ctx, "alice")
	s.ErrorIs(err, model.ErrMatchNotFound)
}

func (s *Suite) TestListMatchesForPlayer() {
	first := s.pair("alice", "bob", model.GameTypeRPS)
	s.finish(first, model.OutcomePlayer1Win, model.EndReasonEnded)
	second := s.pair("carol", "alice", model.GameTypeTicTacToe)
	_ = s.pair("bob", "carol", model.GameTypeBriscola)

	matches, err := s.store.ListMatchesForPlayer(s.ctx, "alice")
	s.Require().NoError(err)
	s.Require().Len(matches, 2)

	ids := []model.MatchID{matches[0].ID, matches[1].ID}
	s.ElementsMatch([]model.MatchID{first, second}, ids)
}

// Score tests

func (s *Suite) TestApplyOutcomeDecisive() {
	s.savePlayer("alice", "alice", 0)
	s.savePlayer("bob", "bob", 0)
	id := s.pair("alice", "bob", model.GameTypeRPS)
	s.finish(id, model.OutcomePlayer1Win, model.EndReasonEnded)

	match, err := s.store.GetMatch(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NoError(s.store.ApplyOutcomeToScores(s.ctx, match))

	alice, err := s.store.GetPlayer(s.ctx, "alice")
	s.Require().NoError(err)
	bob, err := s.store.GetPlayer(s.ctx, "bob")
	s.Require().NoError(err)
	s.Equal(3, alice.Score)
	s.Equal(-1, bob.Score)

	board, err := s.store.ListPlayersByScore(s.ctx, 10)
	s.Require().NoError(err)
	s.Equal("alice", board[0].Name)
}

func (s *Suite) TestApplyOutcomeDraw() {
	s.savePlayer("alice", "alice", 2)
	s.savePlayer("bob", "bob", 0)
	id := s.pair("alice", "bob", model.GameTypeTicTacToe)
	s.finish(id, model.OutcomeDraw, model.EndReasonEnded)

	match, err := s.store.GetMatch(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NoError(s.store.ApplyOutcomeToScores(s.ctx, match))

	alice, _ := s.store.GetPlayer(s.ctx, "alice")
	bob, _ := s.store.GetPlayer(s.ctx, "bob")
	s.Equal(3, alice.Score)
	s.Equal(1, bob.Score)
}

func (s *Suite) TestApplyOutcomeWithoutOutcomeIsNoop() {
	s.savePlayer("alice", "alice", 0)
	id := s.pair("alice", "bob", model.GameTypeRPS)

	match, err := s.store.GetMatch(s.ctx, id)
	s.Require().NoError(err)
	s.Require().NoError(s.store.ApplyOutcomeToScores(s.ctx, match))

	alice, _ := s.store.GetPlayer(s.ctx, "alice")
	s.Equal(0, alice.Score)
}
