package factory

import (
	"context"
	"encoding/json"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/protocol"
	"github.com/curzel-it/battld/internal/services/registry"
	"github.com/curzel-it/battld/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

// connect authenticates a token and binds a fake connection to the player
func (s *IntegrationSuite) connect(token, connID string) (model.PlayerID, *testutil.FakeConn) {
	player, err := s.app.AuthService.Authenticate(s.ctx, token)
	s.Require().NoError(err)
	conn := testutil.NewFakeConn(connID)
	s.app.Orchestrator.Authenticate(s.ctx, player.ID, conn)
	return player.ID, conn
}

// pair queues both players for gameType; the first one waits and moves first
func (s *IntegrationSuite) pair(gameType model.GameType) (alice, bob model.PlayerID, aliceConn, bobConn *testutil.FakeConn) {
	_, aliceToken := s.app.RegisterPlayer("alice")
	_, bobToken := s.app.RegisterPlayer("bob")
	alice, aliceConn = s.connect(aliceToken, "c-alice")
	bob, bobConn = s.connect(bobToken, "c-bob")

	s.app.Orchestrator.Join(s.ctx, alice, string(gameType))
	s.app.MockRandom.QueueIntn(0)
	s.app.Orchestrator.Join(s.ctx, bob, string(gameType))

	s.Require().Equal(protocol.TypeMatchFound, aliceConn.Last().Type)
	s.Require().Equal(protocol.TypeMatchFound, bobConn.Last().Type)
	return alice, bob, aliceConn, bobConn
}

func (s *IntegrationSuite) move(player model.PlayerID, payload string) {
	s.app.Orchestrator.Move(s.ctx, player, "", json.RawMessage(payload))
}

func (s *IntegrationSuite) TestCompleteTicTacToeGame() {
	alice, bob, aliceConn, bobConn := s.pair(model.GameTypeTicTacToe)

	s.move(alice, `{"row":0,"col":0}`)
	s.move(bob, `{"row":1,"col":0}`)
	s.move(alice, `{"row":0,"col":1}`)
	s.move(bob, `{"row":1,"col":1}`)
	s.move(alice, `{"row":0,"col":2}`)

	for _, conn := range []*testutil.FakeConn{aliceConn, bobConn} {
		last := conn.Last()
		s.Equal(protocol.TypeMatchEnded, last.Type)
		s.Equal(model.EndReasonEnded, last.Reason)
	}

	aliceStats, err := s.app.StatsService.PlayerStats(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal(1, aliceStats.Won)
	s.Equal(model.ScoreWin, aliceStats.Score)

	board, err := s.app.StatsService.Leaderboard(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(board, 2)
	s.Equal(alice, board[0].PlayerID)
	s.Equal(bob, board[1].PlayerID)
	s.Equal(model.ScoreLoss, board[1].Score)

	s.Equal(float64(1), promtest.ToFloat64(s.app.Metrics.MatchesEnded.WithLabelValues("tris", string(model.EndReasonEnded))))
}

func (s *IntegrationSuite) TestDisconnectForfeitsAfterGrace() {
	alice, bob, aliceConn, bobConn := s.pair(model.GameTypeRPS)

	s.app.Orchestrator.Disconnect(s.ctx, bob, bobConn)
	s.Equal(protocol.TypePlayerDisconnected, aliceConn.Last().Type)
	s.Equal(registry.StateGracePeriod, s.app.Registry.State(bob))

	s.app.MockClock.Advance(registry.DefaultGracePeriod)

	last := aliceConn.Last()
	s.Equal(protocol.TypeMatchEnded, last.Type)
	s.Equal(model.EndReasonDisconnected, last.Reason)

	bobStats, err := s.app.StatsService.PlayerStats(s.ctx, bob)
	s.Require().NoError(err)
	s.Equal(1, bobStats.Dropped)
	s.Equal(model.ScoreLoss, bobStats.Score)

	aliceStats, err := s.app.StatsService.PlayerStats(s.ctx, alice)
	s.Require().NoError(err)
	s.Equal(1, aliceStats.Won)
}

func (s *IntegrationSuite) TestReconnectWithinGraceKeepsMatch() {
	_, bob, aliceConn, bobConn := s.pair(model.GameTypeBriscola)
	bobPlayer, err := s.app.Storage.GetPlayer(s.ctx, bob)
	s.Require().NoError(err)
	session, err := s.app.AuthService.IssueToken(bobPlayer)
	s.Require().NoError(err)

	s.app.Orchestrator.Disconnect(s.ctx, bob, bobConn)
	s.app.MockClock.Advance(registry.DefaultGracePeriod / 2)

	_, again := s.connect(session.Token, "c-bob-2")
	s.Equal(protocol.TypeResumableMatch, again.Last().Type)
	s.Equal(protocol.TypePlayerReconnected, aliceConn.Last().Type)

	s.app.MockClock.Advance(registry.DefaultGracePeriod)
	s.NotEqual(protocol.TypeMatchEnded, aliceConn.Last().Type)

	match, err := s.app.Storage.GetActiveMatchForPlayer(s.ctx, bob)
	s.Require().NoError(err)
	s.True(match.InProgress)
}
