package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/curzel-it/battld/internal/dependencies/mocks"
	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/protocol"
	"github.com/curzel-it/battld/internal/testutil"
)

type expiry struct {
	player model.PlayerID
	match  model.MatchID
}

type RegistrySuite struct {
	suite.Suite
	clock    *mocks.MockClock
	registry *Registry
	expired  []expiry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.registry = New(s.clock, DefaultGracePeriod, testutil.NopLogger())
	s.expired = nil
	s.registry.OnExpire(func(player model.PlayerID, match model.MatchID) {
		s.expired = append(s.expired, expiry{player, match})
	})
}

func (s *RegistrySuite) TestRegisterAndSend() {
	conn := testutil.NewFakeConn("c1")
	reg := s.registry.Register("alice", conn)

	s.False(reg.Replaced)
	s.False(reg.Resumed)
	s.Equal(StateConnected, s.registry.State("alice"))
	s.Equal(1, s.registry.Connected())

	s.True(s.registry.Send("alice", protocol.Pong()))
	s.Equal([]protocol.MessageType{protocol.TypePong}, conn.Types())
}

func (s *RegistrySuite) TestSendWithoutChannelIsDropped() {
	s.False(s.registry.Send("nobody", protocol.Pong()))

	conn := testutil.NewFakeConn("c1")
	s.registry.Register("alice", conn)
	s.True(s.registry.Unregister("alice", conn))
	s.False(s.registry.Send("alice", protocol.Pong()))
	s.Empty(conn.Messages())
}

func (s *RegistrySuite) TestNewChannelReplacesOld() {
	old := testutil.NewFakeConn("c1")
	fresh := testutil.NewFakeConn("c2")
	s.registry.Register("alice", old)

	reg := s.registry.Register("alice", fresh)

	s.True(reg.Replaced)
	s.True(old.Closed())
	s.False(fresh.Closed())

	s.registry.Send("alice", protocol.Pong())
	s.Empty(old.Messages())
	s.Len(fresh.Messages(), 1)
}

func (s *RegistrySuite) TestStaleUnregisterIsIgnored() {
	old := testutil.NewFakeConn("c1")
	fresh := testutil.NewFakeConn("c2")
	s.registry.Register("alice", old)
	s.registry.Register("alice", fresh)

	s.False(s.registry.Unregister("alice", old))
	s.Equal(StateConnected, s.registry.State("alice"))
	s.True(s.registry.Send("alice", protocol.Pong()))
}

func (s *RegistrySuite) TestGraceExpires() {
	conn := testutil.NewFakeConn("c1")
	s.registry.Register("alice", conn)
	s.registry.Unregister("alice", conn)

	s.registry.StartGrace("alice", "m1")
	s.Equal(StateGracePeriod, s.registry.State("alice"))

	s.clock.Advance(9 * time.Second)
	s.Empty(s.expired)

	s.clock.Advance(time.Second)
	s.Equal([]expiry{{"alice", "m1"}}, s.expired)
	s.Equal(StateDisconnected, s.registry.State("alice"))
}

func (s *RegistrySuite) TestReconnectCancelsGrace() {
	conn := testutil.NewFakeConn("c1")
	s.registry.Register("alice", conn)
	s.registry.Unregister("alice", conn)
	s.registry.StartGrace("alice", "m1")

	s.clock.Advance(5 * time.Second)
	reg := s.registry.Register("alice", testutil.NewFakeConn("c2"))

	s.True(reg.Resumed)
	s.Equal(model.MatchID("m1"), reg.MatchID)
	s.Equal(0, s.clock.PendingTimers())

	s.clock.Advance(time.Minute)
	s.Empty(s.expired)
	s.Equal(StateConnected, s.registry.State("alice"))
}

func (s *RegistrySuite) TestSecondDropRestartsTheWindow() {
	first := testutil.NewFakeConn("c1")
	s.registry.Register("alice", first)
	s.registry.Unregister("alice", first)
	s.registry.StartGrace("alice", "m1")

	s.clock.Advance(8 * time.Second)
	second := testutil.NewFakeConn("c2")
	s.registry.Register("alice", second)
	s.registry.Unregister("alice", second)
	s.registry.StartGrace("alice", "m1")

	s.clock.Advance(8 * time.Second)
	s.Empty(s.expired)

	s.clock.Advance(2 * time.Second)
	s.Len(s.expired, 1)
}

func (s *RegistrySuite) TestStartGraceWhileConnectedIsIgnored() {
	s.registry.Register("alice", testutil.NewFakeConn("c1"))
	s.registry.StartGrace("alice", "m1")

	s.Equal(StateConnected, s.registry.State("alice"))
	s.Equal(0, s.clock.PendingTimers())
}

func (s *RegistrySuite) TestForfeitNotice() {
	_, ok := s.registry.TakeForfeit("alice")
	s.False(ok)

	s.registry.NoteForfeit("alice", "m1")
	match, ok := s.registry.TakeForfeit("alice")
	s.True(ok)
	s.Equal(model.MatchID("m1"), match)

	_, ok = s.registry.TakeForfeit("alice")
	s.False(ok, "notice is delivered once")
}

func (s *RegistrySuite) TestStateString() {
	s.Equal("connected", StateConnected.String())
	s.Equal("grace_period", StateGracePeriod.String())
	s.Equal("disconnected", StateDisconnected.String())
}
