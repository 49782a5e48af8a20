// Package orchestrator drives matches from the realtime connections: it
// authenticates channels, queues players, applies moves and resolves
// disconnections. Every operation returns the messages it delivered.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/curzel-it/battld/internal/dependencies/clock"
	"github.com/curzel-it/battld/internal/dependencies/keylock"
	"github.com/curzel-it/battld/internal/metrics"
	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/protocol"
	"github.com/curzel-it/battld/internal/services/matchmaking"
	"github.com/curzel-it/battld/internal/services/registry"
	"github.com/curzel-it/battld/internal/services/router"
	"github.com/curzel-it/battld/internal/storage"
)

// Outgoing is one message addressed to one player
type Outgoing struct {
	PlayerID model.PlayerID
	Message  protocol.ServerMessage
}

// Orchestrator coordinates matchmaking, routing and delivery
type Orchestrator struct {
	storage    storage.Storage
	router     *router.Router
	matchmaker *matchmaking.Service
	registry   *registry.Registry
	metrics    *metrics.Metrics
	clock      clock.Clock
	locks      *keylock.Map[model.MatchID]
	logger     *slog.Logger
}

// New creates an Orchestrator and hooks it to the registry's grace expiry
func New(
	storage storage.Storage,
	router *router.Router,
	matchmaker *matchmaking.Service,
	registry *registry.Registry,
	metrics *metrics.Metrics,
	clock clock.Clock,
	logger *slog.Logger,
) *Orchestrator {
	o := &Orchestrator{
		storage:    storage,
		router:     router,
		matchmaker: matchmaker,
		registry:   registry,
		metrics:    metrics,
		clock:      clock,
		locks:      keylock.New[model.MatchID](),
		logger:     logger.With(slog.String("component", "orchestrator")),
	}
	registry.OnExpire(o.onGraceExpired)
	return o
}

// Authenticate binds an authenticated channel to the player and tells them
// about anything they missed
func (o *Orchestrator) Authenticate(ctx context.Context, playerID model.PlayerID, conn registry.Conn) []Outgoing {
	ctx = context.WithoutCancel(ctx)
	reg := o.registry.Register(playerID, conn)
	o.metrics.Players.Set(float64(o.registry.Connected()))

	out := []Outgoing{{playerID, protocol.AuthSuccess(playerID)}}

	if reg.Resumed {
		o.metrics.GracePeriods.WithLabelValues(metrics.GraceResumed).Inc()
		match, err := o.storage.GetMatch(ctx, reg.MatchID)
		if err != nil {
			o.logError("load resumed match", err, slog.String("match_id", string(reg.MatchID)))
		} else if match.InProgress {
			out = append(out, Outgoing{match.OpponentOf(playerID), protocol.PlayerReconnected(playerID)})
		}
	}

	if matchID, ok := o.registry.TakeForfeit(playerID); ok {
		match, err := o.storage.GetMatch(ctx, matchID)
		if err != nil {
			o.logError("load forfeited match", err, slog.String("match_id", string(matchID)))
		} else {
			out = append(out, o.finalNotice(match, playerID)...)
		}
	}

	match, err := o.ResumableMatchFor(ctx, playerID)
	switch {
	case err == nil:
		out = append(out, Outgoing{playerID, protocol.ResumableMatch(match)})
	case !errors.Is(err, model.ErrNoActiveMatch):
		o.logError("look up resumable match", err, slog.String("player_id", string(playerID)))
	}

	o.logger.Info("player authenticated",
		slog.String("player_id", string(playerID)),
		slog.String("conn_id", conn.ID()),
		slog.Bool("replaced", reg.Replaced),
		slog.Bool("resumed", reg.Resumed))
	return o.deliver(out)
}

// ResumableMatchFor returns the player's in-progress match as they may see it
func (o *Orchestrator) ResumableMatchFor(ctx context.Context, playerID model.PlayerID) (*model.Match, error) {
	match, err := o.storage.GetActiveMatchForPlayer(ctx, playerID)
	if errors.Is(err, model.ErrMatchNotFound) {
		return nil, model.ErrNoActiveMatch
	}
	if err != nil {
		return nil, err
	}
	return o.router.Redact(match, playerID)
}

// Join queues the player for gameType, pairing them when someone is waiting
func (o *Orchestrator) Join(ctx context.Context, playerID model.PlayerID, gameTypeTag string) []Outgoing {
	ctx = context.WithoutCancel(ctx)

	gameType, err := model.ParseGameType(gameTypeTag)
	if err != nil {
		return o.reject(playerID, err)
	}

	result, err := o.matchmaker.Join(ctx, playerID, gameType)
	if err != nil {
		return o.reject(playerID, err)
	}

	match := result.Match
	var out []Outgoing
	switch result.Kind {
	case matchmaking.JoinResumed:
		view, err := o.router.Redact(match, playerID)
		if err != nil {
			return o.reject(playerID, err)
		}
		out = append(out, Outgoing{playerID, protocol.GameStateUpdate(view)})

	case matchmaking.JoinWaiting:
		if result.Queued {
			o.metrics.Waiting.WithLabelValues(string(match.GameType)).Inc()
		}
		out = append(out, Outgoing{playerID, protocol.WaitingForOpponent(match.GameType)})

	case matchmaking.JoinPaired:
		o.metrics.Waiting.WithLabelValues(string(match.GameType)).Dec()
		o.metrics.MatchesStarted.WithLabelValues(string(match.GameType)).Inc()
		for _, p := range match.Players() {
			view, err := o.router.Redact(match, p)
			if err != nil {
				o.logError("redact new match", err, slog.String("match_id", string(match.ID)))
				continue
			}
			out = append(out, Outgoing{p, protocol.MatchFound(view)})
		}
	}
	return o.deliver(out)
}

// Leave takes the player out of the queue they are waiting in
func (o *Orchestrator) Leave(ctx context.Context, playerID model.PlayerID) []Outgoing {
	ctx = context.WithoutCancel(ctx)

	left, err := o.matchmaker.Leave(ctx, playerID)
	if err != nil {
		return o.reject(playerID, err)
	}
	if left != nil {
		o.metrics.Waiting.WithLabelValues(string(left.GameType)).Dec()
	}
	return o.deliver([]Outgoing{{playerID, protocol.LeftMatchmaking()}})
}

// Resume re-sends the current state of the player's match to both players
func (o *Orchestrator) Resume(ctx context.Context, playerID model.PlayerID) []Outgoing {
	ctx = context.WithoutCancel(ctx)

	match, err := o.storage.GetActiveMatchForPlayer(ctx, playerID)
	if errors.Is(err, model.ErrMatchNotFound) {
		return o.reject(playerID, model.ErrNoActiveMatch)
	}
	if err != nil {
		return o.reject(playerID, err)
	}
	return o.deliver(o.stateUpdates(match))
}

// Move applies a move to matchID, or to the player's active match when
// matchID is empty
func (o *Orchestrator) Move(ctx context.Context, playerID model.PlayerID, matchID model.MatchID, payload json.RawMessage) []Outgoing {
	ctx = context.WithoutCancel(ctx)

	if matchID == "" {
		active, err := o.storage.GetActiveMatchForPlayer(ctx, playerID)
		if errors.Is(err, model.ErrMatchNotFound) {
			return o.reject(playerID, model.ErrNoActiveMatch)
		}
		if err != nil {
			return o.reject(playerID, err)
		}
		matchID = active.ID
	}

	unlock := o.locks.Lock(matchID)
	defer unlock()

	match, err := o.storage.GetMatch(ctx, matchID)
	if errors.Is(err, model.ErrMatchNotFound) {
		return o.reject(playerID, model.ErrNoActiveMatch)
	}
	if err != nil {
		return o.reject(playerID, err)
	}

	result, err := o.router.Route(match, playerID, payload)
	if err != nil {
		label := metrics.MoveRejected
		if !model.IsRejection(err) {
			label = metrics.MoveFailed
		}
		o.metrics.Moves.WithLabelValues(string(match.GameType), label).Inc()
		return o.reject(playerID, err, slog.String("match_id", string(match.ID)))
	}

	update := model.MatchUpdate{
		CurrentPlayer: result.CurrentPlayer,
		GameState:     result.State,
		InProgress:    !result.Finished,
		Outcome:       result.Outcome,
		UpdatedAt:     o.clock.Now(),
	}
	if result.Finished {
		reason := model.EndReasonEnded
		update.EndReason = &reason
	}
	if err := o.storage.UpdateMatch(ctx, match.ID, update); err != nil {
		o.metrics.Moves.WithLabelValues(string(match.GameType), metrics.MoveFailed).Inc()
		return o.reject(playerID, err, slog.String("match_id", string(match.ID)))
	}
	update.Apply(match)
	o.metrics.Moves.WithLabelValues(string(match.GameType), metrics.MoveAccepted).Inc()

	out := o.stateUpdates(match)
	if result.Finished {
		o.finish(ctx, match)
		for _, p := range match.Players() {
			out = append(out, Outgoing{p, protocol.MatchEnded(model.EndReasonEnded)})
		}
	}
	return o.deliver(out)
}

// Disconnect handles a closed channel. Stale channels that were already
// replaced are ignored.
func (o *Orchestrator) Disconnect(ctx context.Context, playerID model.PlayerID, conn registry.Conn) []Outgoing {
	ctx = context.WithoutCancel(ctx)

	if !o.registry.Unregister(playerID, conn) {
		return nil
	}
	o.metrics.Players.Set(float64(o.registry.Connected()))

	left, err := o.matchmaker.Leave(ctx, playerID)
	if err != nil {
		o.logError("leave queue on disconnect", err, slog.String("player_id", string(playerID)))
	} else if left != nil {
		o.metrics.Waiting.WithLabelValues(string(left.GameType)).Dec()
	}

	match, err := o.storage.GetActiveMatchForPlayer(ctx, playerID)
	if err != nil {
		if !errors.Is(err, model.ErrMatchNotFound) {
			o.logError("look up match on disconnect", err, slog.String("player_id", string(playerID)))
		}
		o.logger.Info("player disconnected", slog.String("player_id", string(playerID)))
		return nil
	}

	o.registry.StartGrace(playerID, match.ID)
	o.metrics.GracePeriods.WithLabelValues(metrics.GraceStarted).Inc()
	o.logger.Info("player disconnected, holding match",
		slog.String("player_id", string(playerID)),
		slog.String("match_id", string(match.ID)),
		slog.Duration("grace", o.registry.GracePeriod()))

	return o.deliver([]Outgoing{{match.OpponentOf(playerID), protocol.PlayerDisconnected(playerID)}})
}

// onGraceExpired forfeits the match of a player who did not come back in time
func (o *Orchestrator) onGraceExpired(playerID model.PlayerID, matchID model.MatchID) {
	ctx := context.Background()

	unlock := o.locks.Lock(matchID)
	defer unlock()

	match, err := o.storage.GetMatch(ctx, matchID)
	if err != nil {
		o.logError("load match on grace expiry", err, slog.String("match_id", string(matchID)))
		return
	}
	if !match.InProgress {
		return
	}
	slot, ok := match.SlotOf(playerID)
	if !ok {
		return
	}

	outcome := model.WinFor(slot.Other())
	reason := model.EndReasonDisconnected
	update := model.MatchUpdate{
		CurrentPlayer: match.CurrentPlayer,
		GameState:     match.GameState,
		InProgress:    false,
		Outcome:       &outcome,
		EndReason:     &reason,
		UpdatedAt:     o.clock.Now(),
	}
	if err := o.storage.UpdateMatch(ctx, match.ID, update); err != nil {
		o.logError("forfeit match", err, slog.String("match_id", string(matchID)))
		return
	}
	update.Apply(match)
	o.finish(ctx, match)
	o.metrics.GracePeriods.WithLabelValues(metrics.GraceForfeited).Inc()

	out := o.finalNotice(match, match.OpponentOf(playerID))
	if o.registry.State(playerID) == registry.StateConnected {
		out = append(out, o.finalNotice(match, playerID)...)
	} else {
		o.registry.NoteForfeit(playerID, match.ID)
	}
	o.deliver(out)
}

// finish applies scores and records a terminal match
func (o *Orchestrator) finish(ctx context.Context, match *model.Match) {
	if err := o.storage.ApplyOutcomeToScores(ctx, match); err != nil {
		o.logError("apply scores", err, slog.String("match_id", string(match.ID)))
	}

	reason := model.EndReasonEnded
	if match.EndReason != nil {
		reason = *match.EndReason
	}
	outcome := ""
	if match.Outcome != nil {
		outcome = string(*match.Outcome)
	}
	o.metrics.MatchesEnded.WithLabelValues(string(match.GameType), string(reason)).Inc()
	o.logger.Info("match ended",
		slog.String("match_id", string(match.ID)),
		slog.String("game_type", string(match.GameType)),
		slog.String("outcome", outcome),
		slog.String("reason", string(reason)))
}

// stateUpdates builds a game_state_update for each player, redacted for them
func (o *Orchestrator) stateUpdates(match *model.Match) []Outgoing {
	out := make([]Outgoing, 0, 2)
	for _, p := range match.Players() {
		view, err := o.router.Redact(match, p)
		if err != nil {
			o.logError("redact match", err, slog.String("match_id", string(match.ID)))
			continue
		}
		out = append(out, Outgoing{p, protocol.GameStateUpdate(view)})
	}
	return out
}

// finalNotice tells one player the final state of a finished match
func (o *Orchestrator) finalNotice(match *model.Match, playerID model.PlayerID) []Outgoing {
	view, err := o.router.Redact(match, playerID)
	if err != nil {
		o.logError("redact final state", err, slog.String("match_id", string(match.ID)))
		return nil
	}
	reason := model.EndReasonEnded
	if match.EndReason != nil {
		reason = *match.EndReason
	}
	return []Outgoing{
		{playerID, protocol.GameStateUpdate(view)},
		{playerID, protocol.MatchEnded(reason)},
	}
}

// reject answers the sender alone with an error frame
func (o *Orchestrator) reject(playerID model.PlayerID, err error, attrs ...any) []Outgoing {
	attrs = append(attrs, slog.String("player_id", string(playerID)), slog.String("error", err.Error()))
	if model.IsRejection(err) {
		o.logger.Debug("request rejected", attrs...)
	} else {
		o.logger.Error("request failed", attrs...)
	}
	return o.deliver([]Outgoing{{playerID, protocol.ErrorFor(err)}})
}

func (o *Orchestrator) deliver(out []Outgoing) []Outgoing {
	for _, msg := range out {
		if !o.registry.Send(msg.PlayerID, msg.Message) {
			o.logger.Debug("message not delivered",
				slog.String("player_id", string(msg.PlayerID)),
				slog.String("type", string(msg.Message.Type)))
		}
	}
	return out
}

func (o *Orchestrator) logError(msg string, err error, attrs ...any) {
	attrs = append(attrs, slog.String("error", err.Error()))
	o.logger.Error(msg, attrs...)
}
