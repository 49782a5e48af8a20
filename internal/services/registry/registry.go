package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/curzel-it/battld/internal/dependencies/clock"
	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/protocol"
)

// DefaultGracePeriod is how long a dropped player may reconnect before forfeiting
const DefaultGracePeriod = 10 * time.Second

// Conn is an open channel to one client. Send must never block.
type Conn interface {
	ID() string
	Send(msg protocol.ServerMessage) bool
	Close()
}

// State is a player's connection state
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateGracePeriod
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateGracePeriod:
		return "grace_period"
	}
	return "disconnected"
}

// Registration reports what Register changed
type Registration struct {
	// Replaced is set when an older channel was closed in favour of the new one
	Replaced bool
	// Resumed is set when a running grace period was cancelled
	Resumed bool
	MatchID model.MatchID
}

// ExpiryFunc is called when a grace period runs out
type ExpiryFunc func(player model.PlayerID, match model.MatchID)

type entry struct {
	mu sync.Mutex

	conn  Conn
	state State

	// grace period bookkeeping; generation invalidates timers that lost a race
	match      model.MatchID
	timer      clock.Timer
	generation uint64

	forfeit model.MatchID
}

// Registry tracks one channel per player and the reconnection window
type Registry struct {
	mu      sync.RWMutex
	entries map[model.PlayerID]*entry

	clock    clock.Clock
	grace    time.Duration
	onExpire ExpiryFunc
	logger   *slog.Logger
}

// New creates a registry with the given grace period
func New(clock clock.Clock, grace time.Duration, logger *slog.Logger) *Registry {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Registry{
		entries: make(map[model.PlayerID]*entry),
		clock:   clock,
		grace:   grace,
		logger:  logger.With(slog.String("component", "registry")),
	}
}

// OnExpire sets the hook fired when a grace period expires. It must be set
// before the first StartGrace.
func (r *Registry) OnExpire(fn ExpiryFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = fn
}

// GracePeriod returns the configured reconnection window
func (r *Registry) GracePeriod() time.Duration {
	return r.grace
}

func (r *Registry) get(player model.PlayerID) *entry {
	r.mu.RLock()
	e := r.entries[player]
	r.mu.RUnlock()
	return e
}

func (r *Registry) getOrCreate(player model.PlayerID) *entry {
	if e := r.get(player); e != nil {
		return e
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[player]; ok {
		return e
	}
	e := &entry{}
	r.entries[player] = e
	return e
}

// Register binds conn to player, replacing any older channel
func (r *Registry) Register(player model.PlayerID, conn Conn) Registration {
	e := r.getOrCreate(player)

	e.mu.Lock()
	var reg Registration
	old := e.conn
	if old != nil && old.ID() != conn.ID() {
		reg.Replaced = true
	}
	if e.state == StateGracePeriod {
		if e.timer != nil {
			e.timer.Stop()
		}
		e.generation++
		e.timer = nil
		reg.Resumed = true
		reg.MatchID = e.match
		e.match = ""
	}
	e.conn = conn
	e.state = StateConnected
	e.mu.Unlock()

	if reg.Replaced {
		old.Close()
		r.logger.Info("connection replaced",
			slog.String("player_id", string(player)),
			slog.String("old_conn", old.ID()),
			slog.String("new_conn", conn.ID()))
	}
	if reg.Resumed {
		r.logger.Info("player reconnected within grace period",
			slog.String("player_id", string(player)),
			slog.String("match_id", string(reg.MatchID)))
	}
	return reg
}

// Unregister drops conn if it is still the player's current channel. It
// reports false for stale channels that were already replaced.
func (r *Registry) Unregister(player model.PlayerID, conn Conn) bool {
	e := r.get(player)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil || e.conn.ID() != conn.ID() {
		return false
	}
	e.conn = nil
	e.state = StateDisconnected
	return true
}

// StartGrace opens the reconnection window for a player whose channel dropped
// while in match
func (r *Registry) StartGrace(player model.PlayerID, match model.MatchID) {
	e := r.getOrCreate(player)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateConnected {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.generation++
	gen := e.generation
	e.state = StateGracePeriod
	e.match = match
	e.timer = r.clock.AfterFunc(r.grace, func() { r.expire(player, gen) })

	r.logger.Info("grace period started",
		slog.String("player_id", string(player)),
		slog.String("match_id", string(match)),
		slog.Duration("grace", r.grace))
}

func (r *Registry) expire(player model.PlayerID, gen uint64) {
	e := r.get(player)
	if e == nil {
		return
	}

	e.mu.Lock()
	if e.generation != gen || e.state != StateGracePeriod {
		e.mu.Unlock()
		return
	}
	match := e.match
	e.state = StateDisconnected
	e.match = ""
	e.timer = nil
	e.mu.Unlock()

	r.logger.Info("grace period expired",
		slog.String("player_id", string(player)),
		slog.String("match_id", string(match)))

	r.mu.RLock()
	hook := r.onExpire
	r.mu.RUnlock()
	if hook != nil {
		hook(player, match)
	}
}

// Send delivers msg to the player's channel. It reports false when the
// player has no channel or the channel refused the message.
func (r *Registry) Send(player model.PlayerID, msg protocol.ServerMessage) bool {
	e := r.get(player)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.conn == nil {
		return false
	}
	return e.conn.Send(msg)
}

// State returns the player's connection state
func (r *Registry) State(player model.PlayerID) State {
	e := r.get(player)
	if e == nil {
		return StateDisconnected
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Connected returns the number of players with an open channel
func (r *Registry) Connected() int {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	count := 0
	for _, e := range entries {
		e.mu.Lock()
		if e.state == StateConnected {
			count++
		}
		e.mu.Unlock()
	}
	return count
}

// NoteForfeit remembers that player lost match by not coming back in time
func (r *Registry) NoteForfeit(player model.PlayerID, match model.MatchID) {
	e := r.getOrCreate(player)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.forfeit = match
}

// TakeForfeit returns and clears a pending forfeit notice
func (r *Registry) TakeForfeit(player model.PlayerID) (model.MatchID, bool) {
	e := r.get(player)
	if e == nil {
		return "", false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	match := e.forfeit
	e.forfeit = ""
	return match, match != ""
}
