package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/curzel-it/battld/internal/metrics"
	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/protocol"
	"github.com/curzel-it/battld/internal/services/auth"
	"github.com/curzel-it/battld/internal/services/orchestrator"
)

// Authenticator resolves a bearer token to a player
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Player, error)
}

// Handler upgrades HTTP requests and runs the realtime session
type Handler struct {
	auth         Authenticator
	orchestrator *orchestrator.Orchestrator
	metrics      *metrics.Metrics
	cfg          Config
	upgrader     websocket.Upgrader
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewHandler creates a websocket Handler
func NewHandler(
	auth Authenticator,
	orchestrator *orchestrator.Orchestrator,
	metrics *metrics.Metrics,
	cfg Config,
	logger *slog.Logger,
) *Handler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Handler{
		auth:         auth,
		orchestrator: orchestrator,
		metrics:      metrics,
		cfg:          cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.With(slog.String("component", "ws")),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Shutdown closes every open session
func (h *Handler) Shutdown() {
	h.cancel()
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newConnection(ws, h.cfg, h.logger)
	h.metrics.Connections.Inc()
	defer h.metrics.Connections.Dec()

	c.logger.Debug("connection opened", slog.String("remote_addr", r.RemoteAddr))
	h.serve(c)
}

func (h *Handler) serve(c *connection) {
	g, ctx := errgroup.WithContext(h.ctx)
	g.Go(func() error { return c.writeLoop(ctx) })
	g.Go(func() error { return h.readLoop(ctx, c) })

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Debug("connection failed", slog.String("error", err.Error()))
	}

	if c.player != "" {
		h.orchestrator.Disconnect(context.Background(), c.player, c)
	}
	c.logger.Debug("connection closed", slog.String("player_id", string(c.player)))
}

func (h *Handler) readLoop(ctx context.Context, c *connection) error {
	defer c.Close()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.AuthTimeout))
	c.ws.SetPongHandler(func(string) error {
		if c.player == "" {
			return nil
		}
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read failed", slog.String("error", err.Error()))
			}
			return nil
		}
		if c.player != "" {
			_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		}

		if !c.limiter.Allow() {
			h.metrics.RateLimited.Inc()
			c.Send(protocol.ErrorFor(model.ErrRateLimited))
			continue
		}

		msg, err := protocol.DecodeClient(data)
		if err != nil {
			c.Send(protocol.ErrorFor(err))
			continue
		}
		if stop := h.dispatch(ctx, c, msg); stop {
			return nil
		}
	}
}

// dispatch handles one frame. It reports true when the connection must close.
func (h *Handler) dispatch(ctx context.Context, c *connection, msg *protocol.ClientMessage) bool {
	switch msg.Type {
	case protocol.TypePing:
		c.Send(protocol.Pong())
		return false
	case protocol.TypeAuthenticate:
		return h.authenticate(ctx, c, msg.Token)
	}

	if c.player == "" {
		c.Send(protocol.ErrorFor(model.ErrNotAuthenticated))
		return false
	}

	switch msg.Type {
	case protocol.TypeJoinMatchmaking:
		h.orchestrator.Join(ctx, c.player, msg.GameType)
	case protocol.TypeLeaveMatchmaking:
		h.orchestrator.Leave(ctx, c.player)
	case protocol.TypeResumeMatch:
		h.orchestrator.Resume(ctx, c.player)
	case protocol.TypeMakeMove:
		h.orchestrator.Move(ctx, c.player, msg.MatchID, msg.MoveData)
	}
	return false
}

func (h *Handler) authenticate(ctx context.Context, c *connection, token string) bool {
	if c.player != "" {
		c.Send(protocol.Error(protocol.CodeInvalidMessage, "already authenticated"))
		return false
	}

	player, err := h.auth.Authenticate(ctx, token)
	if err != nil {
		reason := "authentication unavailable"
		if errors.Is(err, auth.ErrInvalidToken) {
			reason = auth.ErrInvalidToken.Error()
		} else {
			c.logger.Error("authenticate", slog.String("error", err.Error()))
		}
		c.Send(protocol.AuthFailed(reason))
		return true
	}

	c.player = player.ID
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	h.orchestrator.Authenticate(ctx, player.ID, c)
	return false
}
