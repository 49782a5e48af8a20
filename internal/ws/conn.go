package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/protocol"
)

// connection is one upgraded client socket. It satisfies registry.Conn.
type connection struct {
	id      string
	ws      *websocket.Conn
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger

	send      chan protocol.ServerMessage
	done      chan struct{}
	closeOnce sync.Once

	// player is set once the connection authenticates; reader goroutine only
	player model.PlayerID
}

func newConnection(ws *websocket.Conn, cfg Config, logger *slog.Logger) *connection {
	id := uuid.NewString()
	return &connection{
		id:      id,
		ws:      ws,
		cfg:     cfg,
		limiter: rate.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		logger:  logger.With(slog.String("conn_id", id)),
		send:    make(chan protocol.ServerMessage, cfg.SendBuffer),
		done:    make(chan struct{}),
	}
}

func (c *connection) ID() string {
	return c.id
}

// Send queues msg without blocking. A full queue closes the connection; the
// client resynchronises when it reconnects.
func (c *connection) Send(msg protocol.ServerMessage) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	default:
		c.logger.Warn("outbound buffer full, closing connection",
			slog.String("player_id", string(c.player)))
		c.Close()
		return false
	}
}

// Close asks the writer to flush and hang up
func (c *connection) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *connection) writeLoop(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return err
			}

		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}

		case <-c.done:
			c.flush()
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return nil

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// flush writes whatever was queued before Close
func (c *connection) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *connection) write(msg protocol.ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("encode message", slog.String("error", err.Error()))
		return nil
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}
