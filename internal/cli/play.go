package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/curzel-it/battld/internal/protocol"
)

// errMatchOver ends a play session once the server reports the result
var errMatchOver = errors.New("match over")

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play <game-type>",
		Short: "Join matchmaking and play over the websocket",
		Long: `Connect to /ws, authenticate and join the queue for a game type
(tris, rps or briscola). An unfinished match is resumed instead.

Every line typed is sent as a move, for example:
  {"row":1,"col":1}        tris
  {"choice":"rock"}        rps
  {"card_index":0}         briscola

"leave" leaves the queue, "resume" asks for the current state again.
The session ends when the match ends. Press Ctrl+C to disconnect.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Token == "" {
				return errors.New("not logged in: run 'battld player login' first")
			}
			wsURL, err := websocketURL(cfg.ServerURL)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			return play(ctx, wsURL, cfg.Token, args[0], cmd.InOrStdin(), out)
		},
	}
}

// websocketURL derives the realtime endpoint from the API base URL
func websocketURL(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid server URL %q: unsupported scheme", server)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// parseInput turns a typed line into a client message
func parseInput(line string) (protocol.ClientMessage, error) {
	switch line {
	case "leave":
		return protocol.ClientMessage{Type: protocol.TypeLeaveMatchmaking}, nil
	case "resume":
		return protocol.ClientMessage{Type: protocol.TypeResumeMatch}, nil
	case "ping":
		return protocol.ClientMessage{Type: protocol.TypePing}, nil
	}
	if !json.Valid([]byte(line)) {
		return protocol.ClientMessage{}, errors.New(`moves are JSON objects, e.g. {"row":0,"col":2}`)
	}
	return protocol.ClientMessage{Type: protocol.TypeMakeMove, MoveData: json.RawMessage(line)}, nil
}

func play(ctx context.Context, wsURL, token, gameType string, in io.Reader, out *Output) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var writeMu sync.Mutex
	send := func(msg protocol.ClientMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	if err := send(protocol.ClientMessage{Type: protocol.TypeAuthenticate, Token: token}); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			var msg protocol.ServerMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("connection lost: %w", err)
			}
			out.Print(msg)

			switch msg.Type {
			case protocol.TypeAuthFailed:
				return fmt.Errorf("authentication failed: %s", msg.Message)
			case protocol.TypeAuthSuccess:
				if err := send(protocol.ClientMessage{Type: protocol.TypeJoinMatchmaking, GameType: gameType}); err != nil {
					return err
				}
			case protocol.TypeMatchEnded:
				return errMatchOver
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		_ = conn.Close()
		return nil
	})

	// stdin is never closed under us, so the scanner runs outside the group
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			msg, err := parseInput(line)
			if err != nil {
				out.PrintMessage(err.Error())
				continue
			}
			if err := send(msg); err != nil {
				return
			}
		}
	}()

	if err := g.Wait(); err != nil && !errors.Is(err, errMatchOver) {
		return err
	}
	return nil
}
