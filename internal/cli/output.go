package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/curzel-it/battld/internal/api/response"
	"github.com/curzel-it/battld/internal/protocol"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Fprintln(o.w, string(data))
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	// Server messages stream one per line
	if msg, ok := data.(protocol.ServerMessage); ok {
		line, _ := json.Marshal(msg)
		fmt.Fprintln(o.w, string(line))
		return
	}
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Player:
		o.printPlayer(v)
	case response.AuthResponse:
		o.printAuthResult(v)
	case response.Stats:
		o.printStats(v)
	case response.Leaderboard:
		o.printLeaderboard(v)
	case response.Health:
		fmt.Fprintf(o.w, "Status: %s\n", v.Status)
	case protocol.ServerMessage:
		o.printServerMessage(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printPlayer(p response.Player) {
	fmt.Fprintf(o.w, "Player: %s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(o.w, "Score: %d\n", p.Score)
}

func (o *Output) printAuthResult(a response.AuthResponse) {
	o.printPlayer(a.Player)
	fmt.Fprintf(o.w, "Token expires: %s\n", a.ExpiresAt.Format("2006-01-02 15:04:05"))
}

func (o *Output) printStats(s response.Stats) {
	fmt.Fprintf(o.w, "Player: %s (%s)\n", s.Name, s.PlayerID)
	fmt.Fprintf(o.w, "Score: %d\n", s.Score)
	fmt.Fprintf(o.w, "Matches: %d (won %d, lost %d, drawn %d)\n", s.Total, s.Won, s.Lost, s.Drawn)
	if s.Dropped > 0 {
		fmt.Fprintf(o.w, "Forfeited by disconnecting: %d\n", s.Dropped)
	}
}

func (o *Output) printLeaderboard(l response.Leaderboard) {
	if len(l.Entries) == 0 {
		fmt.Fprintln(o.w, "No players yet")
		return
	}
	for _, e := range l.Entries {
		fmt.Fprintf(o.w, "%3d. %-32s %6d\n", e.Rank, e.Name, e.Score)
	}
}

func (o *Output) printServerMessage(m protocol.ServerMessage) {
	var b strings.Builder
	b.WriteString(string(m.Type))

	switch {
	case m.Code != "":
		fmt.Fprintf(&b, ": %s (%s)", m.Message, m.Code)
	case m.Message != "":
		fmt.Fprintf(&b, ": %s", m.Message)
	}
	if m.PlayerID != "" {
		fmt.Fprintf(&b, " player=%s", m.PlayerID)
	}
	if m.GameType != "" {
		fmt.Fprintf(&b, " game=%s", m.GameType)
	}
	if m.Reason != "" {
		fmt.Fprintf(&b, " reason=%s", m.Reason)
	}
	if m.Match != nil {
		fmt.Fprintf(&b, " match=%s turn=%d", m.Match.ID, m.Match.CurrentPlayer)
		if m.Match.Outcome != nil {
			fmt.Fprintf(&b, " outcome=%s", *m.Match.Outcome)
		}
		if len(m.Match.GameState) > 0 {
			fmt.Fprintf(&b, "\n  state: %s", m.Match.GameState)
		}
	}
	fmt.Fprintln(o.w, b.String())
}
