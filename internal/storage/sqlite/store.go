// Package sqlite provides a SQLite-backed storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/storage"
)

//go:embed schema.sql
var schema string

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Store persists players and matches in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Ensure Store implements the interface
var _ storage.Storage = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store and applies the embedded schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := MemoryPath
	if path != MemoryPath {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == MemoryPath {
		// every connection to :memory: is a separate database
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applySchema(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func applySchema(db *sql.DB) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Player operations

func (s *Store) SavePlayer(ctx context.Context, player *model.Player) error {
	createdAt := player.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO players (id, name, secret_hash, score, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   secret_hash = excluded.secret_hash,
		   score = excluded.score`,
		string(player.ID),
		player.Name,
		player.SecretHash,
		player.Score,
		toMillis(createdAt),
	)
	if err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	return nil
}

const playerColumns = `id, name, secret_hash, score, created_at`

func scanPlayer(row interface{ Scan(...any) error }) (*model.Player, error) {
	var (
		player    model.Player
		id        string
		createdAt int64
	)
	if err := row.Scan(&id, &player.Name, &player.SecretHash, &player.Score, &createdAt); err != nil {
		return nil, err
	}
	player.ID = model.PlayerID(id)
	player.CreatedAt = fromMillis(createdAt)
	return &player, nil
}

func (s *Store) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, string(id))
	player, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return player, nil
}

func (s *Store) GetPlayerByName(ctx context.Context, name string) (*model.Player, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE name = ?`, name)
	player, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player by name: %w", err)
	}
	return player, nil
}

func (s *Store) ListPlayersByScore(ctx context.Context, limit int) ([]*model.Player, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM players ORDER BY score DESC, name ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	players := []*model.Player{}
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, player)
	}
	return players, rows.Err()
}

// Match operations

const matchColumns = `id, player1_id, player2_id, game_type, in_progress, outcome, end_reason,
	current_player, game_state, created_at, updated_at`

func scanMatch(row interface{ Scan(...any) error }) (*model.Match, error) {
	var (
		match      model.Match
		id         string
		player1    string
		player2    sql.NullString
		gameType   string
		inProgress bool
		outcome    sql.NullString
		endReason  sql.NullString
		current    int
		state      sql.NullString
		createdAt  int64
		updatedAt  int64
	)
	err := row.Scan(&id, &player1, &player2, &gameType, &inProgress, &outcome, &endReason,
		&current, &state, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	match.ID = model.MatchID(id)
	match.Player1ID = model.PlayerID(player1)
	match.Player2ID = model.PlayerID(player2.String)
	match.GameType = model.GameType(gameType)
	match.InProgress = inProgress
	if outcome.Valid {
		o := model.Outcome(outcome.String)
		match.Outcome = &o
	}
	if endReason.Valid {
		r := model.EndReason(endReason.String)
		match.EndReason = &r
	}
	match.CurrentPlayer = model.Slot(current)
	if state.Valid {
		match.GameState = json.RawMessage(state.String)
	}
	match.CreatedAt = fromMillis(createdAt)
	match.UpdatedAt = fromMillis(updatedAt)
	return &match, nil
}

func (s *Store) queryMatch(ctx context.Context, where string, args ...any) (*model.Match, error) {
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE `+where+` LIMIT 1`, args...)
	match, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrMatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get match: %w", err)
	}
	return match, nil
}

func (s *Store) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	return s.queryMatch(ctx, `id = ?`, string(id))
}

func (s *Store) GetActiveMatchForPlayer(ctx context.Context, playerID model.PlayerID) (*model.Match, error) {
	return s.queryMatch(ctx,
		`in_progress = 1 AND player2_id IS NOT NULL AND (player1_id = ? OR player2_id = ?) ORDER BY seq`,
		string(playerID), string(playerID))
}

func (s *Store) GetWaitingMatchForPlayer(ctx context.Context, playerID model.PlayerID) (*model.Match, error) {
	return s.queryMatch(ctx, `player2_id IS NULL AND player1_id = ? ORDER BY seq`, string(playerID))
}

func (s *Store) FindWaitingMatch(ctx context.Context, excludePlayerID model.PlayerID, gameType model.GameType) (*model.Match, error) {
	return s.queryMatch(ctx,
		`player2_id IS NULL AND game_type = ? AND player1_id <> ? ORDER BY seq`,
		string(gameType), string(excludePlayerID))
}

func (s *Store) CreateWaitingMatch(ctx context.Context, playerID model.PlayerID, gameType model.GameType) (model.MatchID, error) {
	id := model.MatchID(uuid.NewString())
	now := toMillis(time.Now())
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO matches (id, player1_id, game_type, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		string(id), string(playerID), string(gameType), now, now)
	if err != nil {
		return "", fmt.Errorf("create waiting match: %w", err)
	}
	return id, nil
}

func (s *Store) JoinWaitingMatch(ctx context.Context, id model.MatchID, player2ID model.PlayerID, firstPlayer model.Slot, state json.RawMessage) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE matches
		 SET player2_id = ?, current_player = ?, game_state = ?, in_progress = 1, updated_at = ?
		 WHERE id = ? AND player2_id IS NULL`,
		string(player2ID), int(firstPlayer), string(state), toMillis(time.Now()), string(id))
	if err != nil {
		return fmt.Errorf("join waiting match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("join waiting match: %w", err)
	}
	if n == 0 {
		return model.ErrMatchNotWaiting
	}
	return nil
}

func nullString[T ~string](v *T) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*v), Valid: true}
}

func (s *Store) UpdateMatch(ctx context.Context, id model.MatchID, update model.MatchUpdate) error {
	updatedAt := update.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE matches
		 SET current_player = ?, game_state = ?, in_progress = ?, outcome = ?, end_reason = ?, updated_at = ?
		 WHERE id = ?`,
		int(update.CurrentPlayer),
		string(update.GameState),
		update.InProgress,
		nullString(update.Outcome),
		nullString(update.EndReason),
		toMillis(updatedAt),
		string(id),
	)
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update match: %w", err)
	}
	if n == 0 {
		return model.ErrMatchNotFound
	}
	return nil
}

func (s *Store) DeleteMatch(ctx context.Context, id model.MatchID) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, string(id)); err != nil {
		return fmt.Errorf("delete match: %w", err)
	}
	return nil
}

func (s *Store) ListMatchesForPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Match, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches WHERE player1_id = ? OR player2_id = ? ORDER BY seq`,
		string(playerID), string(playerID))
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var matches []*model.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

func (s *Store) ApplyOutcomeToScores(ctx context.Context, match *model.Match) error {
	if match.Outcome == nil {
		return nil
	}
	p1, p2 := model.ScoreDeltas(*match.Outcome)

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Unknown players match no row and are skipped
	for _, delta := range []struct {
		player model.PlayerID
		points int
	}{{match.Player1ID, p1}, {match.Player2ID, p2}} {
		if _, err := tx.ExecContext(ctx, `UPDATE players SET score = score + ? WHERE id = ?`,
			delta.points, string(delta.player)); err != nil {
			return fmt.Errorf("apply score: %w", err)
		}
	}
	return tx.Commit()
}
