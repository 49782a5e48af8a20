package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/curzel-it/battld/internal/model"
	"github.com/curzel-it/battld/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	players   map[model.PlayerID]*model.Player
	nameIndex map[string]model.PlayerID
	matches   map[model.MatchID]*model.Match

	// queue keeps waiting match ids in creation order
	queue []model.MatchID
	now   func() time.Time
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		players:   make(map[model.PlayerID]*model.Player),
		nameIndex: make(map[string]model.PlayerID),
		matches:   make(map[model.MatchID]*model.Match),
		now:       time.Now,
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player operations

func (s *Storage) SavePlayer(ctx context.Context, player *model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *player
	s.players[player.ID] = &p
	s.nameIndex[player.Name] = player.ID
	return nil
}

func (s *Storage) GetPlayer(ctx context.Context, id model.PlayerID) (*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	player, ok := s.players[id]
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	p := *player
	return &p, nil
}

func (s *Storage) GetPlayerByName(ctx context.Context, name string) (*model.Player, error) {
	s.mu.RLock()
	id, ok := s.nameIndex[name]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrPlayerNotFound
	}
	return s.GetPlayer(ctx, id)
}

func (s *Storage) ListPlayersByScore(ctx context.Context, limit int) ([]*model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*model.Player, 0, len(s.players))
	for _, player := range s.players {
		p := *player
		result = append(result, &p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].Name < result[j].Name
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Match operations

func (s *Storage) GetMatch(ctx context.Context, id model.MatchID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	match, ok := s.matches[id]
	if !ok {
		return nil, model.ErrMatchNotFound
	}
	return match.Clone(), nil
}

func (s *Storage) GetActiveMatchForPlayer(ctx context.Context, playerID model.PlayerID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, match := range s.matches {
		if match.InProgress && !match.IsWaiting() && (match.Player1ID == playerID || match.Player2ID == playerID) {
			return match.Clone(), nil
		}
	}
	return nil, model.ErrMatchNotFound
}

func (s *Storage) GetWaitingMatchForPlayer(ctx context.Context, playerID model.PlayerID) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.queue {
		if match := s.matches[id]; match.Player1ID == playerID {
			return match.Clone(), nil
		}
	}
	return nil, model.ErrMatchNotFound
}

func (s *Storage) FindWaitingMatch(ctx context.Context, excludePlayerID model.PlayerID, gameType model.GameType) (*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.queue {
		match := s.matches[id]
		if match.GameType == gameType && match.Player1ID != excludePlayerID {
			return match.Clone(), nil
		}
	}
	return nil, model.ErrMatchNotFound
}

func (s *Storage) CreateWaitingMatch(ctx context.Context, playerID model.PlayerID, gameType model.GameType) (model.MatchID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	match := &model.Match{
		ID:        model.MatchID(uuid.NewString()),
		Player1ID: playerID,
		GameType:  gameType,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.matches[match.ID] = match
	s.queue = append(s.queue, match.ID)
	return match.ID, nil
}

func (s *Storage) JoinWaitingMatch(ctx context.Context, id model.MatchID, player2ID model.PlayerID, firstPlayer model.Slot, state json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[id]
	if !ok || !match.IsWaiting() {
		return model.ErrMatchNotWaiting
	}
	match.Player2ID = player2ID
	match.CurrentPlayer = firstPlayer
	match.GameState = append(json.RawMessage(nil), state...)
	match.InProgress = true
	match.UpdatedAt = s.now()
	s.dequeue(id)
	return nil
}

func (s *Storage) UpdateMatch(ctx context.Context, id model.MatchID, update model.MatchUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	match, ok := s.matches[id]
	if !ok {
		return model.ErrMatchNotFound
	}
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = s.now()
	}
	update.GameState = append(json.RawMessage(nil), update.GameState...)
	update.Apply(match)
	return nil
}

func (s *Storage) DeleteMatch(ctx context.Context, id model.MatchID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.matches, id)
	s.dequeue(id)
	return nil
}

func (s *Storage) ListMatchesForPlayer(ctx context.Context, playerID model.PlayerID) ([]*model.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*model.Match
	for _, match := range s.matches {
		if match.Player1ID == playerID || match.Player2ID == playerID {
			result = append(result, match.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Storage) ApplyOutcomeToScores(ctx context.Context, match *model.Match) error {
	if match.Outcome == nil {
		return nil
	}
	p1, p2 := model.ScoreDeltas(*match.Outcome)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Unknown players are skipped
	if player, ok := s.players[match.Player1ID]; ok {
		player.Score += p1
	}
	if player, ok := s.players[match.Player2ID]; ok {
		player.Score += p2
	}
	return nil
}

// dequeue removes id from the waiting queue; callers hold mu
func (s *Storage) dequeue(id model.MatchID) {
	for i, queued := range s.queue {
		if queued == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return
		}
	}
}
