package redis

import (
	"fmt"

	"github.com/curzel-it/battld/internal/model"
)

// Key prefix for all battld data
const keyPrefix = "battld"

// playerKey returns the Redis key for a Player
func playerKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, id)
}

// nameIndexKey returns the Redis key for the name -> player_id index
func nameIndexKey(name string) string {
	return fmt.Sprintf("%s:idx:player_name:%s", keyPrefix, name)
}

// scoresKey returns the Redis key for the ZSET of player scores
func scoresKey() string {
	return fmt.Sprintf("%s:scores", keyPrefix)
}

// matchKey returns the Redis key for a Match
func matchKey(id model.MatchID) string {
	return fmt.Sprintf("%s:match:%s", keyPrefix, id)
}

// waitingQueueKey returns the Redis key for the LIST of waiting matches of a game type
func waitingQueueKey(gameType model.GameType) string {
	return fmt.Sprintf("%s:queue:%s", keyPrefix, gameType)
}

// playerWaitingKey returns the Redis key holding the match a player waits in
func playerWaitingKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_waiting:%s", keyPrefix, id)
}

// playerActiveKey returns the Redis key holding a player's in-progress match
func playerActiveKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_active:%s", keyPrefix, id)
}

// playerMatchesKey returns the Redis key for the SET of every match a player took part in
func playerMatchesKey(id model.PlayerID) string {
	return fmt.Sprintf("%s:idx:player_matches:%s", keyPrefix, id)
}
