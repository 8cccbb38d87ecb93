package redis

import (
	"fmt"

	"github.com/mcoot/typerace/internal/model"
)

// Key prefix for all typerace data
const keyPrefix = "typerace"

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// usernameIndexKey returns the Redis key for the username -> user_id index
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// passageKey returns the Redis key for a Passage
func passageKey(id model.PassageID) string {
	return fmt.Sprintf("%s:passage:%s", keyPrefix, id)
}

// passagesIndexKey returns the ZSET of all passage ids scored by creation time
func passagesIndexKey() string {
	return fmt.Sprintf("%s:idx:passages", keyPrefix)
}

// passagesInUniverseIndexKey returns the ZSET of passage ids in one universe
func passagesInUniverseIndexKey(universe string) string {
	return fmt.Sprintf("%s:idx:passages_in_universe:%s", keyPrefix, universe)
}

// raceResultKey returns the Redis key for a RaceResult
func raceResultKey(id model.RaceResultID) string {
	return fmt.Sprintf("%s:race_result:%s", keyPrefix, id)
}

// resultsForUserIndexKey returns the ZSET of a user's race result ids scored by creation time
func resultsForUserIndexKey(userID model.UserID) string {
	return fmt.Sprintf("%s:idx:results_for_user:%s", keyPrefix, userID)
}
