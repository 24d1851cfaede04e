package utils

import "hash/fnv"

// SessionShard pins a session id to one of n workers. All events of a
// session land on the same worker, which keeps per-session processing
// ordered without locks.
func SessionShard(sessionID string, n int) int {
	if n <= 1 {
		return 0
	}
	hasher := fnv.New32a()
	hasher.Write([]byte(sessionID))
	return int(hasher.Sum32() % uint32(n))
}
