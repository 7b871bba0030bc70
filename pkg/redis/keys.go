package redis

import "fmt"

// Key naming conventions for Redis keys.
// All keys follow the pattern: {namespace}:{entity}:{id}:{field}
//
// Example: "tl:play:session:3f2a..." for a play session keyed by token.

const (
	// KeyNamespace prefixes all keys written by the play engine.
	KeyNamespace = "tl"
)

// PlaySessionKey returns the key holding a play session, keyed by its
// most recently issued token.
// Example: tl:play:session:3f2a9c
func PlaySessionKey(token string) string {
	return fmt.Sprintf("%s:play:session:%s", KeyNamespace, token)
}

// PlaySessionIdleKey returns the ZSET key indexing session tokens by
// last-seen unix time. The idle sweeper range-scans it.
// Example: tl:play:idle
func PlaySessionIdleKey() string {
	return fmt.Sprintf("%s:play:idle", KeyNamespace)
}

// StreamRateKey returns the rate-limit counter key for a caller of the
// streaming endpoint.
// Example: tl:rate:stream:company-42
func StreamRateKey(caller string) string {
	return fmt.Sprintf("%s:rate:stream:%s", KeyNamespace, caller)
}

// TrackMetaKey returns the cache key for track metadata.
// Example: tl:track:meta:m-100
func TrackMetaKey(trackID string) string {
	return fmt.Sprintf("%s:track:meta:%s", KeyNamespace, trackID)
}
