package authclient

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// GateRegistry hands out one RefreshGate per credential chain, so the
// single-flight guarantee holds across all concurrent requests of one browser
// session without serializing unrelated sessions through a shared gate.
// Entries age out on their own; a gate is recreated on demand after rotation.
type GateRegistry struct {
	gates *ttlcache.Cache[string, *RefreshGate]
}

// NewGateRegistry builds a registry whose idle gates expire after ttl, which
// should track the access-token lifetime.
func NewGateRegistry(ttl time.Duration) *GateRegistry {
	gates := ttlcache.New(
		ttlcache.WithTTL[string, *RefreshGate](ttl),
	)
	go gates.Start()
	return &GateRegistry{gates: gates}
}

// For returns the gate for the given refresh token, creating it if needed.
// The token is hashed before use as a cache key so raw credentials never sit
// in the registry.
func (r *GateRegistry) For(refreshToken string) *RefreshGate {
	item, _ := r.gates.GetOrSet(hashToken(refreshToken), NewRefreshGate())
	return item.Value()
}

// Close stops the registry's expiry loop.
func (r *GateRegistry) Close() {
	r.gates.Stop()
}

// hashToken shortens a token for use as a cache key and keeps the raw value
// out of the registry.
func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
