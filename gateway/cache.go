package gateway

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// ResponseCache is a short-TTL read-through cache for reference-data GETs
// (client and product lists change rarely but are fetched on nearly every
// screen). Any write through the gateway flushes it wholesale; invalidation
// precision is not worth the bookkeeping at this TTL.
//
// A ResponseCache may be shared by many short-lived gateway clients, which is
// how the BFF keeps one cache across per-request wiring.
type ResponseCache struct {
	cache *ttlcache.Cache[string, []byte]
}

// NewResponseCache builds a cache whose entries expire after ttl.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	c := ttlcache.New(
		ttlcache.WithTTL[string, []byte](ttl),
		ttlcache.WithDisableTouchOnHit[string, []byte](),
	)
	go c.Start()
	return &ResponseCache{cache: c}
}

func (r *ResponseCache) get(key string) ([]byte, bool) {
	item := r.cache.Get(key)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

func (r *ResponseCache) set(key string, body []byte) {
	r.cache.Set(key, body, ttlcache.DefaultTTL)
}

func (r *ResponseCache) flush() {
	r.cache.DeleteAll()
}

// Stop ends the cache's expiry loop.
func (r *ResponseCache) Stop() {
	r.cache.Stop()
}
