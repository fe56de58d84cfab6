package trust

import (
	"context"
	"crypto"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/rs/zerolog/log"

	"github.com/mkuran/gatewarden/internal/core"
)

// CachingSource reuses a fetched key set for up to a TTL, so staleness
// stays bounded and explicit. A lookup that misses on a cached snapshot
// forces one refresh before giving up; freshly rotated keys resolve
// without waiting out the TTL.
type CachingSource struct {
	fetcher *Fetcher
	ttl     time.Duration

	mu        sync.RWMutex
	set       jwk.Set
	gen       uint64
	fetchedAt time.Time

	now func() time.Time
}

func NewCachingSource(fetcher *Fetcher, ttl time.Duration) *CachingSource {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachingSource{fetcher: fetcher, ttl: ttl, now: time.Now}
}

var _ core.KeyResolver = (*CachingSource)(nil)

// ResolveKey implements core.KeyResolver.
func (c *CachingSource) ResolveKey(ctx context.Context, kid string) (crypto.PublicKey, error) {
	set, gen, err := c.current(ctx)
	if err != nil {
		return nil, err
	}

	key, err := ResolveKey(set, kid)
	if err == nil {
		return key, nil
	}
	if core.KindOf(err) != core.KindKeyNotFound {
		return nil, err
	}

	// The kid may belong to a key rotated in after the snapshot was
	// taken. Refresh once and retry before reporting it missing.
	log.Ctx(ctx).Debug().Str("kid", kid).Msg("keyset.refresh_on_miss")
	set, _, err = c.refresh(ctx, gen)
	if err != nil {
		return nil, err
	}
	return ResolveKey(set, kid)
}

// current returns the cached snapshot while it is fresh, refreshing it
// otherwise.
func (c *CachingSource) current(ctx context.Context) (jwk.Set, uint64, error) {
	c.mu.RLock()
	set, gen := c.set, c.gen
	fresh := c.now().Sub(c.fetchedAt) < c.ttl
	c.mu.RUnlock()

	if set != nil && fresh {
		return set, gen, nil
	}
	return c.refresh(ctx, gen)
}

// refresh fetches a new snapshot unless another caller already replaced
// generation gen, collapsing concurrent misses into a single upstream
// request.
func (c *CachingSource) refresh(ctx context.Context, gen uint64) (jwk.Set, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.set != nil && c.gen != gen && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.set, c.gen, nil
	}

	set, err := c.fetcher.Fetch(ctx)
	if err != nil {
		return nil, c.gen, err
	}

	c.set = set
	c.gen++
	c.fetchedAt = c.now()
	return set, c.gen, nil
}
