// Package resultcache implements the single-flight-guarded fingerprint ->
// CacheEntry map (C5): a ristretto-backed front cache for confirmed hits, a
// singleflight.Group enforcing at-most-one in-flight pipeline per
// fingerprint, and a bounded LRU memoizing recent object-store existence
// probes so repeat COLD-HIT traffic for the same key doesn't re-HEAD the
// backing store on every barrier release.
package resultcache

import (
	"context"

	"github.com/dgraph-io/ristretto"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/kesler-oduya/imagefp/internal/apperr"
	"github.com/kesler-oduya/imagefp/internal/fingerprint"
	"github.com/kesler-oduya/imagefp/internal/logger"
	"github.com/kesler-oduya/imagefp/internal/storage"
)

// CacheEntry is the published result for a fingerprint.
type CacheEntry struct {
	PublicURL   string
	ContentType string
	Size        int
}

// Produce performs the leader's fetch+transcode work. It is supplied by the
// orchestrator so this package stays independent of C2/C3.
type Produce func(ctx context.Context) (data []byte, contentType string, err error)

type Cache struct {
	front  *ristretto.Cache
	exists *lru.Cache[string, bool]
	group  singleflight.Group
	store  storage.Store
}

func New(store storage.Store, maxItems int64) (*Cache, error) {
	if maxItems <= 0 {
		maxItems = 100_000
	}
	front, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
		Metrics:     false,
	})
	if err != nil {
		return nil, err
	}

	existsCache, err := lru.New[string, bool](int(maxItems))
	if err != nil {
		return nil, err
	}

	return &Cache{front: front, exists: existsCache, store: store}, nil
}

// Resolve implements the resolve(request) protocol of §4.5: HIT on the
// front cache short-circuits everything; otherwise a single leader per
// fingerprint probes the object store (COLD-HIT) or runs produce
// (MISS-FILLED), and concurrent callers for the same fingerprint share that
// leader's single outcome (SHARED-WAIT).
func (c *Cache) Resolve(ctx context.Context, req fingerprint.Request, produce Produce) (CacheEntry, error) {
	fp := req.Fingerprint()
	key := req.ArtifactKey()
	log := logger.With(logger.Fields{"fingerprint": fp, "key": key})

	if v, ok := c.front.Get(fp); ok {
		return v.(CacheEntry), nil
	}

	v, err, shared := c.group.Do(fp, func() (any, error) {
		// Re-check: another leader for this fingerprint may have just
		// published while we waited to become leader ourselves.
		if v, ok := c.front.Get(fp); ok {
			return v.(CacheEntry), nil
		}

		if known, ok := c.exists.Get(key); ok && known {
			entry := CacheEntry{PublicURL: c.store.PublicURL(key), ContentType: req.Format.ContentType()}
			c.front.SetWithTTL(fp, entry, 1, 0)
			return entry, nil
		}

		exists, err := c.store.Exists(ctx, key)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindStoreTransport, "exists probe failed", err)
		}
		if exists {
			log.Debugf("[ResultCache] COLD-HIT")
			entry := CacheEntry{PublicURL: c.store.PublicURL(key), ContentType: req.Format.ContentType()}
			c.front.SetWithTTL(fp, entry, 1, 0)
			c.exists.Add(key, true)
			return entry, nil
		}

		data, contentType, err := produce(ctx)
		if err != nil {
			return nil, err
		}

		if err := c.store.Put(ctx, key, data, contentType); err != nil {
			return nil, err
		}

		log.Debugf("[ResultCache] MISS-FILLED size=%d", len(data))
		entry := CacheEntry{PublicURL: c.store.PublicURL(key), ContentType: contentType, Size: len(data)}
		c.front.SetWithTTL(fp, entry, 1, 0)
		c.exists.Add(key, true)
		return entry, nil
	})
	if err != nil {
		return CacheEntry{}, err
	}
	if shared {
		log.Debugf("[ResultCache] SHARED-WAIT served")
	}
	return v.(CacheEntry), nil
}

// Wait blocks until all pending front-cache writes are committed; useful in
// tests that assert on cache state immediately after Resolve returns.
func (c *Cache) Wait() {
	c.front.Wait()
}
