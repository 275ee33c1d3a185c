package timeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"repair-tracker-backend/internal/metrics"
)

// Directory looks up display names in the user store.
type Directory interface {
	LookupNames(ctx context.Context, ids []string) (map[string]string, error)
}

type ResolverConfig struct {
	Logger    *slog.Logger
	Directory Directory
	// TTL of a cached name; zero keeps names for the life of the resolver.
	TTL time.Duration
}

func (cfg *ResolverConfig) Validate() error {
	if cfg.Directory == nil {
		return errors.New("directory is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.TTL < 0 {
		return errors.New("ttl must not be negative")
	}
	return nil
}

// Resolver caches actor display names. Concurrent callers asking for the same
// uncached id share a single directory lookup.
type Resolver struct {
	log   *slog.Logger
	dir   Directory
	ttl   time.Duration
	cache *cache.Cache

	mu       sync.Mutex
	inflight map[string]chan struct{}
}

func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ttl, cleanup := cache.NoExpiration, time.Duration(0)
	if cfg.TTL > 0 {
		ttl, cleanup = cfg.TTL, 2*cfg.TTL
	}
	return &Resolver{
		log:      cfg.Logger,
		dir:      cfg.Directory,
		ttl:      ttl,
		cache:    cache.New(ttl, cleanup),
		inflight: make(map[string]chan struct{}),
	}, nil
}

// Resolve returns the names it knows for ids. It never fails; ids the
// directory cannot resolve are simply absent.
func (r *Resolver) Resolve(ctx context.Context, ids []string) map[string]string {
	out := make(map[string]string, len(ids))
	var (
		mine    []string
		waiting = make(map[string]chan struct{})
	)

	r.mu.Lock()
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, done := out[id]; done {
			continue
		}
		if _, mineAlready := waiting[id]; mineAlready {
			continue
		}
		if name, ok := r.cache.Get(id); ok {
			out[id] = name.(string)
			metrics.ResolverCacheHits.Inc()
			continue
		}
		if ch, ok := r.inflight[id]; ok {
			waiting[id] = ch
			continue
		}
		ch := make(chan struct{})
		r.inflight[id] = ch
		waiting[id] = nil
		mine = append(mine, id)
	}
	r.mu.Unlock()

	if len(mine) > 0 {
		r.fetch(ctx, mine, out)
	}

	for id, ch := range waiting {
		if ch == nil {
			continue
		}
		select {
		case <-ch:
		case <-ctx.Done():
			continue
		}
		if name, ok := r.cache.Get(id); ok {
			out[id] = name.(string)
		}
	}
	return out
}

// fetch looks up ids this caller owns and releases their waiters.
func (r *Resolver) fetch(ctx context.Context, ids []string, out map[string]string) {
	var names map[string]string
	defer func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for _, id := range ids {
			if name, ok := names[id]; ok && name != "" {
				r.cache.Set(id, name, r.ttl)
				out[id] = name
			}
			close(r.inflight[id])
			delete(r.inflight, id)
		}
	}()

	metrics.ResolverLookups.Inc()
	found, err := r.dir.LookupNames(ctx, ids)
	if err != nil {
		r.log.Warn("user name lookup failed", "ids", len(ids), "error", err)
		return
	}
	names = found
}
