package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/tillworks/posedge/internal/remote"
	"github.com/tillworks/posedge/pkg/config"
	pkgerrors "github.com/tillworks/posedge/pkg/errors"
	"github.com/tillworks/posedge/pkg/logger"
	"github.com/tillworks/posedge/pkg/metrics"
	"github.com/tillworks/posedge/pkg/store"
	"github.com/tillworks/posedge/pkg/types"
)

// Cache keys inside the inventory and metadata collections.
const (
	KeyCatalog       = "catalog"
	KeySiteInventory = "site_inventory"
)

// RefreshMetadata tracks when a cached collection was last refreshed. The
// timestamp is written after the data so a crash mid-refresh never marks
// stale data as fresh.
type RefreshMetadata struct {
	CollectionName  string    `json:"collection_name"`
	LastRefreshedAt time.Time `json:"last_refreshed_at"`
}

type cacheStore interface {
	GetJSON(ctx context.Context, collection, key string, dest any) (bool, error)
	Put(ctx context.Context, collection, key string, value any) error
}

type catalogFetcher interface {
	FetchCatalog(ctx context.Context) ([]types.Item, error)
	FetchSiteInventory(ctx context.Context) ([]remote.SiteStock, error)
}

// Service decides cache-vs-refetch for the sellable catalog and the
// site-wide inventory view. The stale flag in results means the remote
// refresh failed and the caller is looking at last known-good data.
type Service interface {
	Catalog(ctx context.Context) ([]types.Item, bool, error)
	SiteInventory(ctx context.Context) ([]remote.SiteStock, bool, error)
}

type service struct {
	store   cacheStore
	gateway catalogFetcher
	cfg     config.CacheConfig
	metrics *metrics.CacheMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the cache manager.
func NewService(st cacheStore, gateway catalogFetcher, cfg config.CacheConfig, m *metrics.CacheMetrics, logg *logger.Logger) (Service, error) {
	if st == nil {
		return nil, fmt.Errorf("cache store required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("remote gateway required")
	}
	return &service{
		store:   st,
		gateway: gateway,
		cfg:     cfg,
		metrics: m,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// Catalog returns the sellable item list, refreshing after the catalog TTL.
func (s *service) Catalog(ctx context.Context) ([]types.Item, bool, error) {
	var cached []types.Item
	load := func(ctx context.Context) (any, error) {
		items, err := s.gateway.FetchCatalog(ctx)
		return items, err
	}
	readCache := func(ctx context.Context) (bool, error) {
		return s.store.GetJSON(ctx, store.CollectionInventory, KeyCatalog, &cached)
	}

	fetched, stale, err := s.load(ctx, KeyCatalog, s.cfg.CatalogTTL, load, readCache)
	if fetched != nil {
		return fetched.([]types.Item), stale, err
	}
	return cached, stale, err
}

// SiteInventory returns the multi-branch stock view, refreshing after the
// (much shorter) site inventory TTL.
func (s *service) SiteInventory(ctx context.Context) ([]remote.SiteStock, bool, error) {
	var cached []remote.SiteStock
	load := func(ctx context.Context) (any, error) {
		rows, err := s.gateway.FetchSiteInventory(ctx)
		return rows, err
	}
	readCache := func(ctx context.Context) (bool, error) {
		return s.store.GetJSON(ctx, store.CollectionInventory, KeySiteInventory, &cached)
	}

	fetched, stale, err := s.load(ctx, KeySiteInventory, s.cfg.SiteInventoryTTL, load, readCache)
	if fetched != nil {
		return fetched.([]remote.SiteStock), stale, err
	}
	return cached, stale, err
}

// load runs the staleness policy for one cached collection. It returns the
// freshly fetched data (nil when the cached copy should be used), a stale
// flag, and an error only when no data at all could be produced.
func (s *service) load(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fetch func(context.Context) (any, error),
	readCache func(context.Context) (bool, error),
) (any, bool, error) {
	fresh := s.isFresh(ctx, key, ttl)

	if fresh {
		found, err := readCache(ctx)
		if err == nil && found {
			s.metrics.IncHit(key)
			return nil, false, nil
		}
		// A fresh verdict with an unreadable cache degrades to a forced
		// refetch rather than returning nothing.
		if err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithCollection(ctx, key), "cache read failed on fresh verdict, refetching")
		}
	}

	data, err := fetch(ctx)
	if err != nil {
		s.metrics.IncRefreshFailure(key)
		if s.logg != nil {
			s.logg.Error(s.logg.WithCollection(ctx, key), "cache refresh failed", err)
		}
		// Never clear existing cached data on a failed refresh; fall back
		// to last known-good and flag it stale.
		if found, readErr := readCache(ctx); readErr == nil && found {
			return nil, true, nil
		}
		return nil, true, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "refresh "+key)
	}

	if err := s.store.Put(ctx, store.CollectionInventory, key, data); err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithCollection(ctx, key), "cache write failed", err)
		}
		// Fetched data is still good for this call even if it could not be
		// cached; skip the timestamp so the next call refetches.
		return data, false, nil
	}
	meta := RefreshMetadata{CollectionName: key, LastRefreshedAt: s.now()}
	if err := s.store.Put(ctx, store.CollectionMetadata, key, meta); err != nil && s.logg != nil {
		s.logg.Error(s.logg.WithCollection(ctx, key), "metadata write failed", err)
	}

	s.metrics.IncRefresh(key)
	return data, false, nil
}

func (s *service) isFresh(ctx context.Context, key string, ttl time.Duration) bool {
	var meta RefreshMetadata
	found, err := s.store.GetJSON(ctx, store.CollectionMetadata, key, &meta)
	if err != nil || !found {
		return false
	}
	return s.now().Sub(meta.LastRefreshedAt) < ttl
}
