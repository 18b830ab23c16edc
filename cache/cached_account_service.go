package cache

import (
	"context"
	"errors"

	"skillstreak/address"
	"skillstreak/events"
	"skillstreak/infrastructure/observability"
	"skillstreak/models"
	"skillstreak/service"

	log "github.com/sirupsen/logrus"
)

// CachedAccountService serves FetchAccount from Redis when it can.
// Writes go straight to the wrapped service.
type CachedAccountService struct {
	inner   service.AccountService
	cache   *AccountCache
	clock   service.Clock
	metrics *observability.MetricsProvider
}

var _ service.AccountService = (*CachedAccountService)(nil)

// NewCachedAccountService wraps inner. metrics may be nil.
func NewCachedAccountService(inner service.AccountService, cache *AccountCache, clock service.Clock, metrics *observability.MetricsProvider) *CachedAccountService {
	return &CachedAccountService{
		inner:   inner,
		cache:   cache,
		clock:   clock,
		metrics: metrics,
	}
}

// FetchAccount returns the cached view or loads and caches it.
// Cache failures degrade to a direct read.
func (s *CachedAccountService) FetchAccount(ctx context.Context, addr address.Address) (*models.AccountView, error) {
	view, err := s.cache.Get(ctx, addr)
	switch {
	case err == nil:
		s.metrics.RecordCacheLookup(string(view.Kind), true)
		// Snapshots may predate the end of the betting window
		if view.Market != nil {
			view.Market.RefreshStatus(s.clock.Now().Unix())
		}
		return view, nil
	case errors.Is(err, ErrMiss):
		s.metrics.RecordCacheLookup("", false)
	default:
		log.WithFields(log.Fields{
			"address": addr,
			"error":   err,
		}).Warn("Account cache read failed")
	}

	// Read before loading so an invalidation during the load wins
	generation, genErr := s.cache.Generation(ctx, addr)

	view, err = s.inner.FetchAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		return view, nil
	}

	err = s.cache.Set(ctx, view, generation)
	switch {
	case err == nil:
	case errors.Is(err, ErrStale):
		log.WithField("address", addr).Debug("Skipped caching account invalidated during load")
	default:
		log.WithFields(log.Fields{
			"address": addr,
			"error":   err,
		}).Warn("Account cache write failed")
	}
	return view, nil
}

func (s *CachedAccountService) Fund(ctx context.Context, owner address.Address, amount uint64) (*models.TokenAccount, error) {
	return s.inner.Fund(ctx, owner, amount)
}

func (s *CachedAccountService) History(ctx context.Context, addr address.Address, limit int) ([]*models.Transfer, error) {
	return s.inner.History(ctx, addr, limit)
}

// RegisterInvalidation drops cached snapshots of every account an event touched
func RegisterInvalidation(bus *events.Bus, cache *AccountCache) {
	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		scoped, ok := event.(events.AccountScoped)
		if !ok {
			return
		}
		if err := cache.Invalidate(ctx, scoped.Accounts()...); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Warn("Account cache invalidation failed")
		}
	})
}
