package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skillstreak/address"
	"skillstreak/models"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrMiss is returned when an address has no cached snapshot
	ErrMiss = errors.New("cache miss")
	// ErrStale is returned by Set when the address was invalidated after the snapshot was loaded
	ErrStale = errors.New("cache snapshot is stale")
)

// generationTTL bounds how long an invalidation is remembered. It must exceed
// the time between Generation and Set on a read-through.
const generationTTL = 10 * time.Minute

// AccountCache stores AccountView snapshots as JSON strings.
//
// Key schema:
//
//	acct:{base58 address}    - JSON AccountView
//	acctgen:{base58 address} - invalidation counter, bumped by Invalidate
type AccountCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewAccountCache creates an AccountCache backed by the given Client.
func NewAccountCache(c *Client, ttl time.Duration) *AccountCache {
	return &AccountCache{rdb: c.Underlying(), ttl: ttl}
}

func accountKey(addr address.Address) string { return "acct:" + addr.String() }

func generationKey(addr address.Address) string { return "acctgen:" + addr.String() }

// Get returns the cached view of addr or ErrMiss.
func (c *AccountCache) Get(ctx context.Context, addr address.Address) (*models.AccountView, error) {
	data, err := c.rdb.Get(ctx, accountKey(addr)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("redis: get account %s: %w", addr, err)
	}

	var view models.AccountView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("redis: unmarshal account %s: %w", addr, err)
	}
	return &view, nil
}

// Generation returns the invalidation counter of addr. Read it before loading
// a snapshot and pass it to Set.
func (c *AccountCache) Generation(ctx context.Context, addr address.Address) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey(addr)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis: get generation %s: %w", addr, err)
	}
	return gen, nil
}

// Set stores a view under its address with the configured TTL, unless the
// address was invalidated since generation was read. Then it returns ErrStale.
func (c *AccountCache) Set(ctx context.Context, view *models.AccountView, generation int64) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("redis: marshal account %s: %w", view.Address, err)
	}

	key := accountKey(view.Address)
	genKey := generationKey(view.Address)

	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStale), errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("account %s: %w", view.Address, ErrStale)
	default:
		return fmt.Errorf("redis: set account %s: %w", view.Address, err)
	}
}

// Invalidate removes the snapshots of the given addresses and bumps their
// generation so in-flight loads do not write them back.
func (c *AccountCache) Invalidate(ctx context.Context, addrs ...address.Address) error {
	if len(addrs) == 0 {
		return nil
	}

	pipe := c.rdb.TxPipeline()
	for _, a := range addrs {
		pipe.Del(ctx, accountKey(a))
		pipe.Incr(ctx, generationKey(a))
		pipe.Expire(ctx, generationKey(a), generationTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: invalidate %d accounts: %w", len(addrs), err)
	}
	return nil
}
