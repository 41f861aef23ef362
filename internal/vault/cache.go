// internal/vault/cache.go
package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/rovshanmuradov/nazare-vault/internal/whirlpool"
)

// AccountFetcher – чтение аккаунтов из сети (реализует solbc.Client)
type AccountFetcher interface {
	FetchAccount(ctx context.Context, address solana.PublicKey) ([]byte, error)
	FetchAccounts(ctx context.Context, addresses []solana.PublicKey) ([][]byte, error)
}

const warmConcurrency = 4

// Cache хранит снимки пулов, ключи vault'ов и decimals минтов на время жизни процесса.
// Записи заменяются целиком и никогда не изменяются на месте.
type Cache struct {
	fetcher AccountFetcher
	cfg     *Config
	logger  *zap.Logger
	now     func() time.Time

	mu       sync.RWMutex
	pools    map[string]*PoolSnapshot
	keys     map[string]*VaultKeys
	decimals map[string]uint8

	flight singleflight.Group
}

// NewCache создает пустой кэш
func NewCache(fetcher AccountFetcher, cfg *Config, logger *zap.Logger) *Cache {
	return &Cache{
		fetcher:  fetcher,
		cfg:      cfg,
		logger:   logger.Named("vault-cache"),
		now:      time.Now,
		pools:    make(map[string]*PoolSnapshot),
		keys:     make(map[string]*VaultKeys),
		decimals: make(map[string]uint8),
	}
}

// PoolSnapshot returns the cached snapshot of pool, reading it once on first use.
func (c *Cache) PoolSnapshot(ctx context.Context, pool solana.PublicKey) (*PoolSnapshot, error) {
	key := pool.String()
	if s, ok := c.cachedPool(key); ok {
		return s, nil
	}

	v, err, _ := c.flight.Do("pool:"+key, func() (interface{}, error) {
		if s, ok := c.cachedPool(key); ok {
			return s, nil
		}
		return c.fetchPool(ctx, pool)
	})
	if err != nil {
		return nil, err
	}
	return v.(*PoolSnapshot), nil
}

// RefreshPoolSnapshot reads pool again and replaces the cached entry.
func (c *Cache) RefreshPoolSnapshot(ctx context.Context, pool solana.PublicKey) (*PoolSnapshot, error) {
	v, err, _ := c.flight.Do("refresh:"+pool.String(), func() (interface{}, error) {
		return c.fetchPool(ctx, pool)
	})
	if err != nil {
		return nil, err
	}
	return v.(*PoolSnapshot), nil
}

func (c *Cache) cachedPool(key string) (*PoolSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.pools[key]
	return s, ok
}

func (c *Cache) fetchPool(ctx context.Context, pool solana.PublicKey) (*PoolSnapshot, error) {
	data, err := c.fetcher.FetchAccount(ctx, pool)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			return nil, fmt.Errorf("pool %s: %w", pool, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to fetch pool %s: %w", pool, err)
	}
	decoded, err := whirlpool.DecodePool(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode pool %s: %w", pool, err)
	}

	snapshot := newPoolSnapshot(pool, decoded, c.now())

	c.mu.Lock()
	c.pools[pool.String()] = snapshot
	c.mu.Unlock()

	c.logger.Debug("Pool snapshot stored",
		zap.String("pool", pool.String()),
		zap.Int32("tick_current_index", snapshot.TickCurrentIndex),
		zap.Int("active_rewards", len(snapshot.ActiveRewards())))
	return snapshot, nil
}

// VaultKeys returns the derived address set of a vault. The first call reads the pool
// snapshot through the cache and derives the keys once.
func (c *Cache) VaultKeys(ctx context.Context, id VaultIdentity) (*VaultKeys, error) {
	key := id.String()
	if k, ok := c.cachedKeys(key); ok {
		return k, nil
	}

	v, err, _ := c.flight.Do("keys:"+key, func() (interface{}, error) {
		if k, ok := c.cachedKeys(key); ok {
			return k, nil
		}
		snapshot, err := c.PoolSnapshot(ctx, id.Pool)
		if err != nil {
			return nil, err
		}
		keys, err := DeriveVaultKeys(c.cfg, id, snapshot.TokenMintA, snapshot.TokenMintB)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.keys[key] = keys
		c.mu.Unlock()
		return keys, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*VaultKeys), nil
}

func (c *Cache) cachedKeys(key string) (*VaultKeys, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	k, ok := c.keys[key]
	return k, ok
}

// MintDecimals returns the decimals of a mint. Decimals never change, so they are
// read once.
func (c *Cache) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	key := mint.String()
	c.mu.RLock()
	d, ok := c.decimals[key]
	c.mu.RUnlock()
	if ok {
		return d, nil
	}

	v, err, _ := c.flight.Do("mint:"+key, func() (interface{}, error) {
		data, err := c.fetcher.FetchAccount(ctx, mint)
		if err != nil {
			return nil, fmt.Errorf("mint %s: %w", mint, err)
		}
		m, err := decodeMint(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode mint %s: %w", mint, err)
		}

		c.mu.Lock()
		c.decimals[key] = m.Decimals
		c.mu.Unlock()
		return m.Decimals, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(uint8), nil
}

// Warm prefetches several pools concurrently.
func (c *Cache) Warm(ctx context.Context, pools ...solana.PublicKey) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmConcurrency)
	for _, pool := range pools {
		g.Go(func() error {
			_, err := c.PoolSnapshot(gctx, pool)
			return err
		})
	}
	return g.Wait()
}
