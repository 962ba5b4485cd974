package cache

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"franchise-billing/internal/config"
	"franchise-billing/internal/logger"
	"franchise-billing/internal/metrics"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Catalog cache keys, one set per franchise
const (
	ProductsKeyFmt      = "franchise:%d:products"
	StockKeyFmt         = "franchise:%d:stock"
	FranchiseCodeKeyFmt = "franchise:%d:code"

	CatalogTTL = 5 * time.Minute
	CodeTTL    = 24 * time.Hour
)

var client *redis.Client

// Init initializes the Redis connection. On failure the package stays
// disabled and every helper degrades to a no-op.
func Init(cfg *config.Config) error {
	if cfg.Redis.Host == "" {
		return errors.New("redis host not configured")
	}
	port := cfg.Redis.Port
	if port == "" {
		port = "6379"
	}

	c := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Redis.Host, port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return err
	}
	client = c
	return nil
}

// SetClient installs an existing client; nil disables caching
func SetClient(c *redis.Client) {
	client = c
}

// GetClient returns the Redis client
func GetClient() *redis.Client {
	return client
}

func Close() {
	if client != nil {
		client.Close()
		client = nil
	}
}

func ProductsKey(franchiseID int64) string {
	return fmt.Sprintf(ProductsKeyFmt, franchiseID)
}

func StockKey(franchiseID int64) string {
	return fmt.Sprintf(StockKeyFmt, franchiseID)
}

func FranchiseCodeKey(franchiseID int64) string {
	return fmt.Sprintf(FranchiseCodeKeyFmt, franchiseID)
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.For("cache").WithError(err).WithField("key", key).Warn("cache read failed")
		}
		metrics.CacheHitsTotal.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.CacheHitsTotal.WithLabelValues("hit").Inc()
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	if err := client.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.For("cache").WithError(err).WithField("key", key).Warn("cache write failed")
	}
}

// InvalidateKeys removes specific cache keys
func InvalidateKeys(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	client.Del(ctx, keys...)
}

// InvalidateCatalogCaches clears the product and stock lists of a franchise.
// Called when: CreateBill, CreateProduct, UpsertStock, AddStock, DeleteStock
func InvalidateCatalogCaches(ctx context.Context, franchiseID int64) {
	InvalidateKeys(ctx, ProductsKey(franchiseID), StockKey(franchiseID))
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}

// NumberingLocker serialises bill numbering per key across instances
type NumberingLocker struct {
	locker *redislock.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewNumberingLocker returns nil when Redis is not connected
func NewNumberingLocker(ttl, wait time.Duration) *NumberingLocker {
	if client == nil {
		return nil
	}
	return &NumberingLocker{locker: redislock.New(client), ttl: ttl, wait: wait}
}

// Acquire obtains the lock, retrying for up to the configured wait
func (l *NumberingLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil {
		return nil, errors.New("redis not connected")
	}
	retry := redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), int(l.wait/(50*time.Millisecond)))
	lock, err := l.locker.Obtain(ctx, key, l.ttl, &redislock.Options{RetryStrategy: retry})
	if err != nil {
		return nil, err
	}
	return func() {
		// ctx may already be cancelled; release on a fresh one
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lock.Release(rctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.For("cache").WithError(err).WithField("key", key).Warn("numbering lock release failed")
		}
	}, nil
}
