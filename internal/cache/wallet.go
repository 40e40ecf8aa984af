package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aulaplatform/aulaledger/internal/models"
)

const walletTTL = 5 * time.Minute

// WalletCache is a read-through cache for wallet lookups. A nil cache
// is valid and behaves as permanent miss, so callers don't branch on
// whether Redis is configured.
type WalletCache struct {
	rdb *redis.Client
}

func NewWalletCache(rdb *redis.Client) *WalletCache {
	if rdb == nil {
		return nil
	}
	return &WalletCache{rdb: rdb}
}

func walletKey(studentID string) string {
	return "wallet:" + studentID
}

func (c *WalletCache) Get(ctx context.Context, studentID string) (models.Wallet, bool) {
	var w models.Wallet
	if c == nil {
		return w, false
	}

	val, err := c.rdb.Get(ctx, walletKey(studentID)).Result()
	if err != nil {
		return w, false
	}
	if err := json.Unmarshal([]byte(val), &w); err != nil {
		return w, false
	}

	return w, true
}

func (c *WalletCache) Set(ctx context.Context, w models.Wallet) error {
	if c == nil {
		return nil
	}

	b, err := json.Marshal(w)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, walletKey(w.StudentID), b, walletTTL).Err()
}

// Invalidate drops the cached wallet. Called after every committed
// mutation; a miss is not an error.
func (c *WalletCache) Invalidate(ctx context.Context, studentID string) error {
	if c == nil {
		return nil
	}

	err := c.rdb.Del(ctx, walletKey(studentID)).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	return nil
}
