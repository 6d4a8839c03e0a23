package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	platformredis "assetup/internal/platform/redis"
	"assetup/internal/token/models"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
)

// Redis stores locks with a TTL matching the lock window, so expired locks
// disappear on their own. The value is the expiry in unix seconds; the
// service still compares it against the ledger clock, since Redis expiry
// follows wall time and the ledger clock is injected.
type Redis struct {
	client *platformredis.Client
}

func NewRedis(client *platformredis.Client) *Redis {
	return &Redis{client: client}
}

func key(assetID id.AssetID, holder id.Principal) string {
	return fmt.Sprintf("assetup:lock:%d:%s", assetID, holder)
}

func (s *Redis) Set(ctx context.Context, lock models.Lock) error {
	ttl := time.Until(lock.Until)
	if ttl <= 0 {
		// Already expired by wall time; keep it briefly so Get stays
		// consistent for in-flight calls pinned to an earlier ledger time.
		ttl = time.Minute
	}
	return s.client.Set(ctx, key(lock.AssetID, lock.Holder), lock.Until.Unix(), ttl).Err()
}

func (s *Redis) Get(ctx context.Context, assetID id.AssetID, holder id.Principal) (*models.Lock, error) {
	unix, err := s.client.Get(ctx, key(assetID, holder)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return &models.Lock{
		AssetID: assetID,
		Holder:  holder,
		Until:   time.Unix(unix, 0).UTC(),
	}, nil
}

func (s *Redis) Remove(ctx context.Context, assetID id.AssetID, holder id.Principal) error {
	return s.client.Del(ctx, key(assetID, holder)).Err()
}
