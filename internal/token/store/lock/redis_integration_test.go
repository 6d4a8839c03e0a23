//go:build integration

package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"assetup/internal/token/models"
	lockstore "assetup/internal/token/store/lock"
	id "assetup/pkg/domain"
	"assetup/pkg/platform/sentinel"
	"assetup/pkg/testutil/containers"
)

type RedisLockSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *lockstore.Redis
}

func TestRedisLockSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockSuite))
}

func (s *RedisLockSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.store = lockstore.NewRedis(s.redis.Platform())
}

func (s *RedisLockSuite) SetupTest() {
	err := s.redis.FlushAll(context.Background())
	s.Require().NoError(err)
}

func (s *RedisLockSuite) TestSetAndGetRoundTrip() {
	ctx := context.Background()
	until := time.Now().Add(1 * time.Hour).Truncate(time.Second).UTC()
	lock := models.Lock{AssetID: 1, Holder: "GALICE", Until: until}

	s.Require().NoError(s.store.Set(ctx, lock))

	got, err := s.store.Get(ctx, 1, "GALICE")
	s.Require().NoError(err)
	s.Equal(until, got.Until)
}

func (s *RedisLockSuite) TestGetMissingReturnsNotFound() {
	_, err := s.store.Get(context.Background(), 1, "GALICE")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisLockSuite) TestRemoveClearsLock() {
	ctx := context.Background()
	lock := models.Lock{AssetID: 1, Holder: "GALICE", Until: time.Now().Add(time.Hour)}

	s.Require().NoError(s.store.Set(ctx, lock))
	s.Require().NoError(s.store.Remove(ctx, 1, "GALICE"))

	_, err := s.store.Get(ctx, 1, "GALICE")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	// Removing an absent lock is a no-op.
	s.Require().NoError(s.store.Remove(ctx, 1, "GALICE"))
}

func (s *RedisLockSuite) TestLockExpiresWithTTL() {
	ctx := context.Background()
	lock := models.Lock{AssetID: 1, Holder: "GALICE", Until: time.Now().Add(1 * time.Second)}

	s.Require().NoError(s.store.Set(ctx, lock))

	s.Require().Eventually(func() bool {
		_, err := s.store.Get(ctx, 1, "GALICE")
		return err != nil
	}, 5*time.Second, 200*time.Millisecond, "lock should expire with its TTL")
}
