//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"smartgate/internal/ratelimit/models"
	"smartgate/internal/ratelimit/store"
	"smartgate/pkg/platform/sentinel"
	"smartgate/pkg/testutil/containers"
)

type RedisLockoutStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *store.RedisStore
}

func TestRedisLockoutStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockoutStoreSuite))
}

func (s *RedisLockoutStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = store.NewRedis(s.redis.Client, time.Minute)
}

func (s *RedisLockoutStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLockoutStoreSuite) put(ctx context.Context, record models.Lockout) {
	_, err := s.store.Update(ctx, record.Key, func(*models.Lockout) *models.Lockout { return &record })
	s.Require().NoError(err)
}

func (s *RedisLockoutStoreSuite) TestConcurrentUpdatesDoNotLoseWrites() {
	ctx := context.Background()
	const writers = 8
	g, gctx := errgroup.WithContext(ctx)
	for range writers {
		g.Go(func() error {
			_, err := s.store.Update(gctx, "k", func(current *models.Lockout) *models.Lockout {
				if current == nil {
					current = &models.Lockout{Key: "k"}
				}
				current.Failures++
				return current
			})
			return err
		})
	}
	s.Require().NoError(g.Wait())

	got, err := s.store.Get(ctx, "k")
	s.Require().NoError(err)
	s.Equal(writers, got.Failures)
}

func (s *RedisLockoutStoreSuite) TestRoundTripWithTTL() {
	ctx := context.Background()
	until := time.Now().Add(5 * time.Minute).UTC().Truncate(time.Second)
	s.put(ctx, models.Lockout{
		Key: "ana@x.com|10.0.0.1", Failures: 5, WindowStart: until.Add(-time.Hour), LockedUntil: &until,
	})

	got, err := s.store.Get(ctx, "ana@x.com|10.0.0.1")
	s.Require().NoError(err)
	s.Equal(5, got.Failures)
	s.Require().NotNil(got.LockedUntil)
	s.True(until.Equal(*got.LockedUntil))

	ttl, err := s.redis.Client.TTL(ctx, "login_lockout:ana@x.com|10.0.0.1").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *RedisLockoutStoreSuite) TestDeleteAndMissing() {
	ctx := context.Background()
	s.put(ctx, models.Lockout{Key: "k"})
	s.Require().NoError(s.store.Delete(ctx, "k"))
	_, err := s.store.Get(ctx, "k")
	s.ErrorIs(err, sentinel.ErrNotFound)
}
