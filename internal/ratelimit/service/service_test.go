package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"smartgate/internal/platform/logger"
	"smartgate/internal/platform/metrics"
	"smartgate/internal/ratelimit/models"
	"smartgate/internal/ratelimit/service"
	"smartgate/internal/ratelimit/service/mocks"
	"smartgate/internal/ratelimit/store"
	dErrors "smartgate/pkg/domain-errors"
	audit "smartgate/pkg/platform/audit"
	"smartgate/pkg/platform/audit/publisher"
	auditmemory "smartgate/pkg/platform/audit/store/memory"
	"smartgate/pkg/requestcontext"
)

const (
	email = "ana@x.com"
	ip    = "10.0.0.7"
)

type LockoutSuite struct {
	suite.Suite
	events  *auditmemory.InMemoryStore
	metrics *metrics.Metrics
	service *service.Service
	now     time.Time
}

func TestLockoutSuite(t *testing.T) {
	suite.Run(t, new(LockoutSuite))
}

func (s *LockoutSuite) SetupTest() {
	s.events = auditmemory.NewInMemoryStore()
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.service = service.New(store.NewInMemory(),
		service.WithLogger(logger.Discard()),
		service.WithAuditPublisher(publisher.NewPublisher(s.events)),
		service.WithMetrics(s.metrics),
		service.WithConfig(service.Config{MaxFailures: 3, Window: 10 * time.Minute, LockDuration: 5 * time.Minute}),
	)
}

func (s *LockoutSuite) at(d time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(d))
}

func (s *LockoutSuite) fail(d time.Duration) *models.Lockout {
	record, err := s.service.RecordFailure(s.at(d), email, ip)
	s.Require().NoError(err)
	return record
}

func (s *LockoutSuite) TestAllowsUnknownPair() {
	decision, err := s.service.Check(s.at(0), email, ip)
	s.Require().NoError(err)
	s.True(decision.Allowed)
}

func (s *LockoutSuite) TestLocksAfterMaxFailures() {
	s.fail(0)
	s.fail(time.Minute)
	record := s.fail(2 * time.Minute)
	s.Require().NotNil(record.LockedUntil)

	decision, err := s.service.Check(s.at(3*time.Minute), email, ip)
	s.Require().NoError(err)
	s.False(decision.Allowed)
	s.Equal(4*time.Minute, decision.RetryAfter)

	decision, err = s.service.Check(s.at(3*time.Minute), "  ANA@x.com", ip)
	s.Require().NoError(err)
	s.False(decision.Allowed, "email case and spacing do not dodge the lock")

	decision, err = s.service.Check(s.at(3*time.Minute), email, "10.0.0.8")
	s.Require().NoError(err)
	s.True(decision.Allowed, "another address is unaffected")

	decision, err = s.service.Check(s.at(7*time.Minute), email, ip)
	s.Require().NoError(err)
	s.True(decision.Allowed, "lock lapses")

	s.Equal(1.0, testutil.ToFloat64(s.metrics.LoginLockouts))
	events, err := s.events.ListRecent(context.Background(), 10)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventLoginLocked), events[0].Action)
	s.Equal(email, events[0].Email)
}

func (s *LockoutSuite) TestWindowResetsCount() {
	s.fail(0)
	s.fail(time.Minute)
	record := s.fail(11 * time.Minute)
	s.Nil(record.LockedUntil)
	s.Equal(1, record.Failures)
}

func (s *LockoutSuite) TestClearForgetsFailures() {
	s.fail(0)
	s.fail(time.Minute)
	s.Require().NoError(s.service.Clear(s.at(time.Minute), email, ip))
	record := s.fail(2 * time.Minute)
	s.Equal(1, record.Failures)
}

func (s *LockoutSuite) TestConcurrentFailuresAreAllCounted() {
	svc := service.New(store.NewInMemory(),
		service.WithLogger(logger.Discard()),
		service.WithConfig(service.Config{MaxFailures: 1000}),
	)
	const attempts = 64
	var wg sync.WaitGroup
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordFailure(s.at(0), email, ip)
			s.NoError(err)
		}()
	}
	wg.Wait()

	record, err := svc.RecordFailure(s.at(0), email, ip)
	s.Require().NoError(err)
	s.Equal(attempts+1, record.Failures)
}

func TestStoreFailuresAreInternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	svc := service.New(st, service.WithLogger(logger.Discard()))
	ctx := context.Background()

	st.EXPECT().Get(gomock.Any(), models.LockoutKey(email, ip)).Return(nil, errors.New("redis down"))
	_, err := svc.Check(ctx, email, ip)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	st.EXPECT().Update(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("redis down"))
	_, err = svc.RecordFailure(ctx, email, ip)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestLockEmitsAuditEvent(t *testing.T) {
	ctrl := gomock.NewController(t)
	st := mocks.NewMockStore(ctrl)
	pub := mocks.NewMockAuditPublisher(ctrl)
	svc := service.New(st,
		service.WithLogger(logger.Discard()),
		service.WithAuditPublisher(pub),
		service.WithConfig(service.Config{MaxFailures: 1}),
	)

	st.EXPECT().Update(gomock.Any(), models.LockoutKey(email, ip), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, mutate func(*models.Lockout) *models.Lockout) (*models.Lockout, error) {
			return mutate(nil), nil
		})
	pub.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
		assert.Equal(t, string(audit.EventLoginLocked), e.Action)
		assert.Equal(t, ip, e.IP)
		return nil
	})

	record, err := svc.RecordFailure(context.Background(), email, ip)
	require.NoError(t, err)
	assert.NotNil(t, record.LockedUntil)
}
