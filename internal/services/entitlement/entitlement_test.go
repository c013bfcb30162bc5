package entitlement

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/courtsidehq/courtside-api/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetSubscriptionByUserUID(ctx context.Context, userUID string) (*models.SubscriptionRecord, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionRecord), args.Error(1)
}
func (m *RepoMock) GetRoleByUserUID(ctx context.Context, userUID string) (string, error) {
	args := m.Called(ctx, userUID)
	return args.String(0), args.Error(1)
}

type CacheMock struct{ mock.Mock }

func (m *CacheMock) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}
func (m *CacheMock) Set(key string, value any, expiration time.Duration) error {
	return m.Called(key, value, expiration).Error(0)
}
func (m *CacheMock) Invalidate(key string) error {
	return m.Called(key).Error(0)
}
func (m *CacheMock) InvalidatePrefix(prefix string) error {
	return m.Called(prefix).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

// expectMiss настраивает промах decision-кеша для пользователя.
func expectMiss(c *CacheMock, uid string) {
	c.On("Get", decisionKeyPrefix+uid, mock.Anything).Return(false, nil).Once()
}

// expectStore настраивает запись decision и lastgood после свежего резолва.
func expectStore(c *CacheMock, uid string, want models.EntitlementDecision, ttl time.Duration) {
	c.On("Set", decisionKeyPrefix+uid, want, ttl).Return(nil).Once()
	c.On("Set", lastGoodKeyPrefix+uid, want, time.Duration(0)).Return(nil).Once()
}

func TestResolve_Decision(t *testing.T) {
	now := time.Now()
	ttl := 5 * time.Minute

	tests := []struct {
		name       string
		userUID    string
		setupMocks func(r *RepoMock, c *CacheMock)
		want       models.EntitlementDecision
	}{
		{
			name:    "active subscription with future period end grants premium",
			userUID: "uid-1",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				expectMiss(c, "uid-1")
				r.On("GetSubscriptionByUserUID", mock.Anything, "uid-1").Return(&models.SubscriptionRecord{
					UserUID:          "uid-1",
					Status:           models.StatusActive,
					CurrentPeriodEnd: now.Add(24 * time.Hour),
				}, nil).Once()
				r.On("GetRoleByUserUID", mock.Anything, "uid-1").Return(models.RoleUser, nil).Once()
				expectStore(c, "uid-1", models.EntitlementDecision{IsPremium: true}, ttl)
			},
			want: models.EntitlementDecision{IsPremium: true},
		},
		{
			name:    "trialing subscription grants premium",
			userUID: "uid-2",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				expectMiss(c, "uid-2")
				r.On("GetSubscriptionByUserUID", mock.Anything, "uid-2").Return(&models.SubscriptionRecord{
					UserUID:          "uid-2",
					Status:           models.StatusTrialing,
					CurrentPeriodEnd: now.Add(72 * time.Hour),
				}, nil).Once()
				r.On("GetRoleByUserUID", mock.Anything, "uid-2").Return(models.RoleUser, nil).Once()
				expectStore(c, "uid-2", models.EntitlementDecision{IsPremium: true}, ttl)
			},
			want: models.EntitlementDecision{IsPremium: true},
		},
		{
			name:    "past_due denies premium even with future period end",
			userUID: "uid-3",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				expectMiss(c, "uid-3")
				r.On("GetSubscriptionByUserUID", mock.Anything, "uid-3").Return(&models.SubscriptionRecord{
					UserUID:          "uid-3",
					Status:           models.StatusPastDue,
					CurrentPeriodEnd: now.Add(24 * time.Hour),
				}, nil).Once()
				r.On("GetRoleByUserUID", mock.Anything, "uid-3").Return(models.RoleUser, nil).Once()
				expectStore(c, "uid-3", models.EntitlementDecision{}, ttl)
			},
			want: models.EntitlementDecision{},
		},
		{
			name:    "active subscription with expired period denies premium",
			userUID: "uid-4",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				expectMiss(c, "uid-4")
				r.On("GetSubscriptionByUserUID", mock.Anything, "uid-4").Return(&models.SubscriptionRecord{
					UserUID:          "uid-4",
					Status:           models.StatusActive,
					CurrentPeriodEnd: now.Add(-time.Hour),
				}, nil).Once()
				r.On("GetRoleByUserUID", mock.Anything, "uid-4").Return(models.RoleUser, nil).Once()
				expectStore(c, "uid-4", models.EntitlementDecision{}, ttl)
			},
			want: models.EntitlementDecision{},
		},
		{
			name:    "canceled subscription overrides premium role",
			userUID: "uid-5",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				expectMiss(c, "uid-5")
				r.On("GetSubscriptionByUserUID", mock.Anything, "uid-5").Return(&models.SubscriptionRecord{
					UserUID:          "uid-5",
					Status:           models.StatusCanceled,
					CurrentPeriodEnd: now.Add(24 * time.Hour),
				}, nil).Once()
				// Запись о подписке есть, роль premium не спасает.
				r.On("GetRoleByUserUID", mock.Anything, "uid-5").Return(models.RolePremium, nil).Once()
				expectStore(c, "uid-5", models.EntitlementDecision{}, ttl)
			},
			want: models.EntitlementDecision{},
		},
		{
			name:    "premium role without subscription row grants premium",
			userUID: "uid-6",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				expectMiss(c, "uid-6")
				r.On("GetSubscriptionByUserUID", mock.Anything, "uid-6").Return(nil, nil).Once()
				r.On("GetRoleByUserUID", mock.Anything, "uid-6").Return(models.RolePremium, nil).Once()
				expectStore(c, "uid-6", models.EntitlementDecision{IsPremium: true}, ttl)
			},
			want: models.EntitlementDecision{IsPremium: true},
		},
		{
			name:    "admin role grants admin and premium without subscription",
			userUID: "uid-7",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				expectMiss(c, "uid-7")
				r.On("GetSubscriptionByUserUID", mock.Anything, "uid-7").Return(nil, nil).Once()
				r.On("GetRoleByUserUID", mock.Anything, "uid-7").Return(models.RoleAdmin, nil).Once()
				expectStore(c, "uid-7", models.EntitlementDecision{IsPremium: true, IsAdmin: true}, ttl)
			},
			want: models.EntitlementDecision{IsPremium: true, IsAdmin: true},
		},
		{
			name:    "admin keeps admin flag even with expired subscription",
			userUID: "uid-8",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				expectMiss(c, "uid-8")
				r.On("GetSubscriptionByUserUID", mock.Anything, "uid-8").Return(&models.SubscriptionRecord{
					UserUID:          "uid-8",
					Status:           models.StatusActive,
					CurrentPeriodEnd: now.Add(-time.Hour),
				}, nil).Once()
				r.On("GetRoleByUserUID", mock.Anything, "uid-8").Return(models.RoleAdmin, nil).Once()
				expectStore(c, "uid-8", models.EntitlementDecision{IsAdmin: true}, ttl)
			},
			want: models.EntitlementDecision{IsAdmin: true},
		},
		{
			name:    "no subscription and plain role yields free tier",
			userUID: "uid-9",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				expectMiss(c, "uid-9")
				r.On("GetSubscriptionByUserUID", mock.Anything, "uid-9").Return(nil, nil).Once()
				r.On("GetRoleByUserUID", mock.Anything, "uid-9").Return("", nil).Once()
				expectStore(c, "uid-9", models.EntitlementDecision{}, ttl)
			},
			want: models.EntitlementDecision{},
		},
		{
			name:    "role fetch error does not grant privileges",
			userUID: "uid-10",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				expectMiss(c, "uid-10")
				r.On("GetSubscriptionByUserUID", mock.Anything, "uid-10").Return(nil, nil).Once()
				r.On("GetRoleByUserUID", mock.Anything, "uid-10").Return("", errors.New("db down")).Once()
				expectStore(c, "uid-10", models.EntitlementDecision{}, ttl)
			},
			want: models.EntitlementDecision{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			svc := New(repo, cache, newNoopLogger(), ttl, 3, time.Millisecond)

			tt.setupMocks(repo, cache)

			got := svc.Resolve(context.Background(), tt.userUID)
			assert.Equal(t, tt.want, got)

			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestResolve_EmptyUserUID(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := New(repo, cache, newNoopLogger(), time.Minute, 3, time.Millisecond)

	got := svc.Resolve(context.Background(), "")
	assert.Equal(t, models.FreeTier(), got)

	// Ни хранилище, ни кеш не трогаются.
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestResolve_CacheHitSkipsRepository(t *testing.T) {
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := New(repo, cache, newNoopLogger(), time.Minute, 3, time.Millisecond)

	cached := models.EntitlementDecision{IsPremium: true}
	cache.On("Get", decisionKeyPrefix+"uid-1", mock.Anything).Return(true, nil).Run(func(args mock.Arguments) {
		ptr := args.Get(1).(*models.EntitlementDecision)
		*ptr = cached
	}).Once()

	got := svc.Resolve(context.Background(), "uid-1")
	assert.Equal(t, cached, got)

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestResolve_FailClosed(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(r *RepoMock, c *CacheMock)
		want       models.EntitlementDecision
	}{
		{
			name: "storage error with last-known-good snapshot",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				expectMiss(c, "uid-1")
				r.On("GetSubscriptionByUserUID", mock.Anything, "uid-1").Return(nil, errors.New("db down")).Once()
				c.On("Get", lastGoodKeyPrefix+"uid-1", mock.Anything).Return(true, nil).Run(func(args mock.Arguments) {
					ptr := args.Get(1).(*models.EntitlementDecision)
					*ptr = models.EntitlementDecision{IsPremium: true}
				}).Once()
			},
			want: models.EntitlementDecision{IsPremium: true},
		},
		{
			name: "storage error without snapshot yields free tier",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				expectMiss(c, "uid-1")
				r.On("GetSubscriptionByUserUID", mock.Anything, "uid-1").Return(nil, errors.New("db down")).Once()
				c.On("Get", lastGoodKeyPrefix+"uid-1", mock.Anything).Return(false, nil).Once()
			},
			want: models.FreeTier(),
		},
		{
			name: "storage error and broken cache yields free tier",
			setupMocks: func(r *RepoMock, c *CacheMock) {
				expectMiss(c, "uid-1")
				r.On("GetSubscriptionByUserUID", mock.Anything, "uid-1").Return(nil, errors.New("db down")).Once()
				c.On("Get", lastGoodKeyPrefix+"uid-1", mock.Anything).Return(false, errors.New("redis down")).Once()
			},
			want: models.FreeTier(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			cache := new(CacheMock)
			svc := New(repo, cache, newNoopLogger(), time.Minute, 3, time.Millisecond)

			tt.setupMocks(repo, cache)

			got := svc.Resolve(context.Background(), "uid-1")
			assert.Equal(t, tt.want, got)

			repo.AssertExpectations(t)
			cache.AssertExpectations(t)
		})
	}
}

func TestResolve_IdempotentWithoutStateChange(t *testing.T) {
	// Два последовательных резолва без инвалидации: второй отвечает из кеша
	// и не обращается к хранилищу повторно.
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := New(repo, cache, newNoopLogger(), time.Minute, 3, time.Millisecond)

	decision := models.EntitlementDecision{IsPremium: true}

	expectMiss(cache, "uid-1")
	repo.On("GetSubscriptionByUserUID", mock.Anything, "uid-1").Return(&models.SubscriptionRecord{
		UserUID:          "uid-1",
		Status:           models.StatusActive,
		CurrentPeriodEnd: time.Now().Add(time.Hour),
	}, nil).Once()
	repo.On("GetRoleByUserUID", mock.Anything, "uid-1").Return(models.RoleUser, nil).Once()
	expectStore(cache, "uid-1", decision, time.Minute)

	first := svc.Resolve(context.Background(), "uid-1")

	cache.On("Get", decisionKeyPrefix+"uid-1", mock.Anything).Return(true, nil).Run(func(args mock.Arguments) {
		ptr := args.Get(1).(*models.EntitlementDecision)
		*ptr = decision
	}).Once()

	second := svc.Resolve(context.Background(), "uid-1")

	assert.Equal(t, first, second)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestInvalidate(t *testing.T) {
	tests := []struct {
		name       string
		userUID    string
		setupMocks func(c *CacheMock)
		wantErr    bool
	}{
		{
			name:    "success",
			userUID: "uid-1",
			setupMocks: func(c *CacheMock) {
				c.On("Invalidate", decisionKeyPrefix+"uid-1").Return(nil).Once()
			},
		},
		{
			name:       "empty uid is a no-op",
			userUID:    "",
			setupMocks: func(_ *CacheMock) {},
		},
		{
			name:    "cache error propagates",
			userUID: "uid-2",
			setupMocks: func(c *CacheMock) {
				c.On("Invalidate", decisionKeyPrefix+"uid-2").Return(errors.New("redis down")).Once()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := new(CacheMock)
			svc := New(new(RepoMock), cache, newNoopLogger(), time.Minute, 3, time.Millisecond)

			tt.setupMocks(cache)

			err := svc.Invalidate(tt.userUID)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			cache.AssertExpectations(t)
		})
	}
}

func TestInvalidateAll_FlushesDecisionsOnly(t *testing.T) {
	cache := new(CacheMock)
	svc := New(new(RepoMock), cache, newNoopLogger(), time.Minute, 3, time.Millisecond)

	cache.On("InvalidatePrefix", decisionKeyPrefix).Return(nil).Once()

	assert.NoError(t, svc.InvalidateAll())
	cache.AssertExpectations(t)
}

func TestResolve_PremiumFlipsAfterInvalidate(t *testing.T) {
	// Сценарий отмены: premium до инвалидации, free после того как строка
	// подписки стала canceled.
	repo := new(RepoMock)
	cache := new(CacheMock)
	svc := New(repo, cache, newNoopLogger(), time.Minute, 3, time.Millisecond)

	expectMiss(cache, "uid-1")
	repo.On("GetSubscriptionByUserUID", mock.Anything, "uid-1").Return(&models.SubscriptionRecord{
		UserUID:          "uid-1",
		Status:           models.StatusActive,
		CurrentPeriodEnd: time.Now().Add(time.Hour),
	}, nil).Once()
	repo.On("GetRoleByUserUID", mock.Anything, "uid-1").Return(models.RoleUser, nil).Once()
	expectStore(cache, "uid-1", models.EntitlementDecision{IsPremium: true}, time.Minute)

	assert.True(t, svc.Resolve(context.Background(), "uid-1").IsPremium)

	cache.On("Invalidate", decisionKeyPrefix+"uid-1").Return(nil).Once()
	assert.NoError(t, svc.Invalidate("uid-1"))

	expectMiss(cache, "uid-1")
	repo.On("GetSubscriptionByUserUID", mock.Anything, "uid-1").Return(&models.SubscriptionRecord{
		UserUID:          "uid-1",
		Status:           models.StatusCanceled,
		CurrentPeriodEnd: time.Now().Add(time.Hour),
	}, nil).Once()
	repo.On("GetRoleByUserUID", mock.Anything, "uid-1").Return(models.RoleUser, nil).Once()
	expectStore(cache, "uid-1", models.EntitlementDecision{}, time.Minute)

	assert.False(t, svc.Resolve(context.Background(), "uid-1").IsPremium)

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestConfirmActivation(t *testing.T) {
	t.Run("confirmed on first attempt", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := New(repo, cache, newNoopLogger(), time.Minute, 3, time.Millisecond)

		cache.On("Invalidate", decisionKeyPrefix+"uid-1").Return(nil).Once()
		expectMiss(cache, "uid-1")
		repo.On("GetSubscriptionByUserUID", mock.Anything, "uid-1").Return(&models.SubscriptionRecord{
			UserUID:          "uid-1",
			Status:           models.StatusActive,
			CurrentPeriodEnd: time.Now().Add(time.Hour),
		}, nil).Once()
		repo.On("GetRoleByUserUID", mock.Anything, "uid-1").Return(models.RoleUser, nil).Once()
		expectStore(cache, "uid-1", models.EntitlementDecision{IsPremium: true}, time.Minute)

		got := svc.ConfirmActivation(context.Background(), "uid-1")
		assert.Equal(t, ActivationConfirmed, got)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("pending after poll budget exhausted", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := New(repo, cache, newNoopLogger(), time.Minute, 3, time.Millisecond)

		cache.On("Invalidate", decisionKeyPrefix+"uid-1").Return(nil).Times(3)
		cache.On("Get", decisionKeyPrefix+"uid-1", mock.Anything).Return(false, nil).Times(3)
		repo.On("GetSubscriptionByUserUID", mock.Anything, "uid-1").Return(nil, nil).Times(3)
		repo.On("GetRoleByUserUID", mock.Anything, "uid-1").Return("", nil).Times(3)
		cache.On("Set", decisionKeyPrefix+"uid-1", models.EntitlementDecision{}, time.Minute).Return(nil).Times(3)
		cache.On("Set", lastGoodKeyPrefix+"uid-1", models.EntitlementDecision{}, time.Duration(0)).Return(nil).Times(3)

		got := svc.ConfirmActivation(context.Background(), "uid-1")
		assert.Equal(t, ActivationPending, got)
		repo.AssertExpectations(t)
		cache.AssertExpectations(t)
	})

	t.Run("canceled when context is done", func(t *testing.T) {
		repo := new(RepoMock)
		cache := new(CacheMock)
		svc := New(repo, cache, newNoopLogger(), time.Minute, 5, time.Hour)

		cache.On("Invalidate", decisionKeyPrefix+"uid-1").Return(nil).Once()
		cache.On("Get", decisionKeyPrefix+"uid-1", mock.Anything).Return(false, nil).Once()
		repo.On("GetSubscriptionByUserUID", mock.Anything, "uid-1").Return(nil, nil).Once()
		repo.On("GetRoleByUserUID", mock.Anything, "uid-1").Return("", nil).Once()
		cache.On("Set", decisionKeyPrefix+"uid-1", models.EntitlementDecision{}, time.Minute).Return(nil).Once()
		cache.On("Set", lastGoodKeyPrefix+"uid-1", models.EntitlementDecision{}, time.Duration(0)).Return(nil).Once()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		got := svc.ConfirmActivation(ctx, "uid-1")
		assert.Equal(t, ActivationCanceled, got)
	})
}
