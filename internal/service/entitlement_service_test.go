package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ankhbayar/entitlement-service/internal/domain"
	"github.com/ankhbayar/entitlement-service/internal/kafka"
	"github.com/ankhbayar/entitlement-service/internal/metrics"
	"github.com/ankhbayar/entitlement-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntitlementFixture(t *testing.T, accounts ...*domain.Account) (*entitlementService, *fakeAccountRepo) {
	t.Helper()
	accountRepo := newFakeAccountRepo(accounts...)
	svc := NewEntitlementService(
		accountRepo, kafka.NoOpProducer{}, metrics.NoOpMetrics{},
		"member", logger.New(logger.ERROR),
	).(*entitlementService)
	return svc, accountRepo
}

func TestGrantNeverEntitledAccount(t *testing.T) {
	acc := freshAccount()
	svc, _ := newEntitlementFixture(t, acc)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	snap, err := svc.Grant(context.Background(), acc.ID, 30)
	require.NoError(t, err)
	assert.True(t, snap.Entitled)
	assert.Equal(t, "member", snap.Tag)
	require.NotNil(t, snap.ExpiresAt)
	assert.Equal(t, now.AddDate(0, 0, 30), *snap.ExpiresAt)
	require.NotNil(t, snap.JoinedAt)
	assert.Equal(t, now, *snap.JoinedAt)
}

func TestGrantExpiredAccountRestartsFromNow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	oldExpiry := now.AddDate(0, 0, -60)
	joined := now.AddDate(-1, 0, 0)
	acc := &domain.Account{
		ID:                   uuid.New(),
		EntitlementTag:       "member",
		EntitlementGrantedAt: &joined,
		EntitlementExpiresAt: &oldExpiry,
	}
	svc, _ := newEntitlementFixture(t, acc)
	svc.now = func() time.Time { return now }

	snap, err := svc.Grant(context.Background(), acc.ID, 15)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 15), *snap.ExpiresAt)
	// The original first-joined timestamp is preserved.
	assert.Equal(t, joined, *snap.JoinedAt)
}

func TestGrantCurrentlyEntitledRejected(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expiry := now.AddDate(0, 0, 5)
	acc := &domain.Account{ID: uuid.New(), EntitlementTag: "member", EntitlementExpiresAt: &expiry}
	svc, _ := newEntitlementFixture(t, acc)
	svc.now = func() time.Time { return now }

	_, err := svc.Grant(context.Background(), acc.ID, 30)
	assert.True(t, errors.Is(err, domain.ErrAlreadyEntitled))
}

func TestExtendStacksOnExistingExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expiry := now.AddDate(0, 0, 10)
	acc := &domain.Account{ID: uuid.New(), EntitlementTag: "member", EntitlementExpiresAt: &expiry}
	svc, _ := newEntitlementFixture(t, acc)
	svc.now = func() time.Time { return now }

	snap, err := svc.Extend(context.Background(), acc.ID, 30)
	require.NoError(t, err)
	// expiry = now+10d, extend 30d => now+40d, not now+30d.
	assert.Equal(t, now.AddDate(0, 0, 40), *snap.ExpiresAt)
}

func TestExtendWithoutBaseRejected(t *testing.T) {
	acc := freshAccount()
	svc, _ := newEntitlementFixture(t, acc)

	_, err := svc.Extend(context.Background(), acc.ID, 30)
	assert.True(t, errors.Is(err, domain.ErrNoActiveEntitlement))
}

func TestRevokeClearsTagAndExpiry(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	expiry := now.AddDate(0, 0, 10)
	acc := &domain.Account{ID: uuid.New(), EntitlementTag: "member", EntitlementExpiresAt: &expiry}
	svc, _ := newEntitlementFixture(t, acc)
	svc.now = func() time.Time { return now }

	snap, err := svc.Revoke(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.False(t, snap.Entitled)
	assert.Empty(t, snap.Tag)
	assert.Nil(t, snap.ExpiresAt)
	assert.Nil(t, snap.RemainingDays)
}

func TestInvalidDays(t *testing.T) {
	acc := freshAccount()
	svc, _ := newEntitlementFixture(t, acc)

	_, err := svc.Grant(context.Background(), acc.ID, 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	_, err = svc.Extend(context.Background(), acc.ID, -5)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestGrantThenClockPassesExpiry(t *testing.T) {
	acc := freshAccount()
	svc, _ := newEntitlementFixture(t, acc)

	current := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return current }

	_, err := svc.Grant(context.Background(), acc.ID, 30)
	require.NoError(t, err)

	snap, err := svc.Status(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.True(t, snap.Entitled)

	// 31 days later the entitlement has lapsed without any mutation.
	current = current.AddDate(0, 0, 31)
	snap, err = svc.Status(context.Background(), acc.ID)
	require.NoError(t, err)
	assert.False(t, snap.Entitled)
	// The tag is kept as a historical marker.
	assert.Equal(t, "member", snap.Tag)
}
