package watcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/p2pgate/internal/lease"
	"github.com/baharkarakas/p2pgate/internal/models"
	"github.com/baharkarakas/p2pgate/internal/repository/memory"
	"github.com/baharkarakas/p2pgate/internal/services"
	"github.com/baharkarakas/p2pgate/internal/worker"
)

func setup(t *testing.T, now time.Time) (*memory.Store, *Watcher) {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	svc := services.NewTransactionService(repos.Transactions, repos.AuditLogs, nil, nil,
		services.Options{Clock: func() time.Time { return now }})
	return store, New(svc, &lease.Local{}, time.Second).WithClock(func() time.Time { return now })
}

func TestTick_ExpiresOverdueOnly(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store, w := setup(t, now)
	repos := store.Repositories()

	overdue := store.PutTransaction(models.Transaction{Status: models.TxnCreated, ExpiresAt: now.Add(-time.Second)})
	disputed := store.PutTransaction(models.Transaction{Status: models.TxnDispute, ExpiresAt: now.Add(-time.Hour)})
	paid := store.PutTransaction(models.Transaction{Status: models.TxnReady, ExpiresAt: now.Add(-time.Second)})
	fresh := store.PutTransaction(models.Transaction{Status: models.TxnCreated, ExpiresAt: now.Add(time.Minute)})

	next, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Second, next)

	want := map[string]models.TransactionStatus{
		overdue.ID:  models.TxnExpired,
		disputed.ID: models.TxnExpired,
		paid.ID:     models.TxnReady,
		fresh.ID:    models.TxnCreated,
	}
	for id, status := range want {
		got, err := repos.Transactions.GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, status, got.Status, id)
	}
}

func TestTick_Idempotent(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store, _ := setup(t, now)
	repos := store.Repositories()
	svc := services.NewTransactionService(repos.Transactions, repos.AuditLogs, nil, nil, services.Options{})
	store.PutTransaction(models.Transaction{Status: models.TxnCreated, ExpiresAt: now.Add(-time.Second)})

	n, err := svc.ExpireDue(context.Background(), now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = svc.ExpireDue(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

type heldLease struct{}

func (heldLease) Acquire(context.Context, time.Duration) (func(), bool, error) {
	return func() {}, false, nil
}

type countingExpirer struct{ calls int }

func (c *countingExpirer) ExpireDue(context.Context, time.Time) (int64, error) {
	c.calls++
	return 0, nil
}

func TestTick_SkipsWithoutLease(t *testing.T) {
	exp := &countingExpirer{}
	w := New(exp, heldLease{}, time.Second)

	_, err := w.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, exp.calls)
}

type failingExpirer struct{}

func (failingExpirer) ExpireDue(context.Context, time.Time) (int64, error) {
	return 0, errors.New("db down")
}

func TestTick_FailureKeepsLoopAlive(t *testing.T) {
	w := New(failingExpirer{}, nil, 50*time.Millisecond)
	loop := worker.NewLoop("expiry-watcher-test", time.Second, w.Tick)

	next := loop.RunOnce(context.Background())
	assert.Equal(t, 50*time.Millisecond, next)

	st := loop.Status()
	require.NotNil(t, st.LastError)
	assert.Contains(t, *st.LastError, "db down")

	next = loop.RunOnce(context.Background())
	assert.Equal(t, 50*time.Millisecond, next)
}
