package mockgen

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/p2pgate/internal/models"
	repo "github.com/baharkarakas/p2pgate/internal/repository"
	"github.com/baharkarakas/p2pgate/internal/repository/memory"
	"github.com/baharkarakas/p2pgate/internal/services"
)

func TestTick_AllocatesMockTransaction(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	op := store.PutOperator(models.Operator{Name: "op"})
	method := store.PutMethod(models.PaymentMethod{
		Code: "card", Type: "card", Currency: "RUB",
		MinPayin: 100, MaxPayin: 500, IsEnabled: true,
	})
	store.PutRequisite(models.Requisite{
		OperatorID: op.ID, MethodType: "card", CardNumber: "4111111111111111",
		MinAmount: 1, MaxAmount: 10_000,
	})
	alloc := services.NewAllocationService(repos.Methods, repos.Requisites, repos.Transactions, repos.AuditLogs, nil, services.Options{})
	g := New(repos.Merchants, repos.Methods, alloc).WithSeed(7)

	next, err := g.Tick(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, next, time.Second)
	assert.LessOrEqual(t, next, 20*time.Second)

	merchant, err := repos.Merchants.GetByName(context.Background(), MerchantName)
	require.NoError(t, err)
	list, total, err := repos.Transactions.List(context.Background(), models.TransactionFilter{MerchantID: merchant.ID})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.True(t, list[0].IsMock)
	assert.Equal(t, method.ID, list[0].MethodID)
	assert.GreaterOrEqual(t, list[0].Amount, int64(100))
	assert.LessOrEqual(t, list[0].Amount, int64(500))
}

func TestTick_NoRequisiteIsNotAFailure(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	store.PutMethod(models.PaymentMethod{Code: "card", Type: "card", Currency: "RUB", MinPayin: 1, MaxPayin: 10, IsEnabled: true})
	alloc := services.NewAllocationService(repos.Methods, repos.Requisites, repos.Transactions, repos.AuditLogs, nil, services.Options{})

	_, err := New(repos.Merchants, repos.Methods, alloc).Tick(context.Background())
	assert.NoError(t, err)
}

func TestDelayStaysInRange(t *testing.T) {
	g := New(nil, nil, nil).WithSeed(1)
	for i := 0; i < 200; i++ {
		d := g.delay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 20*time.Second)
	}
}

// stalledMerchants blocks until the caller's deadline fires.
type stalledMerchants struct{ repo.Merchants }

func (stalledMerchants) GetByName(ctx context.Context, _ string) (models.Merchant, error) {
	<-ctx.Done()
	return models.Merchant{}, ctx.Err()
}

func TestTick_StoreLookupsAreBounded(t *testing.T) {
	repos := memory.NewStore().Repositories()
	g := New(stalledMerchants{repos.Merchants}, repos.Methods, nil).WithStoreTimeout(20 * time.Millisecond)

	start := time.Now()
	_, err := g.Tick(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}
