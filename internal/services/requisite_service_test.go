package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/p2pgate/internal/models"
	"github.com/baharkarakas/p2pgate/internal/repository/memory"
)

func TestRequisiteService_ListWithTurnover(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	device := "dev-1"
	store.PutOperator(models.Operator{ID: "op-1", Name: "op"})
	store.PutRequisite(models.Requisite{ID: "req-a", OperatorID: "op-1", CardNumber: "22001234", DeviceID: &device})
	store.PutRequisite(models.Requisite{ID: "req-x", OperatorID: "op-2"})
	store.PutTransaction(models.Transaction{RequisiteID: "req-a", Amount: 300, Status: models.TxnReady, CreatedAt: testNow.Add(-time.Hour)})
	store.PutTransaction(models.Transaction{RequisiteID: "req-a", Amount: 900, Status: models.TxnCanceled, CreatedAt: testNow.Add(-time.Hour)})

	svc := NewRequisiteService(repos.Requisites, repos.Transactions, Options{Clock: func() time.Time { return testNow }})
	list, err := svc.ListForOperator(context.Background(), "op-1", false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "req-a", list[0].ID)
	assert.True(t, list[0].HasDevice)
	assert.Equal(t, "2200 1234", list[0].DisplayNumber)
	assert.EqualValues(t, 300, list[0].TurnoverDay)
	assert.EqualValues(t, 300, list[0].TurnoverMonth)
	assert.EqualValues(t, 1, list[0].CountDay)
}

func TestRequisiteService_ArchiveRemovesFromPool(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	store.PutOperator(models.Operator{ID: "op-1"})
	store.PutRequisite(models.Requisite{ID: "req-a", OperatorID: "op-1", MethodType: "card"})
	svc := NewRequisiteService(repos.Requisites, repos.Transactions, Options{})

	_, err := svc.SetArchived(context.Background(), "op-2", "req-a", true)
	assert.ErrorIs(t, err, ErrNotFound)

	r, err := svc.SetArchived(context.Background(), "op-1", "req-a", true)
	require.NoError(t, err)
	assert.True(t, r.IsArchived)
	pool, _ := repos.Requisites.FindEligible(context.Background(), "card")
	assert.Empty(t, pool)

	_, err = svc.SetArchived(context.Background(), "op-1", "req-a", false)
	require.NoError(t, err)
	pool, _ = repos.Requisites.FindEligible(context.Background(), "card")
	assert.Len(t, pool, 1)
}
