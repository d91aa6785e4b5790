package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/p2pgate/internal/auth"
	"github.com/baharkarakas/p2pgate/internal/models"
	"github.com/baharkarakas/p2pgate/internal/repository/memory"
)

func TestMerchantService_Authenticate(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	secret, hash, err := auth.NewAPISecret()
	require.NoError(t, err)
	m, err := repos.Merchants.Create(context.Background(), models.Merchant{Name: "shop", APIKeyHash: hash})
	require.NoError(t, err)
	banned, err := repos.Merchants.Create(context.Background(), models.Merchant{Name: "bad", APIKeyHash: hash, Banned: true})
	require.NoError(t, err)
	svc := NewMerchantService(repos.Merchants, repos.Methods, repos.Transactions, Options{})

	got, err := svc.Authenticate(context.Background(), m.ID+"."+secret)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	for _, key := range []string{
		"",
		"no-dot",
		m.ID + ".wrong",
		"unknown." + secret,
		banned.ID + "." + secret,
	} {
		_, err := svc.Authenticate(context.Background(), key)
		assert.ErrorIs(t, err, ErrUnauthorized, key)
	}
}

func TestMerchantService_Summary(t *testing.T) {
	store := memory.NewStore()
	repos := store.Repositories()
	m := models.Merchant{ID: "m-1", Name: "shop"}
	store.PutTransaction(models.Transaction{MerchantID: "m-1", Status: models.TxnReady})
	store.PutTransaction(models.Transaction{MerchantID: "m-1", Status: models.TxnCreated})
	store.PutTransaction(models.Transaction{MerchantID: "m-2", Status: models.TxnReady})

	sum, err := NewMerchantService(repos.Merchants, repos.Methods, repos.Transactions, Options{}).Summary(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, MerchantSummary{ID: "m-1", Name: "shop", TotalTx: 2, PaidTx: 1}, sum)
}
