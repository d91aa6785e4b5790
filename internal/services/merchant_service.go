package services

import (
	"context"
	"errors"

	"github.com/baharkarakas/p2pgate/internal/auth"
	"github.com/baharkarakas/p2pgate/internal/models"
	repo "github.com/baharkarakas/p2pgate/internal/repository"
)

// ErrUnauthorized is returned for unknown, malformed, disabled or banned
// merchant credentials alike.
var ErrUnauthorized = errors.New("unauthorized")

type MerchantSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	TotalTx int    `json:"totalTx"`
	PaidTx  int    `json:"paidTx"`
}

type MerchantService struct {
	merchants repo.Merchants
	methods   repo.Methods
	trx       repo.Transactions
	opts      Options
}

func NewMerchantService(m repo.Merchants, methods repo.Methods, t repo.Transactions, opts Options) *MerchantService {
	return &MerchantService{merchants: m, methods: methods, trx: t, opts: opts.withDefaults()}
}

// Authenticate resolves an "<merchantID>.<secret>" key to its merchant.
func (s *MerchantService) Authenticate(ctx context.Context, rawKey string) (models.Merchant, error) {
	key, err := auth.ParseAPIKey(rawKey)
	if err != nil {
		return models.Merchant{}, ErrUnauthorized
	}
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()
	m, err := s.merchants.GetByID(ctx, key.MerchantID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Merchant{}, ErrUnauthorized
	}
	if err != nil {
		return models.Merchant{}, storeErr("load merchant", err)
	}
	if m.Disabled || m.Banned || m.APIKeyHash == "" {
		return models.Merchant{}, ErrUnauthorized
	}
	if auth.VerifyAPISecret(key.Secret, m.APIKeyHash) != nil {
		return models.Merchant{}, ErrUnauthorized
	}
	return m, nil
}

func (s *MerchantService) Methods(ctx context.Context, merchantID string) ([]models.PaymentMethod, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()
	out, err := s.methods.ListForMerchant(ctx, merchantID)
	if err != nil {
		return nil, storeErr("list methods", err)
	}
	return out, nil
}

func (s *MerchantService) Summary(ctx context.Context, m models.Merchant) (MerchantSummary, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()
	total, err := s.trx.CountByMerchant(ctx, m.ID, "")
	if err != nil {
		return MerchantSummary{}, storeErr("count transactions", err)
	}
	paid, err := s.trx.CountByMerchant(ctx, m.ID, models.TxnReady)
	if err != nil {
		return MerchantSummary{}, storeErr("count transactions", err)
	}
	return MerchantSummary{ID: m.ID, Name: m.Name, TotalTx: total, PaidTx: paid}, nil
}
