package services

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/baharkarakas/p2pgate/internal/events"
	"github.com/baharkarakas/p2pgate/internal/metrics"
	"github.com/baharkarakas/p2pgate/internal/models"
	repo "github.com/baharkarakas/p2pgate/internal/repository"
)

type AllocationRequest struct {
	MerchantID  string
	MethodID    string
	OrderID     string
	Amount      int64
	Currency    string
	PayerRef    string
	PayerIP     *string
	ClientName  string
	CallbackURI string
	SuccessURI  string
	FailURI     string
	Rate        *float64
	ExpiresAt   *time.Time
	IsMock      bool
}

// Allocation is a created transaction together with what it was bound to.
type Allocation struct {
	Transaction models.Transaction
	Requisite   models.Requisite
	Method      models.PaymentMethod
}

type AllocationService struct {
	methods repo.Methods
	reqs    repo.Requisites
	trx     repo.Transactions
	quota   *QuotaAggregator
	audit   auditor
	events  events.Publisher
	opts    Options
}

func NewAllocationService(m repo.Methods, r repo.Requisites, t repo.Transactions, a repo.AuditLogs, pub events.Publisher, opts Options) *AllocationService {
	opts = opts.withDefaults()
	if pub == nil {
		pub = events.Nop{}
	}
	return &AllocationService{
		methods: m,
		reqs:    r,
		trx:     t,
		quota:   NewQuotaAggregator(t, opts),
		audit:   auditor{log: a, opts: opts},
		events:  pub,
		opts:    opts,
	}
}

// Allocate validates req, binds it to the first eligible requisite in
// fairness order and creates the transaction. Validation and availability
// failures happen before any write.
func (s *AllocationService) Allocate(ctx context.Context, req AllocationRequest) (Allocation, error) {
	out, err := s.allocate(ctx, req)
	metrics.AllocationsTotal.WithLabelValues(allocationResult(err)).Inc()
	return out, err
}

func (s *AllocationService) allocate(ctx context.Context, req AllocationRequest) (Allocation, error) {
	if err := validateRequest(req); err != nil {
		return Allocation{}, err
	}

	method, err := s.resolveMethod(ctx, req)
	if err != nil {
		return Allocation{}, err
	}
	if req.Amount < method.MinPayin || req.Amount > method.MaxPayin {
		return Allocation{}, newErr(KindValidation, "amount outside method range").
			with("min", method.MinPayin).with("max", method.MaxPayin)
	}
	currency := req.Currency
	if currency == "" {
		currency = method.Currency
	} else if !strings.EqualFold(currency, method.Currency) {
		return Allocation{}, newErr(KindValidation, "currency does not match method").
			with("currency", method.Currency)
	}

	now := s.opts.Clock()
	expiresAt := now.Add(s.opts.TxTTL)
	if req.ExpiresAt != nil {
		if !req.ExpiresAt.After(now) {
			return Allocation{}, newErr(KindValidation, "expiresAt must be in the future")
		}
		expiresAt = *req.ExpiresAt
	}

	if err := s.checkDuplicate(ctx, req.MerchantID, req.OrderID); err != nil {
		return Allocation{}, err
	}

	pool, err := s.findPool(ctx, method.Type)
	if err != nil {
		return Allocation{}, err
	}

	draft := models.Transaction{
		MerchantID:  req.MerchantID,
		OrderID:     req.OrderID,
		Amount:      req.Amount,
		Currency:    strings.ToUpper(currency),
		Type:        models.TxnIn,
		MethodID:    method.ID,
		Status:      models.TxnCreated,
		Commission:  commission(req.Amount, method.CommissionPayin),
		Rate:        req.Rate,
		PayerRef:    req.PayerRef,
		PayerIP:     req.PayerIP,
		ClientName:  req.ClientName,
		CallbackURI: req.CallbackURI,
		SuccessURI:  req.SuccessURI,
		FailURI:     req.FailURI,
		IsMock:      req.IsMock,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}

	for _, cand := range EligibleCandidates(pool, method.Type, req.Amount) {
		q, err := s.quota.Compute(ctx, cand.ID, now)
		if err != nil {
			return Allocation{}, err
		}
		if gate := Gate(cand, q, req.Amount, now); gate != "" {
			metrics.CandidatesRejected.WithLabelValues(gate).Inc()
			slog.Debug("candidate rejected", "requisite_id", cand.ID, "gate", gate, "order_id", req.OrderID)
			continue
		}

		tx, err := s.commit(ctx, cand, draft, now)
		switch {
		case errors.Is(err, repo.ErrConflict):
			metrics.AllocationConflicts.Inc()
			slog.Debug("candidate taken concurrently", "requisite_id", cand.ID, "order_id", req.OrderID)
			continue
		case errors.Is(err, repo.ErrDuplicateOrder):
			return Allocation{}, s.duplicateErr(ctx, req.MerchantID, req.OrderID)
		case err != nil:
			return Allocation{}, storeErr("commit allocation", err)
		}

		s.afterCommit(ctx, tx, cand)
		cand.LastUsedAt = nextStamp(now, cand.LastUsedAt)
		return Allocation{Transaction: tx, Requisite: cand, Method: method}, nil
	}

	return Allocation{}, newErr(KindNoRequisite, "no requisite available")
}

// commit stamps the fairness marker with a compare-and-swap on the value the
// candidate was read with and inserts the transaction in the same unit.
func (s *AllocationService) commit(ctx context.Context, cand models.Requisite, draft models.Transaction, now time.Time) (models.Transaction, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	draft.RequisiteID = cand.ID
	draft.OperatorID = cand.OperatorID
	var created models.Transaction
	err := s.trx.WithAllocation(ctx, func(tx repo.AllocationTx) error {
		if err := tx.TouchRequisite(ctx, cand.ID, cand.LastUsedAt, nextStamp(now, cand.LastUsedAt)); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateTransaction(ctx, draft)
		return err
	})
	return created, err
}

func (s *AllocationService) afterCommit(ctx context.Context, tx models.Transaction, r models.Requisite) {
	slog.Info("transaction allocated",
		"tx_id", tx.ID, "merchant_id", tx.MerchantID, "order_id", tx.OrderID,
		"requisite_id", r.ID, "operator_id", r.OperatorID, "amount", tx.Amount, "mock", tx.IsMock)
	s.audit.record(ctx, tx.ID, "created", map[string]any{
		"requisite_id": r.ID,
		"operator_id":  r.OperatorID,
		"amount":       tx.Amount,
	})
	err := s.events.Publish(events.TopicTransactionStatus, events.StatusEvent{
		TransactionID: tx.ID,
		MerchantID:    tx.MerchantID,
		OrderID:       tx.OrderID,
		OperatorID:    tx.OperatorID,
		RequisiteID:   tx.RequisiteID,
		Amount:        tx.Amount,
		To:            string(tx.Status),
		Actor:         "merchant",
		At:            tx.CreatedAt,
	})
	if err != nil {
		slog.Warn("event publish failed", "tx_id", tx.ID, "err", err)
	}
}

func (s *AllocationService) resolveMethod(ctx context.Context, req AllocationRequest) (models.PaymentMethod, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	method, err := s.methods.GetByID(ctx, req.MethodID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.PaymentMethod{}, newErr(KindMethodUnavailable, "method not found")
	}
	if err != nil {
		return models.PaymentMethod{}, storeErr("load method", err)
	}
	if !method.IsEnabled {
		return models.PaymentMethod{}, newErr(KindMethodUnavailable, "method disabled")
	}
	ok, err := s.methods.IsAssigned(ctx, req.MerchantID, method.ID)
	if err != nil {
		return models.PaymentMethod{}, storeErr("load merchant method", err)
	}
	if !ok {
		return models.PaymentMethod{}, newErr(KindMethodUnavailable, "method not assigned to merchant")
	}
	return method, nil
}

func (s *AllocationService) checkDuplicate(ctx context.Context, merchantID, orderID string) error {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()

	existing, err := s.trx.GetByOrder(ctx, merchantID, orderID)
	switch {
	case err == nil:
		return newErr(KindDuplicateOrder, "order id already used").with("transactionId", existing.ID)
	case errors.Is(err, repo.ErrNotFound):
		return nil
	default:
		return storeErr("lookup order", err)
	}
}

func (s *AllocationService) duplicateErr(ctx context.Context, merchantID, orderID string) error {
	if err := s.checkDuplicate(ctx, merchantID, orderID); err != nil {
		return err
	}
	return newErr(KindDuplicateOrder, "order id already used")
}

func (s *AllocationService) findPool(ctx context.Context, methodType string) ([]models.Requisite, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()
	pool, err := s.reqs.FindEligible(ctx, methodType)
	if err != nil {
		return nil, storeErr("load requisite pool", err)
	}
	return pool, nil
}

func validateRequest(req AllocationRequest) error {
	switch {
	case req.MerchantID == "":
		return newErr(KindValidation, "merchant is required")
	case strings.TrimSpace(req.OrderID) == "":
		return newErr(KindValidation, "orderId is required")
	case req.MethodID == "":
		return newErr(KindValidation, "methodId is required")
	case req.Amount <= 0:
		return newErr(KindValidation, "amount must be positive")
	}
	return nil
}

// nextStamp is the fairness marker written on commit. It is strictly later
// than prev so a later compare-and-swap can always tell the two apart.
func nextStamp(now, prev time.Time) time.Time {
	stamp := now.Truncate(time.Microsecond)
	if !stamp.After(prev) {
		stamp = prev.Add(time.Microsecond)
	}
	return stamp
}

// commission applies a percentage rate, rounding half away from zero.
func commission(amount int64, ratePercent float64) int64 {
	return int64(math.Round(float64(amount) * ratePercent / 100))
}

func allocationResult(err error) string {
	switch KindOf(err) {
	case "":
		if err == nil {
			return "ok"
		}
		return "error"
	case KindNoRequisite:
		return "no_requisite"
	case KindDuplicateOrder:
		return "duplicate"
	case KindValidation:
		return "validation"
	case KindMethodUnavailable:
		return "method_unavailable"
	case KindStoreTimeout:
		return "timeout"
	}
	return "error"
}
