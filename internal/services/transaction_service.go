package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/baharkarakas/p2pgate/internal/events"
	"github.com/baharkarakas/p2pgate/internal/metrics"
	"github.com/baharkarakas/p2pgate/internal/models"
	repo "github.com/baharkarakas/p2pgate/internal/repository"
)

const (
	ActorOperator = "operator"
	ActorAdmin    = "admin"
	ActorWatcher  = "watcher"
)

// Actor is whoever asks for a status change.
type Actor struct {
	Role string
	ID   string
}

// transitions lists every move the guarded path allows. Terminal states have
// no entry.
var transitions = map[models.TransactionStatus][]models.TransactionStatus{
	models.TxnCreated: {models.TxnReady, models.TxnDispute, models.TxnCanceled, models.TxnExpired},
	models.TxnDispute: {models.TxnReady, models.TxnCanceled, models.TxnExpired},
}

// CanTransition reports whether the guarded path lets role move from -> to.
func CanTransition(from, to models.TransactionStatus, role string) bool {
	if to == models.TxnExpired && role != ActorWatcher {
		return false
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

const maxVersionRetries = 3

type TransactionService struct {
	trx    repo.Transactions
	audit  auditor
	events events.Publisher
	notify Notifier
	opts   Options
}

func NewTransactionService(t repo.Transactions, a repo.AuditLogs, pub events.Publisher, n Notifier, opts Options) *TransactionService {
	opts = opts.withDefaults()
	if pub == nil {
		pub = events.Nop{}
	}
	if n == nil {
		n = nopNotifier{}
	}
	return &TransactionService{
		trx:    t,
		audit:  auditor{log: a, opts: opts},
		events: pub,
		notify: n,
		opts:   opts,
	}
}

// Get returns a transaction. Operators only see their own; anything else
// reads as not found.
func (s *TransactionService) Get(ctx context.Context, id string, actor Actor) (models.Transaction, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()
	tx, err := s.trx.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Transaction{}, newErr(KindNotFound, "transaction not found")
	}
	if err != nil {
		return models.Transaction{}, storeErr("load transaction", err)
	}
	if actor.Role == ActorOperator && tx.OperatorID != actor.ID {
		return models.Transaction{}, newErr(KindNotFound, "transaction not found")
	}
	return tx, nil
}

// GetForMerchant returns a transaction owned by merchantID.
func (s *TransactionService) GetForMerchant(ctx context.Context, merchantID, id string) (models.Transaction, error) {
	tx, err := s.Get(ctx, id, Actor{Role: ActorAdmin})
	if err != nil {
		return models.Transaction{}, err
	}
	if tx.MerchantID != merchantID {
		return models.Transaction{}, newErr(KindNotFound, "transaction not found")
	}
	return tx, nil
}

func (s *TransactionService) GetByOrder(ctx context.Context, merchantID, orderID string) (models.Transaction, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()
	tx, err := s.trx.GetByOrder(ctx, merchantID, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Transaction{}, newErr(KindNotFound, "transaction not found")
	}
	if err != nil {
		return models.Transaction{}, storeErr("load transaction", err)
	}
	return tx, nil
}

func (s *TransactionService) List(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, int, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, newErr(KindValidation, "unknown status").with("status", f.Status)
	}
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()
	out, total, err := s.trx.List(ctx, f)
	if err != nil {
		return nil, 0, storeErr("list transactions", err)
	}
	return out, total, nil
}

// Transition is the single guarded entry point for status changes. A version
// miss re-reads the row and evaluates the guard again.
func (s *TransactionService) Transition(ctx context.Context, id string, to models.TransactionStatus, actor Actor) (models.Transaction, error) {
	if !to.Valid() {
		return models.Transaction{}, newErr(KindValidation, "unknown status").with("status", to)
	}
	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		cur, err := s.Get(ctx, id, actor)
		if err != nil {
			return models.Transaction{}, err
		}
		if !CanTransition(cur.Status, to, actor.Role) {
			return models.Transaction{}, newErr(KindInvalidTransition, "status change not allowed").
				with("from", cur.Status).with("to", to)
		}

		updated, err := s.write(ctx, cur, to)
		if errors.Is(err, repo.ErrConflict) {
			slog.Debug("status version moved, retrying", "tx_id", id, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return models.Transaction{}, storeErr("update status", err)
		}
		s.changed(ctx, cur.Status, updated, actor, "status_change")
		return updated, nil
	}
	return models.Transaction{}, newErr(KindStoreConflict, "transaction changed concurrently")
}

// Override lets an administrator correct a status outside the transition
// table, terminal states included. It is off unless enabled in Options and
// never sets EXPIRED.
func (s *TransactionService) Override(ctx context.Context, id string, to models.TransactionStatus, actor Actor, reason string) (models.Transaction, error) {
	if !s.opts.AllowAdminOverride || actor.Role != ActorAdmin {
		return models.Transaction{}, newErr(KindInvalidTransition, "status override disabled")
	}
	if !to.Valid() || to == models.TxnExpired {
		return models.Transaction{}, newErr(KindValidation, "status cannot be set by override").with("status", to)
	}
	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		cur, err := s.Get(ctx, id, actor)
		if err != nil {
			return models.Transaction{}, err
		}
		if cur.Status == to {
			return cur, nil
		}
		updated, err := s.write(ctx, cur, to)
		if errors.Is(err, repo.ErrConflict) {
			continue
		}
		if err != nil {
			return models.Transaction{}, storeErr("override status", err)
		}
		slog.Warn("status overridden", "tx_id", id, "from", cur.Status, "to", to, "admin_id", actor.ID, "reason", reason)
		s.changed(ctx, cur.Status, updated, actor, "status_override")
		return updated, nil
	}
	return models.Transaction{}, newErr(KindStoreConflict, "transaction changed concurrently")
}

// ExpireDue moves every overdue non-terminal transaction to EXPIRED in one
// set-based write. Calling it again with the same now is a no-op.
func (s *TransactionService) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()
	n, err := s.trx.BulkExpire(ctx, now)
	if err != nil {
		return 0, storeErr("expire transactions", err)
	}
	if n > 0 {
		metrics.TransactionsExpired.Add(float64(n))
		metrics.StatusTransitions.WithLabelValues("*", string(models.TxnExpired)).Add(float64(n))
	}
	return n, nil
}

func (s *TransactionService) write(ctx context.Context, cur models.Transaction, to models.TransactionStatus) (models.Transaction, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()
	return s.trx.UpdateStatus(ctx, cur.ID, cur.Version, to)
}

func (s *TransactionService) changed(ctx context.Context, from models.TransactionStatus, tx models.Transaction, actor Actor, action string) {
	metrics.StatusTransitions.WithLabelValues(string(from), string(tx.Status)).Inc()
	slog.Info("transaction status changed",
		"tx_id", tx.ID, "from", from, "to", tx.Status, "actor", actor.Role, "actor_id", actor.ID)

	s.audit.record(ctx, tx.ID, action, map[string]any{
		"from":     string(from),
		"to":       string(tx.Status),
		"actor":    actor.Role,
		"actor_id": actor.ID,
	})
	err := s.events.Publish(events.TopicTransactionStatus, events.StatusEvent{
		TransactionID: tx.ID,
		MerchantID:    tx.MerchantID,
		OrderID:       tx.OrderID,
		OperatorID:    tx.OperatorID,
		RequisiteID:   tx.RequisiteID,
		Amount:        tx.Amount,
		From:          string(from),
		To:            string(tx.Status),
		Actor:         actor.Role,
		At:            tx.UpdatedAt,
	})
	if err != nil {
		slog.Warn("event publish failed", "tx_id", tx.ID, "err", err)
	}
	s.notify.Notify(tx)
}
