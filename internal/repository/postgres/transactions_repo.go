package postgres

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/baharkarakas/p2pgate/internal/models"
	repo "github.com/baharkarakas/p2pgate/internal/repository"
)

type transactionsRepo struct{ db DB }

const txCols = `id, numeric_id, merchant_id, order_id, amount, currency, type, method_id,
	requisite_id, operator_id, status, commission, rate, payer_ref, payer_ip, client_name,
	callback_uri, success_uri, fail_uri, is_mock, version, created_at, updated_at, expires_at`

func scanTx(row pgx.Row) (models.Transaction, error) {
	var t models.Transaction
	err := row.Scan(&t.ID, &t.NumericID, &t.MerchantID, &t.OrderID, &t.Amount, &t.Currency, &t.Type, &t.MethodID,
		&t.RequisiteID, &t.OperatorID, &t.Status, &t.Commission, &t.Rate, &t.PayerRef, &t.PayerIP, &t.ClientName,
		&t.CallbackURI, &t.SuccessURI, &t.FailURI, &t.IsMock, &t.Version, &t.CreatedAt, &t.UpdatedAt, &t.ExpiresAt)
	return t, err
}

func statusStrings(ss []models.TransactionStatus) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = string(s)
	}
	return out
}

func (r *transactionsRepo) AggregateTurnover(ctx context.Context, requisiteID string, from, to time.Time, exclude []models.TransactionStatus) (int64, error) {
	var sum int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)
		   FROM transactions
		  WHERE requisite_id = $1 AND created_at >= $2 AND created_at < $3
		    AND NOT (status = ANY($4))`,
		requisiteID, from, to, statusStrings(exclude),
	).Scan(&sum)
	return sum, mapErr(err)
}

func (r *transactionsRepo) CountTransactions(ctx context.Context, requisiteID string, from, to time.Time, exclude []models.TransactionStatus) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*)
		   FROM transactions
		  WHERE requisite_id = $1 AND created_at >= $2 AND created_at < $3
		    AND NOT (status = ANY($4))`,
		requisiteID, from, to, statusStrings(exclude),
	).Scan(&n)
	return n, mapErr(err)
}

func (r *transactionsRepo) MostRecent(ctx context.Context, requisiteID string) (*time.Time, error) {
	var last *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT MAX(created_at) FROM transactions WHERE requisite_id = $1`, requisiteID,
	).Scan(&last)
	return last, mapErr(err)
}

// WithAllocation runs fn inside one database transaction. The CAS on
// last_used_at makes read committed sufficient: a competing commit on the
// same requisite changes the row and the second UPDATE matches nothing.
func (r *transactionsRepo) WithAllocation(ctx context.Context, fn func(repo.AllocationTx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return mapErr(err)
	}
	if err := fn(&allocationTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return mapErr(tx.Commit(ctx))
}

type allocationTx struct{ tx pgx.Tx }

func (a *allocationTx) TouchRequisite(ctx context.Context, requisiteID string, prev, next time.Time) error {
	tag, err := a.tx.Exec(ctx,
		`UPDATE requisites SET last_used_at = $3 WHERE id = $1 AND last_used_at = $2`,
		requisiteID, prev, next)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrConflict
	}
	return nil
}

func (a *allocationTx) CreateTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	out, err := scanTx(a.tx.QueryRow(ctx,
		`INSERT INTO transactions (
		   id, merchant_id, order_id, amount, currency, type, method_id, requisite_id, operator_id,
		   status, commission, rate, payer_ref, payer_ip, client_name, callback_uri, success_uri,
		   fail_uri, is_mock, created_at, updated_at, expires_at
		 ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$20,$21)
		 RETURNING `+txCols,
		t.ID, t.MerchantID, t.OrderID, t.Amount, t.Currency, t.Type, t.MethodID, t.RequisiteID, t.OperatorID,
		t.Status, t.Commission, t.Rate, t.PayerRef, t.PayerIP, t.ClientName, t.CallbackURI, t.SuccessURI,
		t.FailURI, t.IsMock, t.CreatedAt, t.ExpiresAt,
	))
	return out, mapErr(err)
}

func (r *transactionsRepo) GetByID(ctx context.Context, id string) (models.Transaction, error) {
	t, err := scanTx(r.db.QueryRow(ctx, `SELECT `+txCols+` FROM transactions WHERE id = $1`, id))
	return t, mapErr(err)
}

func (r *transactionsRepo) GetByOrder(ctx context.Context, merchantID, orderID string) (models.Transaction, error) {
	t, err := scanTx(r.db.QueryRow(ctx,
		`SELECT `+txCols+` FROM transactions WHERE merchant_id = $1 AND order_id = $2`,
		merchantID, orderID))
	return t, mapErr(err)
}

func buildWhere(f models.TransactionFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		conds = append(conds, col+" = $"+strconv.Itoa(len(args)))
	}
	if f.MerchantID != "" {
		add("merchant_id", f.MerchantID)
	}
	if f.OperatorID != "" {
		add("operator_id", f.OperatorID)
	}
	if f.MethodID != "" {
		add("method_id", f.MethodID)
	}
	if f.OrderID != "" {
		add("order_id", f.OrderID)
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *transactionsRepo) List(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, int, error) {
	where, args := buildWhere(f)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		if err = mapErr(err); errors.Is(err, repo.ErrNotFound) {
			return nil, 0, nil
		}
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	args = append(args, limit, f.Offset)
	q := `SELECT ` + txCols + ` FROM transactions` + where +
		` ORDER BY created_at DESC, numeric_id DESC LIMIT $` + strconv.Itoa(len(args)-1) +
		` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		t, err := scanTx(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, mapErr(rows.Err())
}

func (r *transactionsRepo) CountByMerchant(ctx context.Context, merchantID string, status models.TransactionStatus) (int, error) {
	where, args := buildWhere(models.TransactionFilter{MerchantID: merchantID, Status: status})
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&n)
	return n, mapErr(err)
}

func (r *transactionsRepo) UpdateStatus(ctx context.Context, id string, expectedVersion int64, status models.TransactionStatus) (models.Transaction, error) {
	t, err := scanTx(r.db.QueryRow(ctx,
		`UPDATE transactions
		    SET status = $3, version = version + 1, updated_at = now()
		  WHERE id = $1 AND version = $2
		  RETURNING `+txCols,
		id, expectedVersion, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Transaction{}, repo.ErrConflict
	}
	return t, mapErr(err)
}

// BulkExpire skips rows locked by an in-flight status change; they are
// picked up on a later sweep instead of waiting on (or deadlocking with) it.
func (r *transactionsRepo) BulkExpire(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE transactions t
		    SET status = 'EXPIRED', version = t.version + 1, updated_at = $1
		  WHERE t.id IN (
		        SELECT id FROM transactions
		         WHERE expires_at < $1
		           AND status NOT IN ('READY', 'CANCELED', 'EXPIRED')
		         ORDER BY id
		           FOR UPDATE SKIP LOCKED)`,
		now)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}
