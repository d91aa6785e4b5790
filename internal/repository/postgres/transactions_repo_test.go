package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baharkarakas/p2pgate/internal/models"
	repo "github.com/baharkarakas/p2pgate/internal/repository"
	"github.com/baharkarakas/p2pgate/internal/services"
)

func setupMock(t *testing.T) (pgxmock.PgxPoolIface, Repositories) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewRepositories(mock)
}

var readCommitted = pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite}

func TestTouchRequisite_CASMissIsConflict(t *testing.T) {
	mock, repos := setupMock(t)
	prev := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	next := prev.Add(time.Hour)

	mock.ExpectBeginTx(readCommitted)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE requisites SET last_used_at = $3 WHERE id = $1 AND last_used_at = $2`)).
		WithArgs("req-1", prev, next).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := repos.Transactions.WithAllocation(context.Background(), func(tx repo.AllocationTx) error {
		return tx.TouchRequisite(context.Background(), "req-1", prev, next)
	})
	assert.ErrorIs(t, err, repo.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithAllocation_DuplicateOrderRollsBack(t *testing.T) {
	mock, repos := setupMock(t)
	prev := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	next := prev.Add(time.Minute)

	mock.ExpectBeginTx(readCommitted)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE requisites SET last_used_at`)).
		WithArgs("req-1", prev, next).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "transactions_merchant_order_key"})
	mock.ExpectRollback()

	err := repos.Transactions.WithAllocation(context.Background(), func(tx repo.AllocationTx) error {
		if err := tx.TouchRequisite(context.Background(), "req-1", prev, next); err != nil {
			return err
		}
		_, err := tx.CreateTransaction(context.Background(), models.Transaction{
			ID: "tx-1", MerchantID: "m-1", OrderID: "o-1", Amount: 500, Status: models.TxnCreated,
			CreatedAt: next, ExpiresAt: next.Add(time.Hour),
		})
		return err
	})
	assert.ErrorIs(t, err, repo.ErrDuplicateOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithAllocation_Commits(t *testing.T) {
	mock, repos := setupMock(t)
	prev := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	next := prev.Add(time.Minute)

	mock.ExpectBeginTx(readCommitted)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE requisites SET last_used_at`)).
		WithArgs("req-1", prev, next).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err := repos.Transactions.WithAllocation(context.Background(), func(tx repo.AllocationTx) error {
		return tx.TouchRequisite(context.Background(), "req-1", prev, next)
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAggregateTurnover_ExcludesStatuses(t *testing.T) {
	mock, repos := setupMock(t)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(amount), 0)`)).
		WithArgs("req-1", from, to, []string{"CANCELED"}).
		WillReturnRows(pgxmock.NewRows([]string{"sum"}).AddRow(int64(1200)))

	sum, err := repos.Transactions.AggregateTurnover(context.Background(), "req-1", from, to,
		[]models.TransactionStatus{models.TxnCanceled})
	require.NoError(t, err)
	assert.EqualValues(t, 1200, sum)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatus_VersionMissIsConflict(t *testing.T) {
	mock, repos := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE transactions`)).
		WithArgs("tx-1", int64(3), models.TxnReady).
		WillReturnError(pgx.ErrNoRows)

	_, err := repos.Transactions.UpdateStatus(context.Background(), "tx-1", 3, models.TxnReady)
	assert.ErrorIs(t, err, repo.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkExpire_ReturnsAffected(t *testing.T) {
	mock, repos := setupMock(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)).
		WithArgs(now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))

	n, err := repos.Transactions.BulkExpire(context.Background(), now)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	mock, repos := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions WHERE id = $1`)).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repos.Transactions.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestMapErr(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", pgx.ErrNoRows, repo.ErrNotFound},
		{"deadline", context.DeadlineExceeded, repo.ErrTimeout},
		{"order unique", &pgconn.PgError{Code: "23505", ConstraintName: "transactions_merchant_order_key"}, repo.ErrDuplicateOrder},
		{"serialization", &pgconn.PgError{Code: "40001"}, repo.ErrConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, repo.ErrConflict},
		{"malformed uuid", &pgconn.PgError{Code: "22P02"}, repo.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, mapErr(tc.in), tc.want)
		})
	}

	other := &pgconn.PgError{Code: "23505", ConstraintName: "merchants_name_key"}
	assert.Same(t, other, mapErr(other))
}

func invalidUUID(v string) error {
	return &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "` + v + `"`}
}

func TestGetByID_MalformedIDIsNotFound(t *testing.T) {
	mock, repos := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions WHERE id = $1`)).
		WithArgs("abc").
		WillReturnError(invalidUUID("abc"))

	svc := services.NewTransactionService(repos.Transactions, nil, nil, nil, services.Options{})
	_, err := svc.Get(context.Background(), "abc", services.Actor{Role: services.ActorAdmin})
	assert.Equal(t, services.KindNotFound, services.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMethodGetByID_MalformedIDIsNotFound(t *testing.T) {
	mock, repos := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM methods m WHERE m.id=$1`)).
		WithArgs("abc").
		WillReturnError(invalidUUID("abc"))

	_, err := repos.Methods.GetByID(context.Background(), "abc")
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_MalformedFilterMatchesNothing(t *testing.T) {
	mock, repos := setupMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM transactions WHERE merchant_id = $1`)).
		WithArgs("abc").
		WillReturnError(invalidUUID("abc"))

	list, total, err := repos.Transactions.List(context.Background(), models.TransactionFilter{MerchantID: "abc", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}
