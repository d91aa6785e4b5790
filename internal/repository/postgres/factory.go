package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	repo "github.com/baharkarakas/p2pgate/internal/repository"
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type Repositories struct {
	Merchants    repo.Merchants
	Methods      repo.Methods
	Requisites   repo.Requisites
	Transactions repo.Transactions
	AuditLogs    repo.AuditLogs
}

func NewRepositories(db DB) Repositories {
	return Repositories{
		Merchants:    &merchantsRepo{db},
		Methods:      &methodsRepo{db},
		Requisites:   &requisitesRepo{db},
		Transactions: &transactionsRepo{db},
		AuditLogs:    &auditLogsRepo{db},
	}
}

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgInvalidTextRepr      = "22P02"

	orderUniqueConstraint = "transactions_merchant_order_key"
)

// mapErr translates driver errors into repository sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repo.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", repo.ErrTimeout, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if pgErr.ConstraintName == orderUniqueConstraint {
				return repo.ErrDuplicateOrder
			}
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s", repo.ErrConflict, pgErr.Message)
		case pgInvalidTextRepr:
			// malformed uuid from a caller: no such row
			return repo.ErrNotFound
		}
	}
	return err
}
