package repository

import (
	"context"
	"errors"
	"time"

	"github.com/baharkarakas/p2pgate/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateOrder = errors.New("duplicate order id")
	// ErrConflict is returned when a compare-and-swap or a version check misses.
	ErrConflict = errors.New("concurrent modification")
	ErrTimeout  = errors.New("store timeout")
)

type Merchants interface {
	GetByID(ctx context.Context, id string) (models.Merchant, error)
	GetByName(ctx context.Context, name string) (models.Merchant, error)
	Create(ctx context.Context, m models.Merchant) (models.Merchant, error)
	AssignMethod(ctx context.Context, merchantID, methodID string) error
}

type Methods interface {
	GetByID(ctx context.Context, id string) (models.PaymentMethod, error)
	// IsAssigned reports whether the method is enabled for the merchant.
	IsAssigned(ctx context.Context, merchantID, methodID string) (bool, error)
	ListForMerchant(ctx context.Context, merchantID string) ([]models.PaymentMethod, error)
	ListEnabled(ctx context.Context) ([]models.PaymentMethod, error)
}

type Requisites interface {
	// FindEligible returns non-archived requisites of the method type whose
	// operator is not banned, oldest last_used_at first (ties by id).
	FindEligible(ctx context.Context, methodType string) ([]models.Requisite, error)
	GetByID(ctx context.Context, id string) (models.Requisite, error)
	ListByOperator(ctx context.Context, operatorID string, archived bool) ([]models.Requisite, error)
	SetArchived(ctx context.Context, id, operatorID string, archived bool) (models.Requisite, error)
}

// AllocationTx is the unit of work that commits an allocation: the fairness
// stamp and the transaction insert succeed or fail together.
type AllocationTx interface {
	// TouchRequisite moves last_used_at from prev to next. ErrConflict if the
	// stored value is no longer prev.
	TouchRequisite(ctx context.Context, requisiteID string, prev, next time.Time) error
	// CreateTransaction inserts tx. ErrDuplicateOrder on (merchant, orderId) clash.
	CreateTransaction(ctx context.Context, tx models.Transaction) (models.Transaction, error)
}

type Transactions interface {
	AggregateTurnover(ctx context.Context, requisiteID string, from, to time.Time, exclude []models.TransactionStatus) (int64, error)
	CountTransactions(ctx context.Context, requisiteID string, from, to time.Time, exclude []models.TransactionStatus) (int64, error)
	// MostRecent returns the creation time of the latest transaction on the
	// requisite in any status, nil if there is none.
	MostRecent(ctx context.Context, requisiteID string) (*time.Time, error)

	WithAllocation(ctx context.Context, fn func(AllocationTx) error) error

	GetByID(ctx context.Context, id string) (models.Transaction, error)
	GetByOrder(ctx context.Context, merchantID, orderID string) (models.Transaction, error)
	List(ctx context.Context, f models.TransactionFilter) ([]models.Transaction, int, error)
	CountByMerchant(ctx context.Context, merchantID string, status models.TransactionStatus) (int, error)

	// UpdateStatus writes status if the stored version still equals
	// expectedVersion, returning the updated row. ErrConflict otherwise.
	UpdateStatus(ctx context.Context, id string, expectedVersion int64, status models.TransactionStatus) (models.Transaction, error)
	// BulkExpire moves every non-terminal transaction whose deadline is
	// before now to EXPIRED and returns the number of rows touched.
	BulkExpire(ctx context.Context, now time.Time) (int64, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
