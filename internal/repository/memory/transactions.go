package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/p2pgate/internal/models"
	repo "github.com/baharkarakas/p2pgate/internal/repository"
)

type transactions struct{ s *Store }

func excluded(st models.TransactionStatus, exclude []models.TransactionStatus) bool {
	for _, e := range exclude {
		if e == st {
			return true
		}
	}
	return false
}

func (t transactions) window(requisiteID string, from, to time.Time, exclude []models.TransactionStatus, fn func(models.Transaction)) {
	for _, v := range t.s.transactions {
		if v.RequisiteID != requisiteID || excluded(v.Status, exclude) {
			continue
		}
		if v.CreatedAt.Before(from) || !v.CreatedAt.Before(to) {
			continue
		}
		fn(v)
	}
}

func (t transactions) AggregateTurnover(ctx context.Context, requisiteID string, from, to time.Time, exclude []models.TransactionStatus) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, repo.ErrTimeout
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var sum int64
	t.window(requisiteID, from, to, exclude, func(v models.Transaction) { sum += v.Amount })
	return sum, nil
}

func (t transactions) CountTransactions(ctx context.Context, requisiteID string, from, to time.Time, exclude []models.TransactionStatus) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, repo.ErrTimeout
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var n int64
	t.window(requisiteID, from, to, exclude, func(models.Transaction) { n++ })
	return n, nil
}

func (t transactions) MostRecent(ctx context.Context, requisiteID string) (*time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, repo.ErrTimeout
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var last *time.Time
	for _, v := range t.s.transactions {
		if v.RequisiteID != requisiteID {
			continue
		}
		if last == nil || v.CreatedAt.After(*last) {
			c := v.CreatedAt
			last = &c
		}
	}
	return last, nil
}

// WithAllocation holds the store lock for the whole unit and applies the
// staged writes only when fn succeeds. fn must only use the AllocationTx.
func (t transactions) WithAllocation(ctx context.Context, fn func(repo.AllocationTx) error) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	a := &allocationTx{s: t.s}
	if err := fn(a); err != nil {
		return err
	}
	for id, stamp := range a.touched {
		r := t.s.requisites[id]
		r.LastUsedAt = stamp
		t.s.requisites[id] = r
	}
	for _, v := range a.created {
		t.s.transactions[v.ID] = v
		t.s.orderIndex[key(v.MerchantID, v.OrderID)] = v.ID
	}
	t.s.seq = a.seq(t.s.seq)
	return nil
}

type allocationTx struct {
	s       *Store
	touched map[string]time.Time
	created []models.Transaction
}

func (a *allocationTx) seq(base int64) int64 { return base + int64(len(a.created)) }

func (a *allocationTx) TouchRequisite(_ context.Context, requisiteID string, prev, next time.Time) error {
	r, ok := a.s.requisites[requisiteID]
	if !ok {
		return repo.ErrNotFound
	}
	current := r.LastUsedAt
	if stamp, ok := a.touched[requisiteID]; ok {
		current = stamp
	}
	if !current.Equal(prev) {
		return repo.ErrConflict
	}
	if a.touched == nil {
		a.touched = make(map[string]time.Time)
	}
	a.touched[requisiteID] = next
	return nil
}

func (a *allocationTx) CreateTransaction(_ context.Context, v models.Transaction) (models.Transaction, error) {
	if _, dup := a.s.orderIndex[key(v.MerchantID, v.OrderID)]; dup {
		return models.Transaction{}, repo.ErrDuplicateOrder
	}
	for _, c := range a.created {
		if c.MerchantID == v.MerchantID && c.OrderID == v.OrderID {
			return models.Transaction{}, repo.ErrDuplicateOrder
		}
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.NumericID = a.seq(a.s.seq) + 1
	v.UpdatedAt = v.CreatedAt
	v.Version = 0
	a.created = append(a.created, v)
	return v, nil
}

func (t transactions) GetByID(_ context.Context, id string) (models.Transaction, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	v, ok := t.s.transactions[id]
	if !ok {
		return models.Transaction{}, repo.ErrNotFound
	}
	return v, nil
}

func (t transactions) GetByOrder(_ context.Context, merchantID, orderID string) (models.Transaction, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	id, ok := t.s.orderIndex[key(merchantID, orderID)]
	if !ok {
		return models.Transaction{}, repo.ErrNotFound
	}
	return t.s.transactions[id], nil
}

func matches(v models.Transaction, f models.TransactionFilter) bool {
	switch {
	case f.MerchantID != "" && v.MerchantID != f.MerchantID,
		f.OperatorID != "" && v.OperatorID != f.OperatorID,
		f.MethodID != "" && v.MethodID != f.MethodID,
		f.OrderID != "" && v.OrderID != f.OrderID,
		f.Status != "" && v.Status != f.Status:
		return false
	}
	return true
}

func (t transactions) List(_ context.Context, f models.TransactionFilter) ([]models.Transaction, int, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var all []models.Transaction
	for _, v := range t.s.transactions {
		if matches(v, f) {
			all = append(all, v)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].NumericID > all[j].NumericID
	})
	total := len(all)
	limit := f.Limit
	if limit <= 0 {
		limit = 10
	}
	f.Offset = max(f.Offset, 0)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := f.Offset + limit
	if end > total {
		end = total
	}
	return all[f.Offset:end], total, nil
}

func (t transactions) CountByMerchant(ctx context.Context, merchantID string, status models.TransactionStatus) (int, error) {
	_, n, err := t.List(ctx, models.TransactionFilter{MerchantID: merchantID, Status: status, Limit: 1})
	return n, err
}

func (t transactions) UpdateStatus(_ context.Context, id string, expectedVersion int64, status models.TransactionStatus) (models.Transaction, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	v, ok := t.s.transactions[id]
	if !ok || v.Version != expectedVersion {
		return models.Transaction{}, repo.ErrConflict
	}
	v.Status = status
	v.Version++
	v.UpdatedAt = time.Now()
	t.s.transactions[id] = v
	return v, nil
}

func (t transactions) BulkExpire(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, repo.ErrTimeout
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var n int64
	for id, v := range t.s.transactions {
		if v.Status.Terminal() || !v.ExpiresAt.Before(now) {
			continue
		}
		v.Status = models.TxnExpired
		v.Version++
		v.UpdatedAt = now
		t.s.transactions[id] = v
		n++
	}
	return n, nil
}
