// Package memory is a process-local implementation of the repository
// interfaces. It keeps the same compare-and-swap and uniqueness rules as the
// Postgres store and backs the service and HTTP tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/p2pgate/internal/models"
	repo "github.com/baharkarakas/p2pgate/internal/repository"
)

type Store struct {
	mu           sync.RWMutex
	operators    map[string]models.Operator
	merchants    map[string]models.Merchant
	methods      map[string]models.PaymentMethod
	assignments  map[string]bool // merchantID|methodID
	requisites   map[string]models.Requisite
	transactions map[string]models.Transaction
	orderIndex   map[string]string // merchantID|orderID -> txID
	audit        []models.AuditLog
	seq          int64
}

func NewStore() *Store {
	return &Store{
		operators:    make(map[string]models.Operator),
		merchants:    make(map[string]models.Merchant),
		methods:      make(map[string]models.PaymentMethod),
		assignments:  make(map[string]bool),
		requisites:   make(map[string]models.Requisite),
		transactions: make(map[string]models.Transaction),
		orderIndex:   make(map[string]string),
	}
}

// Repositories exposes the store through the same bundle the Postgres
// factory returns.
type Repositories struct {
	Merchants    repo.Merchants
	Methods      repo.Methods
	Requisites   repo.Requisites
	Transactions repo.Transactions
	AuditLogs    repo.AuditLogs
}

func (s *Store) Repositories() Repositories {
	return Repositories{
		Merchants:    merchants{s},
		Methods:      methods{s},
		Requisites:   requisites{s},
		Transactions: transactions{s},
		AuditLogs:    auditLogs{s},
	}
}

func key(a, b string) string { return a + "|" + b }

// ---- seeding helpers ----

func (s *Store) PutOperator(o models.Operator) models.Operator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	s.operators[o.ID] = o
	return o
}

func (s *Store) PutMethod(m models.PaymentMethod) models.PaymentMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	s.methods[m.ID] = m
	return m
}

func (s *Store) PutRequisite(r models.Requisite) models.Requisite {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.requisites[r.ID] = r
	return r
}

// PutTransaction inserts a transaction as-is, bypassing allocation.
func (s *Store) PutTransaction(t models.Transaction) models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.OrderID == "" {
		t.OrderID = t.ID
	}
	s.seq++
	t.NumericID = s.seq
	s.transactions[t.ID] = t
	s.orderIndex[key(t.MerchantID, t.OrderID)] = t.ID
	return t
}

func (s *Store) AuditEntries() []models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditLog(nil), s.audit...)
}

func (s *Store) withOperator(r models.Requisite) models.Requisite {
	if o, ok := s.operators[r.OperatorID]; ok {
		r.OperatorName = o.Name
		r.OperatorBanned = o.Banned
	}
	return r
}

// ---- merchants ----

type merchants struct{ s *Store }

func (m merchants) GetByID(_ context.Context, id string) (models.Merchant, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	v, ok := m.s.merchants[id]
	if !ok {
		return models.Merchant{}, repo.ErrNotFound
	}
	return v, nil
}

func (m merchants) GetByName(_ context.Context, name string) (models.Merchant, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	for _, v := range m.s.merchants {
		if v.Name == name {
			return v, nil
		}
	}
	return models.Merchant{}, repo.ErrNotFound
}

func (m merchants) Create(_ context.Context, v models.Merchant) (models.Merchant, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	m.s.merchants[v.ID] = v
	return v, nil
}

func (m merchants) AssignMethod(_ context.Context, merchantID, methodID string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.assignments[key(merchantID, methodID)] = true
	return nil
}

// ---- methods ----

type methods struct{ s *Store }

func (m methods) GetByID(_ context.Context, id string) (models.PaymentMethod, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	v, ok := m.s.methods[id]
	if !ok {
		return models.PaymentMethod{}, repo.ErrNotFound
	}
	return v, nil
}

func (m methods) IsAssigned(_ context.Context, merchantID, methodID string) (bool, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	return m.s.assignments[key(merchantID, methodID)], nil
}

func (m methods) ListForMerchant(_ context.Context, merchantID string) ([]models.PaymentMethod, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []models.PaymentMethod
	for id, v := range m.s.methods {
		if v.IsEnabled && m.s.assignments[key(merchantID, id)] {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m methods) ListEnabled(_ context.Context) ([]models.PaymentMethod, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()
	var out []models.PaymentMethod
	for _, v := range m.s.methods {
		if v.IsEnabled {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// ---- requisites ----

type requisites struct{ s *Store }

func (r requisites) FindEligible(_ context.Context, methodType string) ([]models.Requisite, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.Requisite
	for _, v := range r.s.requisites {
		v = r.s.withOperator(v)
		if v.MethodType != methodType || v.IsArchived || v.OperatorBanned {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastUsedAt.Equal(out[j].LastUsedAt) {
			return out[i].LastUsedAt.Before(out[j].LastUsedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r requisites) GetByID(_ context.Context, id string) (models.Requisite, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.requisites[id]
	if !ok {
		return models.Requisite{}, repo.ErrNotFound
	}
	return r.s.withOperator(v), nil
}

func (r requisites) ListByOperator(_ context.Context, operatorID string, archived bool) ([]models.Requisite, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []models.Requisite
	for _, v := range r.s.requisites {
		if v.OperatorID == operatorID && v.IsArchived == archived {
			out = append(out, r.s.withOperator(v))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r requisites) SetArchived(_ context.Context, id, operatorID string, archived bool) (models.Requisite, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.requisites[id]
	if !ok || v.OperatorID != operatorID {
		return models.Requisite{}, repo.ErrNotFound
	}
	v.IsArchived = archived
	r.s.requisites[id] = v
	return r.s.withOperator(v), nil
}

// ---- audit ----

type auditLogs struct{ s *Store }

func (a auditLogs) Create(_ context.Context, l models.AuditLog) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	l.ID = uuid.NewString()
	l.CreatedAt = time.Now()
	a.s.audit = append(a.s.audit, l)
	return nil
}
