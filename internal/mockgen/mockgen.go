// Package mockgen submits synthetic allocations through the regular matcher.
package mockgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/p2pgate/internal/models"
	repo "github.com/baharkarakas/p2pgate/internal/repository"
	"github.com/baharkarakas/p2pgate/internal/services"
)

const MerchantName = "test"

type Allocator interface {
	Allocate(ctx context.Context, req services.AllocationRequest) (services.Allocation, error)
}

type Generator struct {
	merchants repo.Merchants
	methods   repo.Methods
	alloc     Allocator
	rnd       *rand.Rand

	minDelay     time.Duration
	maxDelay     time.Duration
	storeTimeout time.Duration
}

func New(m repo.Merchants, methods repo.Methods, alloc Allocator) *Generator {
	return &Generator{
		merchants: m,
		methods:   methods,
		alloc:     alloc,
		rnd:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		minDelay:     time.Second,
		maxDelay:     20 * time.Second,
		storeTimeout: 3 * time.Second,
	}
}

// WithStoreTimeout bounds each lookup the generator makes before allocating.
func (g *Generator) WithStoreTimeout(d time.Duration) *Generator {
	if d > 0 {
		g.storeTimeout = d
	}
	return g
}

// WithSeed makes amounts, order ids and delays reproducible.
func (g *Generator) WithSeed(seed uint64) *Generator {
	g.rnd = rand.New(rand.NewPCG(seed, seed))
	return g
}

// Tick submits one mock allocation and returns a random delay for the next
// one. The delay is the return value so the loop carries no mutable interval.
func (g *Generator) Tick(ctx context.Context) (time.Duration, error) {
	next := g.delay()

	merchant, method, ok, err := g.prepare(ctx)
	if err != nil || !ok {
		return next, err
	}

	amount := method.MinPayin
	if span := method.MaxPayin - method.MinPayin; span > 0 {
		amount += g.rnd.Int64N(span + 1)
	}
	_, err = g.alloc.Allocate(ctx, services.AllocationRequest{
		MerchantID: merchant.ID,
		MethodID:   method.ID,
		OrderID:    "mock-" + uuid.NewString(),
		Amount:     amount,
		PayerRef:   fmt.Sprintf("mock-payer-%d", g.rnd.IntN(1000)),
		ClientName: "mock",
		IsMock:     true,
	})
	switch {
	case errors.Is(err, services.ErrNoRequisite):
		slog.Debug("mock allocation found no requisite", "method_id", method.ID, "amount", amount)
		return next, nil
	case err != nil:
		return next, err
	}
	return next, nil
}

func (g *Generator) delay() time.Duration {
	span := int64(g.maxDelay - g.minDelay)
	return g.minDelay + time.Duration(g.rnd.Int64N(span+1))
}

// prepare resolves the mock merchant and its method under one store deadline.
// The allocation itself is bounded by the allocation service.
func (g *Generator) prepare(ctx context.Context) (models.Merchant, models.PaymentMethod, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, g.storeTimeout)
	defer cancel()
	merchant, err := g.ensureMerchant(ctx)
	if err != nil {
		return models.Merchant{}, models.PaymentMethod{}, false, err
	}
	method, ok, err := g.pickMethod(ctx, merchant.ID)
	return merchant, method, ok, err
}

func (g *Generator) ensureMerchant(ctx context.Context) (models.Merchant, error) {
	m, err := g.merchants.GetByName(ctx, MerchantName)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return models.Merchant{}, err
	}
	// No API key: the mock merchant cannot authenticate over HTTP.
	m, err = g.merchants.Create(ctx, models.Merchant{Name: MerchantName})
	if err != nil {
		return models.Merchant{}, fmt.Errorf("create mock merchant: %w", err)
	}
	slog.Info("mock merchant created", "merchant_id", m.ID)
	return m, nil
}

func (g *Generator) pickMethod(ctx context.Context, merchantID string) (models.PaymentMethod, bool, error) {
	enabled, err := g.methods.ListEnabled(ctx)
	if err != nil {
		return models.PaymentMethod{}, false, err
	}
	if len(enabled) == 0 {
		slog.Debug("mock traffic idle, no enabled methods")
		return models.PaymentMethod{}, false, nil
	}
	method := enabled[0]
	ok, err := g.methods.IsAssigned(ctx, merchantID, method.ID)
	if err != nil {
		return models.PaymentMethod{}, false, err
	}
	if !ok {
		if err := g.merchants.AssignMethod(ctx, merchantID, method.ID); err != nil {
			return models.PaymentMethod{}, false, fmt.Errorf("assign mock method: %w", err)
		}
	}
	return method, true, nil
}
