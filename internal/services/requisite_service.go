package services

import (
	"context"
	"errors"

	"github.com/baharkarakas/p2pgate/internal/models"
	repo "github.com/baharkarakas/p2pgate/internal/repository"
)

// RequisiteView is an operator's requisite with its current consumption.
type RequisiteView struct {
	models.Requisite
	DisplayNumber string `json:"displayNumber"`
	HasDevice     bool   `json:"hasDevice"`
	TurnoverDay   int64  `json:"turnoverDay"`
	TurnoverMonth int64  `json:"turnoverMonth"`
	CountDay      int64  `json:"countDay"`
}

type RequisiteService struct {
	reqs  repo.Requisites
	quota *QuotaAggregator
	opts  Options
}

func NewRequisiteService(r repo.Requisites, t repo.Transactions, opts Options) *RequisiteService {
	opts = opts.withDefaults()
	return &RequisiteService{reqs: r, quota: NewQuotaAggregator(t, opts), opts: opts}
}

func (s *RequisiteService) ListForOperator(ctx context.Context, operatorID string, archived bool) ([]RequisiteView, error) {
	lctx, cancel := s.opts.bounded(ctx)
	list, err := s.reqs.ListByOperator(lctx, operatorID, archived)
	cancel()
	if err != nil {
		return nil, storeErr("list requisites", err)
	}

	now := s.opts.Clock()
	out := make([]RequisiteView, 0, len(list))
	for _, r := range list {
		q, err := s.quota.Compute(ctx, r.ID, now)
		if err != nil {
			return nil, err
		}
		out = append(out, RequisiteView{
			Requisite:     r,
			DisplayNumber: r.DisplayNumber(),
			HasDevice:     r.HasDevice(),
			TurnoverDay:   q.DaySum,
			TurnoverMonth: q.MonthSum,
			CountDay:      q.DayCount,
		})
	}
	return out, nil
}

// SetArchived archives or restores a requisite owned by operatorID. Archived
// requisites drop out of the allocation pool immediately.
func (s *RequisiteService) SetArchived(ctx context.Context, operatorID, id string, archived bool) (models.Requisite, error) {
	ctx, cancel := s.opts.bounded(ctx)
	defer cancel()
	r, err := s.reqs.SetArchived(ctx, id, operatorID, archived)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Requisite{}, newErr(KindNotFound, "requisite not found")
	}
	if err != nil {
		return models.Requisite{}, storeErr("archive requisite", err)
	}
	return r, nil
}
