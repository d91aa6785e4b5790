package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/baharkarakas/p2pgate/internal/models"
	repo "github.com/baharkarakas/p2pgate/internal/repository"
)

// Window is a half-open time range [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

func DayWindow(now time.Time, loc *time.Location) Window {
	t := now.In(loc)
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return Window{From: from, To: from.AddDate(0, 0, 1)}
}

func MonthWindow(now time.Time, loc *time.Location) Window {
	t := now.In(loc)
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	return Window{From: from, To: from.AddDate(0, 1, 0)}
}

// Quota is the consumed capacity of one requisite at a moment.
type Quota struct {
	DaySum     int64
	MonthSum   int64
	DayCount   int64
	LastTxTime *time.Time
}

// Canceled transactions free their capacity.
var quotaExcluded = []models.TransactionStatus{models.TxnCanceled}

type QuotaAggregator struct {
	trx  repo.Transactions
	opts Options
}

func NewQuotaAggregator(trx repo.Transactions, opts Options) *QuotaAggregator {
	return &QuotaAggregator{trx: trx, opts: opts.withDefaults()}
}

// Compute issues the four reads concurrently and returns once all of them
// finished. The first failure cancels the rest.
func (a *QuotaAggregator) Compute(ctx context.Context, requisiteID string, now time.Time) (Quota, error) {
	day := DayWindow(now, a.opts.Location)
	month := MonthWindow(now, a.opts.Location)

	ctx, cancel := a.opts.bounded(ctx)
	defer cancel()

	var q Quota
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		q.DaySum, err = a.trx.AggregateTurnover(gctx, requisiteID, day.From, day.To, quotaExcluded)
		return err
	})
	g.Go(func() (err error) {
		q.MonthSum, err = a.trx.AggregateTurnover(gctx, requisiteID, month.From, month.To, quotaExcluded)
		return err
	})
	g.Go(func() (err error) {
		q.DayCount, err = a.trx.CountTransactions(gctx, requisiteID, day.From, day.To, quotaExcluded)
		return err
	})
	g.Go(func() (err error) {
		q.LastTxTime, err = a.trx.MostRecent(gctx, requisiteID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Quota{}, storeErr("quota read", err)
	}
	return q, nil
}

// Gate names the first limit that rejects amount on r, or "" if r can take it.
// Zero limits mean unlimited.
func Gate(r models.Requisite, q Quota, amount int64, now time.Time) string {
	if r.DailyLimit > 0 && q.DaySum+amount > r.DailyLimit {
		return "daily_limit"
	}
	if r.MonthlyLimit > 0 && q.MonthSum+amount > r.MonthlyLimit {
		return "monthly_limit"
	}
	if r.MaxCountPerDay > 0 && q.DayCount+1 > int64(r.MaxCountPerDay) {
		return "daily_count"
	}
	if r.MinIntervalMinutes > 0 && q.LastTxTime != nil &&
		now.Sub(*q.LastTxTime) < time.Duration(r.MinIntervalMinutes)*time.Minute {
		return "min_interval"
	}
	return ""
}
