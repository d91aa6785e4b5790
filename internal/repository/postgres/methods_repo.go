package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/baharkarakas/p2pgate/internal/models"
)

type methodsRepo struct{ db DB }

const methodCols = `m.id, m.code, m.name, m.type, m.currency, m.min_payin, m.max_payin,
	m.min_payout, m.max_payout, m.commission_payin, m.commission_payout, m.is_enabled`

func scanMethod(row pgx.Row) (models.PaymentMethod, error) {
	var m models.PaymentMethod
	err := row.Scan(&m.ID, &m.Code, &m.Name, &m.Type, &m.Currency, &m.MinPayin, &m.MaxPayin,
		&m.MinPayout, &m.MaxPayout, &m.CommissionPayin, &m.CommissionPayout, &m.IsEnabled)
	return m, err
}

func (r *methodsRepo) GetByID(ctx context.Context, id string) (models.PaymentMethod, error) {
	m, err := scanMethod(r.db.QueryRow(ctx, `SELECT `+methodCols+` FROM methods m WHERE m.id=$1`, id))
	return m, mapErr(err)
}

func (r *methodsRepo) IsAssigned(ctx context.Context, merchantID, methodID string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM merchant_methods
		                WHERE merchant_id=$1 AND method_id=$2 AND is_enabled)`,
		merchantID, methodID,
	).Scan(&ok)
	return ok, mapErr(err)
}

func (r *methodsRepo) ListForMerchant(ctx context.Context, merchantID string) ([]models.PaymentMethod, error) {
	return r.list(ctx,
		`SELECT `+methodCols+`
		   FROM methods m
		   JOIN merchant_methods mm ON mm.method_id = m.id
		  WHERE mm.merchant_id=$1 AND mm.is_enabled AND m.is_enabled
		  ORDER BY m.code`, merchantID)
}

func (r *methodsRepo) ListEnabled(ctx context.Context) ([]models.PaymentMethod, error) {
	return r.list(ctx, `SELECT `+methodCols+` FROM methods m WHERE m.is_enabled ORDER BY m.code`)
}

func (r *methodsRepo) list(ctx context.Context, q string, args ...any) ([]models.PaymentMethod, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.PaymentMethod
	for rows.Next() {
		m, err := scanMethod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, mapErr(rows.Err())
}
