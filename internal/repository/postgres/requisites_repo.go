package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/baharkarakas/p2pgate/internal/models"
)

type requisitesRepo struct{ db DB }

const requisiteSelect = `
SELECT r.id, r.operator_id, r.method_type, r.bank_type, r.card_number, r.recipient_name,
       r.min_amount, r.max_amount, r.daily_limit, r.monthly_limit,
       r.max_count_per_day, r.min_interval_minutes, r.is_archived, r.device_id,
       r.last_used_at, r.created_at, o.name, o.banned
  FROM requisites r
  JOIN operators o ON o.id = r.operator_id`

func scanRequisite(row pgx.Row) (models.Requisite, error) {
	var q models.Requisite
	err := row.Scan(&q.ID, &q.OperatorID, &q.MethodType, &q.BankType, &q.CardNumber, &q.RecipientName,
		&q.MinAmount, &q.MaxAmount, &q.DailyLimit, &q.MonthlyLimit,
		&q.MaxCountPerDay, &q.MinIntervalMinutes, &q.IsArchived, &q.DeviceID,
		&q.LastUsedAt, &q.CreatedAt, &q.OperatorName, &q.OperatorBanned)
	return q, err
}

func (r *requisitesRepo) FindEligible(ctx context.Context, methodType string) ([]models.Requisite, error) {
	return r.list(ctx, requisiteSelect+`
 WHERE r.method_type = $1 AND NOT r.is_archived AND NOT o.banned
 ORDER BY r.last_used_at ASC, r.id ASC`, methodType)
}

func (r *requisitesRepo) GetByID(ctx context.Context, id string) (models.Requisite, error) {
	q, err := scanRequisite(r.db.QueryRow(ctx, requisiteSelect+` WHERE r.id = $1`, id))
	return q, mapErr(err)
}

func (r *requisitesRepo) ListByOperator(ctx context.Context, operatorID string, archived bool) ([]models.Requisite, error) {
	return r.list(ctx, requisiteSelect+`
 WHERE r.operator_id = $1 AND r.is_archived = $2
 ORDER BY r.created_at DESC`, operatorID, archived)
}

func (r *requisitesRepo) SetArchived(ctx context.Context, id, operatorID string, archived bool) (models.Requisite, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE requisites SET is_archived = $3 WHERE id = $1 AND operator_id = $2`,
		id, operatorID, archived)
	if err != nil {
		return models.Requisite{}, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return models.Requisite{}, mapErr(pgx.ErrNoRows)
	}
	return r.GetByID(ctx, id)
}

func (r *requisitesRepo) list(ctx context.Context, q string, args ...any) ([]models.Requisite, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []models.Requisite
	for rows.Next() {
		req, err := scanRequisite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, mapErr(rows.Err())
}
