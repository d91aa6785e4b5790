package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/baharkarakas/p2pgate/internal/models"
)

type merchantsRepo struct{ db DB }

const merchantCols = `id, name, api_key_hash, disabled, banned, created_at`

func (r *merchantsRepo) GetByID(ctx context.Context, id string) (models.Merchant, error) {
	return r.getOne(ctx, `SELECT `+merchantCols+` FROM merchants WHERE id=$1`, id)
}

func (r *merchantsRepo) GetByName(ctx context.Context, name string) (models.Merchant, error) {
	return r.getOne(ctx, `SELECT `+merchantCols+` FROM merchants WHERE name=$1`, name)
}

func (r *merchantsRepo) getOne(ctx context.Context, q string, arg string) (models.Merchant, error) {
	var m models.Merchant
	err := r.db.QueryRow(ctx, q, arg).
		Scan(&m.ID, &m.Name, &m.APIKeyHash, &m.Disabled, &m.Banned, &m.CreatedAt)
	return m, mapErr(err)
}

func (r *merchantsRepo) Create(ctx context.Context, m models.Merchant) (models.Merchant, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO merchants (id, name, api_key_hash, disabled, banned)
		 VALUES ($1,$2,$3,$4,$5)
		 RETURNING `+merchantCols,
		m.ID, m.Name, m.APIKeyHash, m.Disabled, m.Banned,
	).Scan(&m.ID, &m.Name, &m.APIKeyHash, &m.Disabled, &m.Banned, &m.CreatedAt)
	return m, mapErr(err)
}

func (r *merchantsRepo) AssignMethod(ctx context.Context, merchantID, methodID string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO merchant_methods (merchant_id, method_id, is_enabled)
		 VALUES ($1,$2,true)
		 ON CONFLICT (merchant_id, method_id) DO UPDATE SET is_enabled = true`,
		merchantID, methodID,
	)
	return mapErr(err)
}
