package services

import (
	"context"
	"log/slog"

	"github.com/baharkarakas/p2pgate/internal/models"
	repo "github.com/baharkarakas/p2pgate/internal/repository"
)

// auditor writes audit entries; failures are logged and never surfaced.
type auditor struct {
	log  repo.AuditLogs
	opts Options
}

func (a auditor) record(ctx context.Context, entityID, action string, details map[string]any) {
	if a.log == nil {
		return
	}
	ctx, cancel := a.opts.bounded(context.WithoutCancel(ctx))
	defer cancel()
	err := a.log.Create(ctx, models.AuditLog{
		EntityType: "transaction",
		EntityID:   &entityID,
		Action:     action,
		Details:    details,
	})
	if err != nil {
		slog.Warn("audit write failed", "tx_id", entityID, "action", action, "err", err)
	}
}
