package services

import (
	"context"
	"time"
)

type Options struct {
	// StoreTimeout bounds every individual store call.
	StoreTimeout time.Duration
	// TxTTL is the default deadline of a new transaction.
	TxTTL time.Duration
	// Location defines day and month boundaries of quota windows.
	Location *time.Location
	// AllowAdminOverride enables the audited status override path.
	AllowAdminOverride bool
	Clock              func() time.Time
}

func (o Options) withDefaults() Options {
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 3 * time.Second
	}
	if o.TxTTL <= 0 {
		o.TxTTL = 24 * time.Hour
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

func (o Options) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, o.StoreTimeout)
}
