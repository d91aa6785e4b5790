package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/baharkarakas/p2pgate/internal/models"
	"github.com/baharkarakas/p2pgate/internal/worker"
)

// Notifier tells the merchant about a status change.
type Notifier interface {
	Notify(tx models.Transaction)
}

type CallbackPayload struct {
	ID        string                   `json:"id"`
	NumericID int64                    `json:"numericId"`
	OrderID   string                   `json:"orderId"`
	Amount    int64                    `json:"amount"`
	Status    models.TransactionStatus `json:"status"`
	UpdatedAt time.Time                `json:"updatedAt"`
}

// CallbackNotifier posts CallbackPayload to the transaction's callback URI on
// the worker pool. Delivery is best effort.
type CallbackNotifier struct {
	pool   *worker.Pool
	client *http.Client
}

func NewCallbackNotifier(pool *worker.Pool, timeout time.Duration) *CallbackNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CallbackNotifier{pool: pool, client: &http.Client{Timeout: timeout}}
}

func (n *CallbackNotifier) Notify(tx models.Transaction) {
	if tx.CallbackURI == "" {
		return
	}
	ok := n.pool.TrySubmit(func() {
		if err := n.deliver(context.Background(), tx); err != nil {
			slog.Warn("callback delivery failed", "tx_id", tx.ID, "url", tx.CallbackURI, "err", err)
		}
	})
	if !ok {
		slog.Warn("callback dropped, queue full", "tx_id", tx.ID)
	}
}

func (n *CallbackNotifier) deliver(ctx context.Context, tx models.Transaction) error {
	body, err := json.Marshal(CallbackPayload{
		ID:        tx.ID,
		NumericID: tx.NumericID,
		OrderID:   tx.OrderID,
		Amount:    tx.Amount,
		Status:    tx.Status,
		UpdatedAt: tx.UpdatedAt,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tx.CallbackURI, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned %d", resp.StatusCode)
	}
	return nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(models.Transaction) {}
