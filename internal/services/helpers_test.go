package services

import (
	"context"

	"github.com/baharkarakas/p2pgate/internal/models"
	repo "github.com/baharkarakas/p2pgate/internal/repository"
)

type countingRequisites struct {
	repo.Requisites
	calls int
}

func (c *countingRequisites) FindEligible(ctx context.Context, methodType string) ([]models.Requisite, error) {
	c.calls++
	return c.Requisites.FindEligible(ctx, methodType)
}

type recordingPublisher struct {
	events []any
}

func (p *recordingPublisher) Publish(_ string, msg any) error {
	p.events = append(p.events, msg)
	return nil
}

type recordingNotifier struct {
	sent []models.Transaction
}

func (n *recordingNotifier) Notify(tx models.Transaction) { n.sent = append(n.sent, tx) }
