package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"metalops/internal/models"
	"metalops/internal/position"
	"metalops/internal/repository"
)

// DealMatcher scans physical orders that carry price risk but no hedge
// yet and drafts a hedge request for each. The desk still reviews and
// approves every draft; the matcher only removes the manual data entry.
type DealMatcher struct {
	Repo      repository.Repository
	Logger    *zap.Logger
	BatchSize int
}

func (m *DealMatcher) Run(ctx context.Context, interval time.Duration) error {
	if m == nil || m.Repo == nil {
		return nil
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		if err := m.RunOnce(ctx); err != nil && m.Logger != nil {
			m.Logger.Warn("deal matcher run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (m *DealMatcher) RunOnce(ctx context.Context) error {
	if m == nil || m.Repo == nil {
		return nil
	}
	limit := m.BatchSize
	if limit <= 0 {
		limit = 100
	}
	orders, err := m.Repo.ListUnhedgedPhysicalOrders(ctx, limit)
	if err != nil || len(orders) == 0 {
		return err
	}

	drafted := 0
	for _, ord := range orders {
		if !ord.QuantityMT.IsPositive() || ord.Metal == "" {
			continue
		}
		exists, err := m.Repo.HasHedgeRequestForOrder(ctx, ord.ID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		req := draftForOrder(ord)
		if req == nil {
			continue
		}
		if err := m.Repo.CreateHedgeRequest(ctx, req); err != nil {
			return err
		}
		drafted++
	}
	if drafted > 0 && m.Logger != nil {
		m.Logger.Info("deal matcher drafted hedge requests", zap.Int("count", drafted))
	}
	return nil
}

// draftForOrder turns a physical order into a draft hedge request on the
// opposite side: buying metal leaves us long, so the hedge sells, and the
// other way round. Floating-priced orders are not drafted; their price
// risk sits with the counterparty until fixing.
func draftForOrder(ord models.PhysicalOrder) *models.HedgeRequest {
	if !position.ValidDirection(ord.Direction) {
		return nil
	}
	if ord.PriceBasis == "floating" {
		return nil
	}
	orderID := ord.ID
	qty := ord.QuantityMT
	return &models.HedgeRequest{
		Metal:      ord.Metal,
		Direction:  position.OppositeDirection(ord.Direction),
		QuantityMT: qty,
		Status:     position.ReqStatusDraft,
		Source:     position.SourceDealMatching,
		OrderID:    &orderID,
	}
}

