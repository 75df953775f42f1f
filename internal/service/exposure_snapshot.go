package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"metalops/internal/models"
	"metalops/internal/repository"
)

// ExposureSnapshotService periodically materializes per-metal net
// exposure into the snapshot table so the desk can chart exposure over
// time without replaying the execution ledger.
type ExposureSnapshotService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

func (s *ExposureSnapshotService) Run(ctx context.Context, interval time.Duration) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	if interval <= 0 {
		interval = time.Hour
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil && s.Logger != nil {
			s.Logger.Warn("exposure snapshot run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *ExposureSnapshotService) RunOnce(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	rows, err := s.Repo.ExposureByMetal(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	for _, row := range rows {
		if row.Metal == "" {
			continue
		}
		snap := &models.ExposureSnapshot{
			TakenAt:        now,
			Metal:          row.Metal,
			NetQtyMT:       row.NetQtyMT,
			OpenQtyMT:      row.OpenQtyMT,
			OpenExecutions: row.OpenExecutions,
		}
		if err := s.Repo.InsertExposureSnapshot(ctx, snap); err != nil {
			return err
		}
	}
	if len(rows) > 0 && s.Logger != nil {
		s.Logger.Info("exposure snapshot taken", zap.Int("metals", len(rows)))
	}
	return nil
}
