package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"metalops/internal/cache"
	"metalops/internal/models"
	"metalops/internal/position"
	"metalops/internal/repository"
)

// HedgeOrchestrator sequences each hedge operation: load current records,
// run the position engine, persist every produced record as one atomic
// unit, then invalidate the derived projections. The concurrency guard is
// a fresh in-transaction read of the target execution plus compare-and-swap
// writes on the version column; a losing racer gets a ConflictError and
// nothing is clamped or partially applied.
type HedgeOrchestrator struct {
	Repo   repository.Repository
	Cache  *cache.ProjectionCache
	Logger *zap.Logger
}

// Open fulfils an approved request with a brand-new execution.
func (o *HedgeOrchestrator) Open(ctx context.Context, requestID uint64, in position.OpenInput) (*position.OpenResult, error) {
	req, err := o.Repo.GetHedgeRequestByID(ctx, requestID)
	if err != nil {
		return nil, position.Storage(err)
	}
	if req == nil {
		return nil, position.NotFound("hedge request", requestID)
	}
	now := time.Now().UTC()

	out, err := position.Open(*req, in, now)
	if err != nil {
		return nil, err
	}
	if out.Execution.ContractRef == "" {
		out.Execution.ContractRef = uuid.NewString()
	}

	err = o.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := o.Repo.CreateHedgeExecutionTx(ctx, tx, &out.Execution); err != nil {
			return position.Storage(err)
		}
		if out.Link != nil {
			out.Link.ExecutionID = out.Execution.ID
			if err := o.Repo.CreateHedgeLinkTx(ctx, tx, out.Link); err != nil {
				return position.Storage(err)
			}
			if out.Link.LinkLevel == position.LinkLevelOrder {
				if err := o.Repo.MarkPhysicalOrderHedgedTx(ctx, tx, out.Link.LinkID, true); err != nil {
					return position.Storage(err)
				}
			}
		}
		out.Request.ExecutionID = &out.Execution.ID
		return wrapStore(o.Repo.UpdateHedgeRequestGuardedTx(ctx, tx, &out.Request, req.Version))
	})
	if err != nil {
		return nil, err
	}

	o.invalidate(ctx, out.Execution.Metal)
	o.logOp("hedge opened",
		zap.Uint64("request_id", requestID),
		zap.Uint64("execution_id", out.Execution.ID),
		zap.String("quantity_mt", out.Execution.QuantityMT.String()),
	)
	return &out, nil
}

// Roll replaces part or all of an open position with a new contract month.
// requestID may be zero when the roll is not driven by a request.
func (o *HedgeOrchestrator) Roll(ctx context.Context, executionID, requestID uint64, in position.RollInput) (*position.RollResult, error) {
	original, req, err := o.loadCloseTargets(ctx, executionID, requestID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	// Cheap rejection before opening a transaction.
	if _, err := position.Roll(cloneRequest(req), *original, in, now); err != nil {
		return nil, err
	}

	var out position.RollResult
	err = o.Repo.InTx(ctx, func(tx *gorm.DB) error {
		fresh, freshReq, err := o.refreshCloseTargets(ctx, tx, executionID, req)
		if err != nil {
			return err
		}
		if in.Quantity.GreaterThan(fresh.OpenQuantityMT) {
			return position.Conflictf("close quantity %s MT exceeds open quantity %s MT of execution %d after concurrent update",
				in.Quantity, fresh.OpenQuantityMT, fresh.ID)
		}
		out, err = position.Roll(freshReq, *fresh, in, now)
		if err != nil {
			return err
		}
		if err := wrapStore(o.Repo.UpdateHedgeExecutionGuardedTx(ctx, tx, &out.Original, fresh.Version)); err != nil {
			return err
		}
		if out.NewLeg.ContractRef == "" {
			out.NewLeg.ContractRef = uuid.NewString()
		}
		if err := o.Repo.CreateHedgeExecutionTx(ctx, tx, &out.NewLeg); err != nil {
			return position.Storage(err)
		}
		out.Roll.OpenExecutionID = out.NewLeg.ID
		if err := o.Repo.CreateHedgeRollTx(ctx, tx, &out.Roll); err != nil {
			return position.Storage(err)
		}
		if out.Request != nil {
			out.Request.ExecutionID = &out.NewLeg.ID
			return wrapStore(o.Repo.UpdateHedgeRequestGuardedTx(ctx, tx, out.Request, freshReq.Version))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.invalidate(ctx, original.Metal)
	o.logOp("position rolled",
		zap.Uint64("close_execution_id", out.Original.ID),
		zap.Uint64("open_execution_id", out.NewLeg.ID),
		zap.String("rolled_qty_mt", out.Roll.RolledQtyMT.String()),
	)
	return &out, nil
}

// FixingClose reduces or fully closes an open position against a physical
// pricing fix, with no replacement leg.
func (o *HedgeOrchestrator) FixingClose(ctx context.Context, executionID, requestID uint64, in position.FixingCloseInput) (*position.FixingCloseResult, error) {
	original, req, err := o.loadCloseTargets(ctx, executionID, requestID)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	if _, err := position.FixingClose(cloneRequest(req), *original, decimal.Zero, in, now); err != nil {
		return nil, err
	}

	var out position.FixingCloseResult
	err = o.Repo.InTx(ctx, func(tx *gorm.DB) error {
		fresh, freshReq, err := o.refreshCloseTargets(ctx, tx, executionID, req)
		if err != nil {
			return err
		}
		if in.Quantity.GreaterThan(fresh.OpenQuantityMT) {
			return position.Conflictf("close quantity %s MT exceeds open quantity %s MT of execution %d after concurrent update",
				in.Quantity, fresh.OpenQuantityMT, fresh.ID)
		}
		allocated, err := o.Repo.SumHedgeLinkQuantityTx(ctx, tx, fresh.ID)
		if err != nil {
			return position.Storage(err)
		}
		out, err = position.FixingClose(freshReq, *fresh, allocated, in, now)
		if err != nil {
			return err
		}
		if err := wrapStore(o.Repo.UpdateHedgeExecutionGuardedTx(ctx, tx, &out.Original, fresh.Version)); err != nil {
			return err
		}
		if out.Link != nil {
			if err := o.Repo.CreateHedgeLinkTx(ctx, tx, out.Link); err != nil {
				return position.Storage(err)
			}
		}
		if out.Request != nil {
			out.Request.ExecutionID = &out.Original.ID
			return wrapStore(o.Repo.UpdateHedgeRequestGuardedTx(ctx, tx, out.Request, freshReq.Version))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.invalidate(ctx, original.Metal)
	o.logOp("position fixing-closed",
		zap.Uint64("execution_id", out.Original.ID),
		zap.String("status", out.Original.Status),
	)
	return &out, nil
}

// PriceFix executes a price-fix request against an opposite-direction
// hedge, inheriting the physical anchor from the original execution's
// lineage when the request carries none.
func (o *HedgeOrchestrator) PriceFix(ctx context.Context, requestID uint64, in position.PriceFixInput) (*position.PriceFixResult, error) {
	req, err := o.Repo.GetHedgeRequestByID(ctx, requestID)
	if err != nil {
		return nil, position.Storage(err)
	}
	if req == nil {
		return nil, position.NotFound("hedge request", requestID)
	}

	var original *models.HedgeExecution
	lineage := position.AnchorLineage{}
	if req.LinkedExecutionID != nil && *req.LinkedExecutionID != 0 {
		original, err = o.Repo.GetHedgeExecutionByID(ctx, *req.LinkedExecutionID)
		if err != nil {
			return nil, position.Storage(err)
		}
		if original == nil {
			return nil, position.NotFound("hedge execution", *req.LinkedExecutionID)
		}
		lineage.OriginalLinks, err = o.Repo.ListHedgeLinksByExecutionID(ctx, original.ID)
		if err != nil {
			return nil, position.Storage(err)
		}
		if original.HedgeRequestID != nil && *original.HedgeRequestID != 0 {
			lineage.OriginalRequest, err = o.Repo.GetHedgeRequestByID(ctx, *original.HedgeRequestID)
			if err != nil {
				return nil, position.Storage(err)
			}
		}
	}
	now := time.Now().UTC()

	if _, err := position.PriceFix(*req, cloneExecution(original), lineage, in, now); err != nil {
		return nil, err
	}

	var out position.PriceFixResult
	err = o.Repo.InTx(ctx, func(tx *gorm.DB) error {
		fresh := original
		if original != nil {
			var err error
			fresh, err = o.Repo.GetHedgeExecutionByIDTx(ctx, tx, original.ID)
			if err != nil {
				return position.Storage(err)
			}
			if fresh == nil {
				return position.NotFound("hedge execution", original.ID)
			}
			if req.QuantityMT.GreaterThan(fresh.OpenQuantityMT) {
				return position.Conflictf("fix quantity %s MT exceeds open quantity %s MT of execution %d after concurrent update",
					req.QuantityMT, fresh.OpenQuantityMT, fresh.ID)
			}
		}
		var err error
		out, err = position.PriceFix(*req, fresh, lineage, in, now)
		if err != nil {
			return err
		}
		if out.Execution.ContractRef == "" {
			out.Execution.ContractRef = uuid.NewString()
		}
		if err := o.Repo.CreateHedgeExecutionTx(ctx, tx, &out.Execution); err != nil {
			return position.Storage(err)
		}
		if out.Link != nil {
			out.Link.ExecutionID = out.Execution.ID
			if err := o.Repo.CreateHedgeLinkTx(ctx, tx, out.Link); err != nil {
				return position.Storage(err)
			}
		}
		if out.Original != nil {
			if err := wrapStore(o.Repo.UpdateHedgeExecutionGuardedTx(ctx, tx, out.Original, fresh.Version)); err != nil {
				return err
			}
		}
		out.Request.ExecutionID = &out.Execution.ID
		return wrapStore(o.Repo.UpdateHedgeRequestGuardedTx(ctx, tx, &out.Request, req.Version))
	})
	if err != nil {
		return nil, err
	}

	o.invalidate(ctx, out.Execution.Metal)
	o.logOp("price fix executed",
		zap.Uint64("request_id", requestID),
		zap.Uint64("execution_id", out.Execution.ID),
	)
	return &out, nil
}

func (o *HedgeOrchestrator) loadCloseTargets(ctx context.Context, executionID, requestID uint64) (*models.HedgeExecution, *models.HedgeRequest, error) {
	exec, err := o.Repo.GetHedgeExecutionByID(ctx, executionID)
	if err != nil {
		return nil, nil, position.Storage(err)
	}
	if exec == nil {
		return nil, nil, position.NotFound("hedge execution", executionID)
	}
	var req *models.HedgeRequest
	if requestID != 0 {
		req, err = o.Repo.GetHedgeRequestByID(ctx, requestID)
		if err != nil {
			return nil, nil, position.Storage(err)
		}
		if req == nil {
			return nil, nil, position.NotFound("hedge request", requestID)
		}
	}
	return exec, req, nil
}

// refreshCloseTargets re-reads the close target (and driving request)
// inside the transaction, immediately before the guarded writes.
func (o *HedgeOrchestrator) refreshCloseTargets(ctx context.Context, tx *gorm.DB, executionID uint64, req *models.HedgeRequest) (*models.HedgeExecution, *models.HedgeRequest, error) {
	fresh, err := o.Repo.GetHedgeExecutionByIDTx(ctx, tx, executionID)
	if err != nil {
		return nil, nil, position.Storage(err)
	}
	if fresh == nil {
		return nil, nil, position.NotFound("hedge execution", executionID)
	}
	return fresh, cloneRequest(req), nil
}

func (o *HedgeOrchestrator) invalidate(ctx context.Context, metal string) {
	if o.Cache != nil {
		o.Cache.InvalidateHedgeViews(ctx, metal)
	}
}

func (o *HedgeOrchestrator) logOp(msg string, fields ...zap.Field) {
	if o.Logger != nil {
		o.Logger.Info(msg, fields...)
	}
}

func wrapStore(err error) error {
	if err == nil {
		return nil
	}
	if position.IsConflict(err) || position.IsValidation(err) || position.IsNotFound(err) {
		return err
	}
	return position.Storage(err)
}

func cloneRequest(req *models.HedgeRequest) *models.HedgeRequest {
	if req == nil {
		return nil
	}
	out := *req
	return &out
}

func cloneExecution(exec *models.HedgeExecution) *models.HedgeExecution {
	if exec == nil {
		return nil
	}
	out := *exec
	return &out
}
