package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"metalops/internal/models"
	"metalops/internal/position"
	"metalops/internal/repository"
)

// RequestService owns the hedge request lifecycle up to execution:
// create, edit, submit, approve, reject, cancel, soft delete. Every
// status change goes through the transition table and a guarded update,
// so two reviewers acting on the same request cannot both win.
type RequestService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

type CreateRequestInput struct {
	Metal             string
	Direction         string
	QuantityMT        decimal.Decimal
	TargetPrice       *decimal.Decimal
	ReferenceCurve    string
	Source            string
	OrderID           *uint64
	TicketID          *uint64
	BLOrderID         *uint64
	LinkedExecutionID *uint64
}

type UpdateRequestInput struct {
	QuantityMT     *decimal.Decimal
	TargetPrice    *decimal.Decimal
	ReferenceCurve *string
}

func (s *RequestService) Create(ctx context.Context, in CreateRequestInput) (*models.HedgeRequest, error) {
	metal := strings.TrimSpace(in.Metal)
	if metal == "" {
		return nil, position.Validationf("metal is mandatory")
	}
	if !position.ValidDirection(in.Direction) {
		return nil, position.Validationf("direction must be BUY or SELL, got %q", in.Direction)
	}
	if !in.QuantityMT.IsPositive() {
		return nil, position.Validationf("quantity must be positive, got %s", in.QuantityMT)
	}
	source := in.Source
	if source == "" {
		source = position.SourceManual
	}
	item := &models.HedgeRequest{
		Metal:             metal,
		Direction:         in.Direction,
		QuantityMT:        in.QuantityMT,
		TargetPrice:       in.TargetPrice,
		ReferenceCurve:    strings.TrimSpace(in.ReferenceCurve),
		Status:            position.ReqStatusDraft,
		Source:            source,
		OrderID:           in.OrderID,
		TicketID:          in.TicketID,
		BLOrderID:         in.BLOrderID,
		LinkedExecutionID: in.LinkedExecutionID,
	}
	if err := s.Repo.CreateHedgeRequest(ctx, item); err != nil {
		return nil, position.Storage(err)
	}
	s.log("hedge request created", zap.Uint64("id", item.ID), zap.String("metal", metal), zap.String("source", source))
	return item, nil
}

// Update edits the mutable fields of a request. Only drafts are editable;
// once submitted the request is frozen until a reviewer acts on it.
func (s *RequestService) Update(ctx context.Context, id uint64, in UpdateRequestInput) (*models.HedgeRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != position.ReqStatusDraft {
		return nil, position.Validationf("request %d is %s, only drafts are editable", id, req.Status)
	}
	if in.QuantityMT != nil {
		if !in.QuantityMT.IsPositive() {
			return nil, position.Validationf("quantity must be positive, got %s", in.QuantityMT)
		}
		req.QuantityMT = *in.QuantityMT
	}
	if in.TargetPrice != nil {
		req.TargetPrice = in.TargetPrice
	}
	if in.ReferenceCurve != nil {
		req.ReferenceCurve = strings.TrimSpace(*in.ReferenceCurve)
	}
	if err := wrapStore(s.Repo.UpdateHedgeRequestGuarded(ctx, req, req.Version)); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *RequestService) Submit(ctx context.Context, id uint64) (*models.HedgeRequest, error) {
	return s.transition(ctx, id, position.ReqStatusPendingApproval, "")
}

func (s *RequestService) Approve(ctx context.Context, id uint64) (*models.HedgeRequest, error) {
	return s.transition(ctx, id, position.ReqStatusApproved, "")
}

// Reject moves a pending request to rejected. The reason is mandatory and
// must carry enough text to be useful to the desk later.
func (s *RequestService) Reject(ctx context.Context, id uint64, reason string) (*models.HedgeRequest, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < position.MinRejectReasonLen {
		return nil, position.Validationf("reject reason must be at least %d characters", position.MinRejectReasonLen)
	}
	return s.transition(ctx, id, position.ReqStatusRejected, reason)
}

func (s *RequestService) Cancel(ctx context.Context, id uint64) (*models.HedgeRequest, error) {
	return s.transition(ctx, id, position.ReqStatusCancelled, "")
}

// Delete soft-deletes a request. Executed requests are the audit trail of
// a live position and stay; everything else can go with a recorded reason.
func (s *RequestService) Delete(ctx context.Context, id uint64, reason string) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return position.Validationf("delete reason is mandatory")
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if req.Status == position.ReqStatusExecuted {
		return position.Validationf("request %d is executed and cannot be deleted", id)
	}
	if err := wrapStore(s.Repo.SoftDeleteHedgeRequest(ctx, id, reason, time.Now().UTC())); err != nil {
		return err
	}
	s.log("hedge request deleted", zap.Uint64("id", id), zap.String("reason", reason))
	return nil
}

func (s *RequestService) Get(ctx context.Context, id uint64) (*models.HedgeRequest, error) {
	return s.load(ctx, id)
}

func (s *RequestService) List(ctx context.Context, params repository.ListHedgeRequestsParams) ([]models.HedgeRequest, int64, error) {
	items, err := s.Repo.ListHedgeRequests(ctx, params)
	if err != nil {
		return nil, 0, position.Storage(err)
	}
	total, err := s.Repo.CountHedgeRequests(ctx, params)
	if err != nil {
		return nil, 0, position.Storage(err)
	}
	return items, total, nil
}

func (s *RequestService) transition(ctx context.Context, id uint64, to, rejectReason string) (*models.HedgeRequest, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !position.CanTransitionRequest(req.Status, to) {
		return nil, position.Validationf("request %d cannot move from %s to %s", id, req.Status, to)
	}
	req.Status = to
	if rejectReason != "" {
		req.RejectReason = rejectReason
	}
	if err := wrapStore(s.Repo.UpdateHedgeRequestGuarded(ctx, req, req.Version)); err != nil {
		return nil, err
	}
	s.log("hedge request transitioned", zap.Uint64("id", id), zap.String("status", to))
	return req, nil
}

func (s *RequestService) load(ctx context.Context, id uint64) (*models.HedgeRequest, error) {
	req, err := s.Repo.GetHedgeRequestByID(ctx, id)
	if err != nil {
		return nil, position.Storage(err)
	}
	if req == nil {
		return nil, position.NotFound("hedge request", id)
	}
	return req, nil
}

func (s *RequestService) log(msg string, fields ...zap.Field) {
	if s.Logger != nil {
		s.Logger.Info(msg, fields...)
	}
}
