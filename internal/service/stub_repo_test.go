package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"metalops/internal/models"
	"metalops/internal/position"
	"metalops/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// InTx snapshots the stores and restores them when fn fails, so the
// orchestrator's all-or-nothing behavior is observable. Guarded updates
// compare versions the way the real store does.
type stubRepo struct {
	requests   map[uint64]*models.HedgeRequest
	executions map[uint64]*models.HedgeExecution
	links      []models.HedgeLink
	rolls      []models.HedgeRoll
	orders     map[uint64]*models.PhysicalOrder
	snapshots  []models.ExposureSnapshot
	exposure   []repository.Exposure
	nextID     uint64

	// freshExecOverride, when set, is returned by the in-transaction
	// execution read instead of the stored record. It simulates a
	// concurrent writer landing between load and transaction.
	freshExecOverride *models.HedgeExecution

	failLinkCreate bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		requests:   map[uint64]*models.HedgeRequest{},
		executions: map[uint64]*models.HedgeExecution{},
		orders:     map[uint64]*models.PhysicalOrder{},
	}
}

func (s *stubRepo) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	reqSnap := map[uint64]*models.HedgeRequest{}
	for k, v := range s.requests {
		cp := *v
		reqSnap[k] = &cp
	}
	execSnap := map[uint64]*models.HedgeExecution{}
	for k, v := range s.executions {
		cp := *v
		execSnap[k] = &cp
	}
	ordSnap := map[uint64]*models.PhysicalOrder{}
	for k, v := range s.orders {
		cp := *v
		ordSnap[k] = &cp
	}
	linkSnap := append([]models.HedgeLink(nil), s.links...)
	rollSnap := append([]models.HedgeRoll(nil), s.rolls...)
	nextSnap := s.nextID

	if err := fn(nil); err != nil {
		s.requests = reqSnap
		s.executions = execSnap
		s.orders = ordSnap
		s.links = linkSnap
		s.rolls = rollSnap
		s.nextID = nextSnap
		return err
	}
	return nil
}

func (s *stubRepo) CreateHedgeRequest(ctx context.Context, item *models.HedgeRequest) error {
	item.ID = s.id()
	cp := *item
	s.requests[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetHedgeRequestByID(ctx context.Context, id uint64) (*models.HedgeRequest, error) {
	r, ok := s.requests[id]
	if !ok || r.DeletedAt != nil {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *stubRepo) ListHedgeRequests(ctx context.Context, params repository.ListHedgeRequestsParams) ([]models.HedgeRequest, error) {
	var out []models.HedgeRequest
	for _, r := range s.requests {
		if r.DeletedAt != nil && !params.IncludeDeleted {
			continue
		}
		if params.Status != nil && r.Status != *params.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *stubRepo) CountHedgeRequests(ctx context.Context, params repository.ListHedgeRequestsParams) (int64, error) {
	items, _ := s.ListHedgeRequests(ctx, params)
	return int64(len(items)), nil
}

func (s *stubRepo) UpdateHedgeRequestGuarded(ctx context.Context, item *models.HedgeRequest, expectedVersion uint64) error {
	return s.UpdateHedgeRequestGuardedTx(ctx, nil, item, expectedVersion)
}

func (s *stubRepo) UpdateHedgeRequestGuardedTx(ctx context.Context, tx *gorm.DB, item *models.HedgeRequest, expectedVersion uint64) error {
	cur, ok := s.requests[item.ID]
	if !ok || cur.Version != expectedVersion {
		return position.Conflictf("hedge request %d version %d is stale", item.ID, expectedVersion)
	}
	item.Version = expectedVersion + 1
	cp := *item
	s.requests[item.ID] = &cp
	return nil
}

func (s *stubRepo) SoftDeleteHedgeRequest(ctx context.Context, id uint64, reason string, at time.Time) error {
	r, ok := s.requests[id]
	if !ok || r.DeletedAt != nil {
		return position.NotFound("hedge request", id)
	}
	r.DeletedAt = &at
	r.DeleteReason = reason
	return nil
}

func (s *stubRepo) HasHedgeRequestForOrder(ctx context.Context, orderID uint64) (bool, error) {
	for _, r := range s.requests {
		if r.OrderID != nil && *r.OrderID == orderID && r.DeletedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) GetHedgeExecutionByID(ctx context.Context, id uint64) (*models.HedgeExecution, error) {
	e, ok := s.executions[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *stubRepo) GetHedgeExecutionByIDTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.HedgeExecution, error) {
	if s.freshExecOverride != nil && s.freshExecOverride.ID == id {
		cp := *s.freshExecOverride
		return &cp, nil
	}
	return s.GetHedgeExecutionByID(ctx, id)
}

func (s *stubRepo) CreateHedgeExecutionTx(ctx context.Context, tx *gorm.DB, item *models.HedgeExecution) error {
	item.ID = s.id()
	cp := *item
	s.executions[item.ID] = &cp
	return nil
}

func (s *stubRepo) UpdateHedgeExecutionGuardedTx(ctx context.Context, tx *gorm.DB, item *models.HedgeExecution, expectedVersion uint64) error {
	cur, ok := s.executions[item.ID]
	if !ok || cur.Version != expectedVersion {
		return position.Conflictf("hedge execution %d version %d is stale", item.ID, expectedVersion)
	}
	item.Version = expectedVersion + 1
	cp := *item
	s.executions[item.ID] = &cp
	return nil
}

func (s *stubRepo) ListHedgeExecutions(ctx context.Context, params repository.ListHedgeExecutionsParams) ([]models.HedgeExecution, error) {
	var out []models.HedgeExecution
	for _, e := range s.executions {
		out = append(out, *e)
	}
	return out, nil
}

func (s *stubRepo) CountHedgeExecutions(ctx context.Context, params repository.ListHedgeExecutionsParams) (int64, error) {
	return int64(len(s.executions)), nil
}

func (s *stubRepo) CreateHedgeLinkTx(ctx context.Context, tx *gorm.DB, item *models.HedgeLink) error {
	if s.failLinkCreate {
		return position.Storage(context.DeadlineExceeded)
	}
	item.ID = s.id()
	s.links = append(s.links, *item)
	return nil
}

func (s *stubRepo) ListHedgeLinksByExecutionID(ctx context.Context, executionID uint64) ([]models.HedgeLink, error) {
	var out []models.HedgeLink
	for _, l := range s.links {
		if l.ExecutionID == executionID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *stubRepo) SumHedgeLinkQuantityTx(ctx context.Context, tx *gorm.DB, executionID uint64) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, l := range s.links {
		if l.ExecutionID == executionID {
			sum = sum.Add(l.QuantityMT)
		}
	}
	return sum, nil
}

func (s *stubRepo) ListMatchingView(ctx context.Context, params repository.ListMatchingParams) ([]repository.MatchingRow, error) {
	return nil, nil
}

func (s *stubRepo) CreateHedgeRollTx(ctx context.Context, tx *gorm.DB, item *models.HedgeRoll) error {
	item.ID = s.id()
	s.rolls = append(s.rolls, *item)
	return nil
}

func (s *stubRepo) ListHedgeRolls(ctx context.Context, params repository.ListHedgeRollsParams) ([]models.HedgeRoll, error) {
	return append([]models.HedgeRoll(nil), s.rolls...), nil
}

func (s *stubRepo) NetExposure(ctx context.Context, metal string) (repository.Exposure, error) {
	for _, e := range s.exposure {
		if e.Metal == metal {
			return e, nil
		}
	}
	return repository.Exposure{Metal: metal}, nil
}

func (s *stubRepo) ExposureByMetal(ctx context.Context) ([]repository.Exposure, error) {
	return append([]repository.Exposure(nil), s.exposure...), nil
}

func (s *stubRepo) CreateCompany(ctx context.Context, item *models.Company) error {
	item.ID = s.id()
	return nil
}

func (s *stubRepo) ListCompanies(ctx context.Context, limit, offset int) ([]models.Company, error) {
	return nil, nil
}

func (s *stubRepo) CreatePhysicalOrder(ctx context.Context, item *models.PhysicalOrder) error {
	item.ID = s.id()
	cp := *item
	s.orders[item.ID] = &cp
	return nil
}

func (s *stubRepo) GetPhysicalOrderByID(ctx context.Context, id uint64) (*models.PhysicalOrder, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	cp := *o
	return &cp, nil
}

func (s *stubRepo) ListPhysicalOrders(ctx context.Context, params repository.ListPhysicalOrdersParams) ([]models.PhysicalOrder, error) {
	var out []models.PhysicalOrder
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (s *stubRepo) ListUnhedgedPhysicalOrders(ctx context.Context, limit int) ([]models.PhysicalOrder, error) {
	var out []models.PhysicalOrder
	for _, o := range s.orders {
		if !o.Hedged && o.Status == "open" {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubRepo) MarkPhysicalOrderHedgedTx(ctx context.Context, tx *gorm.DB, id uint64, hedged bool) error {
	o, ok := s.orders[id]
	if !ok {
		return position.NotFound("physical order", id)
	}
	o.Hedged = hedged
	return nil
}

func (s *stubRepo) GetTicketByID(ctx context.Context, id uint64) (*models.Ticket, error) {
	return nil, nil
}

func (s *stubRepo) ListTickets(ctx context.Context, orderID *uint64, limit, offset int) ([]models.Ticket, error) {
	return nil, nil
}

func (s *stubRepo) GetBLOrderByID(ctx context.Context, id uint64) (*models.BLOrder, error) {
	return nil, nil
}

func (s *stubRepo) ListBLOrders(ctx context.Context, orderID *uint64, limit, offset int) ([]models.BLOrder, error) {
	return nil, nil
}

func (s *stubRepo) InsertExposureSnapshot(ctx context.Context, item *models.ExposureSnapshot) error {
	item.ID = s.id()
	s.snapshots = append(s.snapshots, *item)
	return nil
}

func (s *stubRepo) ListExposureSnapshots(ctx context.Context, params repository.ListExposureSnapshotsParams) ([]models.ExposureSnapshot, error) {
	return append([]models.ExposureSnapshot(nil), s.snapshots...), nil
}
