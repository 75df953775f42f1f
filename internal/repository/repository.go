package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"metalops/internal/models"
)

// Repository is the ledger store contract. Methods with a Tx suffix run
// inside a transaction opened by InTx; the orchestrator uses them to make
// every operation's 1-4 record writes all-or-nothing. Guarded updates are
// compare-and-swap on the record's version column and report a conflict
// when the expected version is stale.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Hedge requests.
	CreateHedgeRequest(ctx context.Context, item *models.HedgeRequest) error
	GetHedgeRequestByID(ctx context.Context, id uint64) (*models.HedgeRequest, error)
	ListHedgeRequests(ctx context.Context, params ListHedgeRequestsParams) ([]models.HedgeRequest, error)
	CountHedgeRequests(ctx context.Context, params ListHedgeRequestsParams) (int64, error)
	UpdateHedgeRequestGuarded(ctx context.Context, item *models.HedgeRequest, expectedVersion uint64) error
	UpdateHedgeRequestGuardedTx(ctx context.Context, tx *gorm.DB, item *models.HedgeRequest, expectedVersion uint64) error
	SoftDeleteHedgeRequest(ctx context.Context, id uint64, reason string, at time.Time) error
	HasHedgeRequestForOrder(ctx context.Context, orderID uint64) (bool, error)

	// Hedge executions. Never deleted.
	GetHedgeExecutionByID(ctx context.Context, id uint64) (*models.HedgeExecution, error)
	GetHedgeExecutionByIDTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.HedgeExecution, error)
	CreateHedgeExecutionTx(ctx context.Context, tx *gorm.DB, item *models.HedgeExecution) error
	UpdateHedgeExecutionGuardedTx(ctx context.Context, tx *gorm.DB, item *models.HedgeExecution, expectedVersion uint64) error
	ListHedgeExecutions(ctx context.Context, params ListHedgeExecutionsParams) ([]models.HedgeExecution, error)
	CountHedgeExecutions(ctx context.Context, params ListHedgeExecutionsParams) (int64, error)

	// Hedge links. Append-only.
	CreateHedgeLinkTx(ctx context.Context, tx *gorm.DB, item *models.HedgeLink) error
	ListHedgeLinksByExecutionID(ctx context.Context, executionID uint64) ([]models.HedgeLink, error)
	SumHedgeLinkQuantityTx(ctx context.Context, tx *gorm.DB, executionID uint64) (decimal.Decimal, error)
	ListMatchingView(ctx context.Context, params ListMatchingParams) ([]MatchingRow, error)

	// Hedge rolls. Append-only.
	CreateHedgeRollTx(ctx context.Context, tx *gorm.DB, item *models.HedgeRoll) error
	ListHedgeRolls(ctx context.Context, params ListHedgeRollsParams) ([]models.HedgeRoll, error)

	// Derived exposure projections.
	NetExposure(ctx context.Context, metal string) (Exposure, error)
	ExposureByMetal(ctx context.Context) ([]Exposure, error)

	// Physical anchors.
	CreateCompany(ctx context.Context, item *models.Company) error
	ListCompanies(ctx context.Context, limit, offset int) ([]models.Company, error)
	CreatePhysicalOrder(ctx context.Context, item *models.PhysicalOrder) error
	GetPhysicalOrderByID(ctx context.Context, id uint64) (*models.PhysicalOrder, error)
	ListPhysicalOrders(ctx context.Context, params ListPhysicalOrdersParams) ([]models.PhysicalOrder, error)
	ListUnhedgedPhysicalOrders(ctx context.Context, limit int) ([]models.PhysicalOrder, error)
	MarkPhysicalOrderHedgedTx(ctx context.Context, tx *gorm.DB, id uint64, hedged bool) error
	GetTicketByID(ctx context.Context, id uint64) (*models.Ticket, error)
	ListTickets(ctx context.Context, orderID *uint64, limit, offset int) ([]models.Ticket, error)
	GetBLOrderByID(ctx context.Context, id uint64) (*models.BLOrder, error)
	ListBLOrders(ctx context.Context, orderID *uint64, limit, offset int) ([]models.BLOrder, error)

	// Exposure snapshots.
	InsertExposureSnapshot(ctx context.Context, item *models.ExposureSnapshot) error
	ListExposureSnapshots(ctx context.Context, params ListExposureSnapshotsParams) ([]models.ExposureSnapshot, error)
}

// MatchingRow joins a hedge link to its execution and, when present, the
// execution's originating request: which physical exposure is covered by
// which hedge slice, and at what price.
type MatchingRow struct {
	LinkID         uint64           `json:"link_id"`
	ExecutionID    uint64           `json:"execution_id"`
	LinkLevel      string           `json:"link_level"`
	TargetID       uint64           `json:"target_id"`
	QuantityMT     decimal.Decimal  `json:"quantity_mt"`
	AllocationType string           `json:"allocation_type"`
	Metal          string           `json:"metal"`
	Direction      string           `json:"direction"`
	ExecPrice      *decimal.Decimal `json:"exec_price,omitempty"`
	FixingPrice    *decimal.Decimal `json:"fixing_price,omitempty"`
	ExecutedPrice  decimal.Decimal  `json:"executed_price"`
	ExecStatus     string           `json:"execution_status"`
	RequestID      *uint64          `json:"request_id,omitempty"`
	RequestSource  string           `json:"request_source,omitempty"`
}

// Exposure is direction-signed hedge exposure for one metal: net over all
// executions (Buy positive, Sell negative, traded quantity), open over
// status open only (open quantity).
type Exposure struct {
	Metal          string          `json:"metal"`
	NetQtyMT       decimal.Decimal `json:"net_qty_mt"`
	OpenQtyMT      decimal.Decimal `json:"open_qty_mt"`
	OpenExecutions int64           `json:"open_executions"`
}

type ListHedgeRequestsParams struct {
	Limit          int
	Offset         int
	Status         *string
	Metal          *string
	Source         *string
	IncludeDeleted bool
	OrderBy        string
	Asc            *bool
}

type ListHedgeExecutionsParams struct {
	Limit          int
	Offset         int
	Status         *string
	Metal          *string
	Broker         *string
	MaturityBefore *time.Time
	OrderBy        string
	Asc            *bool
}

type ListMatchingParams struct {
	Limit     int
	Offset    int
	LinkLevel *string
	LinkID    *uint64
	Metal     *string
}

type ListHedgeRollsParams struct {
	Limit       int
	Offset      int
	ExecutionID *uint64
}

type ListPhysicalOrdersParams struct {
	Limit  int
	Offset int
	Metal  *string
	Status *string
	Hedged *bool
}

type ListExposureSnapshotsParams struct {
	Limit  int
	Offset int
	Metal  *string
	Since  *time.Time
	Until  *time.Time
}
