package gormrepository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"metalops/internal/models"
	"metalops/internal/position"
	"metalops/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Hedge requests ----------------------------------------------------------

func (s *Store) CreateHedgeRequest(ctx context.Context, item *models.HedgeRequest) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetHedgeRequestByID(ctx context.Context, id uint64) (*models.HedgeRequest, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.HedgeRequest
	err := s.db.WithContext(ctx).Model(&models.HedgeRequest{}).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListHedgeRequests(ctx context.Context, params repository.ListHedgeRequestsParams) ([]models.HedgeRequest, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyRequestFilters(s.db.WithContext(ctx).Model(&models.HedgeRequest{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.HedgeRequest
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountHedgeRequests(ctx context.Context, params repository.ListHedgeRequestsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyRequestFilters(s.db.WithContext(ctx).Model(&models.HedgeRequest{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyRequestFilters(query *gorm.DB, params repository.ListHedgeRequestsParams) *gorm.DB {
	if !params.IncludeDeleted {
		query = query.Where("deleted_at IS NULL")
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Metal != nil && strings.TrimSpace(*params.Metal) != "" {
		query = query.Where("metal = ?", strings.TrimSpace(*params.Metal))
	}
	if params.Source != nil && strings.TrimSpace(*params.Source) != "" {
		query = query.Where("source = ?", strings.TrimSpace(*params.Source))
	}
	return query
}

func (s *Store) UpdateHedgeRequestGuarded(ctx context.Context, item *models.HedgeRequest, expectedVersion uint64) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return updateRequestGuarded(s.db.WithContext(ctx), item, expectedVersion)
}

func (s *Store) UpdateHedgeRequestGuardedTx(ctx context.Context, tx *gorm.DB, item *models.HedgeRequest, expectedVersion uint64) error {
	if item == nil || tx == nil {
		return nil
	}
	return updateRequestGuarded(tx.WithContext(ctx), item, expectedVersion)
}

func updateRequestGuarded(db *gorm.DB, item *models.HedgeRequest, expectedVersion uint64) error {
	res := db.Model(&models.HedgeRequest{}).
		Where("id = ? AND version = ?", item.ID, expectedVersion).
		Where("deleted_at IS NULL").
		Updates(map[string]any{
			"metal":               item.Metal,
			"direction":           item.Direction,
			"quantity_mt":         item.QuantityMT,
			"target_price":        item.TargetPrice,
			"reference_curve":     item.ReferenceCurve,
			"status":              item.Status,
			"source":              item.Source,
			"order_id":            item.OrderID,
			"ticket_id":           item.TicketID,
			"bl_order_id":         item.BLOrderID,
			"linked_execution_id": item.LinkedExecutionID,
			"execution_id":        item.ExecutionID,
			"reject_reason":       item.RejectReason,
			"version":             expectedVersion + 1,
			"updated_at":          time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return position.Conflictf("hedge request %d changed concurrently", item.ID)
	}
	item.Version = expectedVersion + 1
	return nil
}

func (s *Store) SoftDeleteHedgeRequest(ctx context.Context, id uint64, reason string, at time.Time) error {
	if s == nil || s.db == nil || id == 0 {
		return nil
	}
	if at.IsZero() {
		at = time.Now().UTC()
	}
	res := s.db.WithContext(ctx).Model(&models.HedgeRequest{}).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Updates(map[string]any{
			"deleted_at":    &at,
			"delete_reason": reason,
			"updated_at":    time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return position.NotFound("hedge request", id)
	}
	return nil
}

func (s *Store) HasHedgeRequestForOrder(ctx context.Context, orderID uint64) (bool, error) {
	if s == nil || s.db == nil || orderID == 0 {
		return false, nil
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&models.HedgeRequest{}).
		Where("order_id = ?", orderID).
		Where("deleted_at IS NULL").
		Where("status NOT IN ?", []string{position.ReqStatusRejected, position.ReqStatusCancelled}).
		Count(&total).Error
	if err != nil {
		return false, err
	}
	return total > 0, nil
}

// --- Hedge executions --------------------------------------------------------

func (s *Store) GetHedgeExecutionByID(ctx context.Context, id uint64) (*models.HedgeExecution, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	return getExecution(s.db.WithContext(ctx), id)
}

func (s *Store) GetHedgeExecutionByIDTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.HedgeExecution, error) {
	if tx == nil || id == 0 {
		return nil, nil
	}
	return getExecution(tx.WithContext(ctx), id)
}

func getExecution(db *gorm.DB, id uint64) (*models.HedgeExecution, error) {
	var item models.HedgeExecution
	err := db.Model(&models.HedgeExecution{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateHedgeExecutionTx(ctx context.Context, tx *gorm.DB, item *models.HedgeExecution) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) UpdateHedgeExecutionGuardedTx(ctx context.Context, tx *gorm.DB, item *models.HedgeExecution, expectedVersion uint64) error {
	if tx == nil || item == nil {
		return nil
	}
	res := tx.WithContext(ctx).Model(&models.HedgeExecution{}).
		Where("id = ? AND version = ?", item.ID, expectedVersion).
		Updates(map[string]any{
			"open_quantity_mt": item.OpenQuantityMT,
			"status":           item.Status,
			"closed_price":     item.ClosedPrice,
			"closed_at":        item.ClosedAt,
			"audit_log":        item.AuditLog,
			"version":          expectedVersion + 1,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return position.Conflictf("execution %d changed concurrently", item.ID)
	}
	item.Version = expectedVersion + 1
	return nil
}

func (s *Store) ListHedgeExecutions(ctx context.Context, params repository.ListHedgeExecutionsParams) ([]models.HedgeExecution, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyExecutionFilters(s.db.WithContext(ctx).Model(&models.HedgeExecution{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "created_at")
	var items []models.HedgeExecution
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountHedgeExecutions(ctx context.Context, params repository.ListHedgeExecutionsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyExecutionFilters(s.db.WithContext(ctx).Model(&models.HedgeExecution{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyExecutionFilters(query *gorm.DB, params repository.ListHedgeExecutionsParams) *gorm.DB {
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Metal != nil && strings.TrimSpace(*params.Metal) != "" {
		query = query.Where("metal = ?", strings.TrimSpace(*params.Metal))
	}
	if params.Broker != nil && strings.TrimSpace(*params.Broker) != "" {
		query = query.Where("broker = ?", strings.TrimSpace(*params.Broker))
	}
	if params.MaturityBefore != nil && !params.MaturityBefore.IsZero() {
		query = query.Where("maturity_date < ?", *params.MaturityBefore)
	}
	return query
}

// --- Hedge links -------------------------------------------------------------

func (s *Store) CreateHedgeLinkTx(ctx context.Context, tx *gorm.DB, item *models.HedgeLink) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) ListHedgeLinksByExecutionID(ctx context.Context, executionID uint64) ([]models.HedgeLink, error) {
	if s == nil || s.db == nil || executionID == 0 {
		return nil, nil
	}
	var items []models.HedgeLink
	if err := s.db.WithContext(ctx).Model(&models.HedgeLink{}).
		Where("execution_id = ?", executionID).
		Order("created_at asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) SumHedgeLinkQuantityTx(ctx context.Context, tx *gorm.DB, executionID uint64) (decimal.Decimal, error) {
	if tx == nil || executionID == 0 {
		return decimal.Zero, nil
	}
	var row struct {
		Total decimal.Decimal
	}
	err := tx.WithContext(ctx).Table("hedge_links").
		Select("COALESCE(SUM(quantity_mt),0) AS total").
		Where("execution_id = ?", executionID).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

func (s *Store) ListMatchingView(ctx context.Context, params repository.ListMatchingParams) ([]repository.MatchingRow, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Table("hedge_links AS l").
		Select(`
			l.id AS link_id,
			l.execution_id,
			l.link_level,
			l.link_id AS target_id,
			l.quantity_mt,
			l.allocation_type,
			l.metal,
			l.direction,
			l.exec_price,
			l.fixing_price,
			e.executed_price,
			e.status AS exec_status,
			r.id AS request_id,
			COALESCE(r.source, '') AS request_source
		`).
		Joins("JOIN hedge_executions e ON e.id = l.execution_id").
		Joins("LEFT JOIN hedge_requests r ON r.id = e.hedge_request_id")
	if params.LinkLevel != nil && strings.TrimSpace(*params.LinkLevel) != "" {
		query = query.Where("l.link_level = ?", strings.TrimSpace(*params.LinkLevel))
	}
	if params.LinkID != nil && *params.LinkID != 0 {
		query = query.Where("l.link_id = ?", *params.LinkID)
	}
	if params.Metal != nil && strings.TrimSpace(*params.Metal) != "" {
		query = query.Where("l.metal = ?", strings.TrimSpace(*params.Metal))
	}
	var rows []repository.MatchingRow
	if err := query.Order("l.created_at desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// --- Hedge rolls -------------------------------------------------------------

func (s *Store) CreateHedgeRollTx(ctx context.Context, tx *gorm.DB, item *models.HedgeRoll) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) ListHedgeRolls(ctx context.Context, params repository.ListHedgeRollsParams) ([]models.HedgeRoll, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.HedgeRoll{})
	if params.ExecutionID != nil && *params.ExecutionID != 0 {
		query = query.Where("close_execution_id = ? OR open_execution_id = ?", *params.ExecutionID, *params.ExecutionID)
	}
	var items []models.HedgeRoll
	if err := query.Order("roll_date desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Exposure projections ----------------------------------------------------

const exposureSelect = `
	COALESCE(SUM(CASE WHEN direction = 'BUY' THEN quantity_mt ELSE -quantity_mt END),0) AS net_qty_mt,
	COALESCE(SUM(CASE WHEN status = 'open' AND direction = 'BUY' THEN quantity_mt
	                  WHEN status = 'open' THEN -quantity_mt ELSE 0 END),0) AS open_qty_mt,
	COALESCE(SUM(CASE WHEN status = 'open' THEN 1 ELSE 0 END),0) AS open_executions
`

func (s *Store) NetExposure(ctx context.Context, metal string) (repository.Exposure, error) {
	if s == nil || s.db == nil {
		return repository.Exposure{}, nil
	}
	query := s.db.WithContext(ctx).Table("hedge_executions").Select(exposureSelect)
	metal = strings.TrimSpace(metal)
	if metal != "" {
		query = query.Where("metal = ?", metal)
	}
	var out repository.Exposure
	if err := query.Scan(&out).Error; err != nil {
		return repository.Exposure{}, err
	}
	out.Metal = metal
	return out, nil
}

func (s *Store) ExposureByMetal(ctx context.Context) ([]repository.Exposure, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var rows []repository.Exposure
	err := s.db.WithContext(ctx).Table("hedge_executions").
		Select("metal, " + exposureSelect).
		Group("metal").
		Order("metal asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// --- Physical anchors --------------------------------------------------------

func (s *Store) CreateCompany(ctx context.Context, item *models.Company) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListCompanies(ctx context.Context, limit, offset int) ([]models.Company, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Company
	if err := s.db.WithContext(ctx).Model(&models.Company{}).
		Order("name asc").
		Limit(normalizeLimit(limit, 200)).
		Offset(normalizeOffset(offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreatePhysicalOrder(ctx context.Context, item *models.PhysicalOrder) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetPhysicalOrderByID(ctx context.Context, id uint64) (*models.PhysicalOrder, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.PhysicalOrder
	err := s.db.WithContext(ctx).Model(&models.PhysicalOrder{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListPhysicalOrders(ctx context.Context, params repository.ListPhysicalOrdersParams) ([]models.PhysicalOrder, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.PhysicalOrder{})
	if params.Metal != nil && strings.TrimSpace(*params.Metal) != "" {
		query = query.Where("metal = ?", strings.TrimSpace(*params.Metal))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	if params.Hedged != nil {
		query = query.Where("hedged = ?", *params.Hedged)
	}
	var items []models.PhysicalOrder
	if err := query.Order("created_at desc").
		Limit(normalizeLimit(params.Limit, 200)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListUnhedgedPhysicalOrders(ctx context.Context, limit int) ([]models.PhysicalOrder, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.PhysicalOrder
	if err := s.db.WithContext(ctx).Model(&models.PhysicalOrder{}).
		Where("hedged = ?", false).
		Where("status = ?", "open").
		Order("created_at asc").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkPhysicalOrderHedgedTx(ctx context.Context, tx *gorm.DB, id uint64, hedged bool) error {
	if tx == nil || id == 0 {
		return nil
	}
	return tx.WithContext(ctx).Model(&models.PhysicalOrder{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"hedged":     hedged,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (s *Store) GetTicketByID(ctx context.Context, id uint64) (*models.Ticket, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.Ticket
	err := s.db.WithContext(ctx).Model(&models.Ticket{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListTickets(ctx context.Context, orderID *uint64, limit, offset int) ([]models.Ticket, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Ticket{})
	if orderID != nil && *orderID != 0 {
		query = query.Where("order_id = ?", *orderID)
	}
	var items []models.Ticket
	if err := query.Order("created_at desc").
		Limit(normalizeLimit(limit, 200)).
		Offset(normalizeOffset(offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetBLOrderByID(ctx context.Context, id uint64) (*models.BLOrder, error) {
	if s == nil || s.db == nil || id == 0 {
		return nil, nil
	}
	var item models.BLOrder
	err := s.db.WithContext(ctx).Model(&models.BLOrder{}).Where("id = ?", id).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListBLOrders(ctx context.Context, orderID *uint64, limit, offset int) ([]models.BLOrder, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.BLOrder{})
	if orderID != nil && *orderID != 0 {
		query = query.Where("order_id = ?", *orderID)
	}
	var items []models.BLOrder
	if err := query.Order("created_at desc").
		Limit(normalizeLimit(limit, 200)).
		Offset(normalizeOffset(offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- Exposure snapshots ------------------------------------------------------

func (s *Store) InsertExposureSnapshot(ctx context.Context, item *models.ExposureSnapshot) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) ListExposureSnapshots(ctx context.Context, params repository.ListExposureSnapshotsParams) ([]models.ExposureSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.ExposureSnapshot{})
	if params.Metal != nil && strings.TrimSpace(*params.Metal) != "" {
		query = query.Where("metal = ?", strings.TrimSpace(*params.Metal))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("taken_at >= ?", *params.Since)
	}
	if params.Until != nil && !params.Until.IsZero() {
		query = query.Where("taken_at <= ?", *params.Until)
	}
	var items []models.ExposureSnapshot
	if err := query.Order("taken_at desc").
		Limit(normalizeLimit(params.Limit, 500)).
		Offset(normalizeOffset(params.Offset)).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers -----------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
