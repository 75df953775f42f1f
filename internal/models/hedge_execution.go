package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// HedgeExecution is a booked futures/forward trade. QuantityMT is fixed at
// creation; OpenQuantityMT only ever decreases. ClosedPrice/ClosedAt are set
// exactly when OpenQuantityMT reaches zero. Executions are financial records
// and are never deleted.
type HedgeExecution struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Metal     string `gorm:"type:varchar(30);not null;index"`
	Direction string `gorm:"type:varchar(10);not null"`

	QuantityMT     decimal.Decimal `gorm:"column:quantity_mt;type:numeric(30,10);not null"`
	OpenQuantityMT decimal.Decimal `gorm:"column:open_quantity_mt;type:numeric(30,10);not null"`

	ExecutedPrice decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	Currency      string          `gorm:"type:varchar(10);not null;default:'USD'"`

	TradeDate    time.Time `gorm:"type:timestamptz;not null"`
	MaturityDate time.Time `gorm:"type:timestamptz;not null;index"`

	Broker      string `gorm:"type:varchar(100)"`
	ContractRef string `gorm:"type:varchar(100);index"`

	Status string `gorm:"type:varchar(20);not null;default:'open';index"`

	ClosedPrice *decimal.Decimal `gorm:"type:numeric(20,10)"`
	ClosedAt    *time.Time       `gorm:"type:timestamptz"`

	HedgeRequestID *uint64 `gorm:"index"`

	// AuditLog collects notes appended by roll and close operations.
	AuditLog datatypes.JSON `gorm:"type:jsonb"`

	Version uint64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (HedgeExecution) TableName() string {
	return "hedge_executions"
}
