package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HedgeRoll records that one execution was (partially) closed into another.
// Exactly one row per roll operation; immutable.
type HedgeRoll struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	CloseExecutionID uint64 `gorm:"not null;index"`
	OpenExecutionID  uint64 `gorm:"not null;index"`

	RolledQtyMT decimal.Decimal `gorm:"column:rolled_qty_mt;type:numeric(30,10);not null"`

	RollDate time.Time `gorm:"type:timestamptz;not null"`

	RollCost     *decimal.Decimal `gorm:"type:numeric(20,10)"`
	CostCurrency string           `gorm:"type:varchar(10)"`

	Reason string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (HedgeRoll) TableName() string {
	return "hedge_rolls"
}
