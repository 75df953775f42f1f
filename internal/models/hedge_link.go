package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HedgeLink allocates a slice of an execution's quantity to one physical
// exposure. Links are append-only: created once, never updated or deleted.
type HedgeLink struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	ExecutionID uint64 `gorm:"not null;index"`

	LinkLevel string `gorm:"type:varchar(20);not null"`
	LinkID    uint64 `gorm:"not null;index"`

	QuantityMT decimal.Decimal `gorm:"column:quantity_mt;type:numeric(30,10);not null"`

	Side      string `gorm:"type:varchar(10)"`
	Metal     string `gorm:"type:varchar(30);not null"`
	Direction string `gorm:"type:varchar(10);not null"`

	AllocationType string `gorm:"type:varchar(20);not null;index"`

	ExecPrice   *decimal.Decimal `gorm:"type:numeric(20,10)"`
	FixingPrice *decimal.Decimal `gorm:"type:numeric(20,10)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (HedgeLink) TableName() string {
	return "hedge_links"
}
