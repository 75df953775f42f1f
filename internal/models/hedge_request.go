package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// HedgeRequest is a demand to open, roll, or price-fix a hedge against
// physical metal exposure. Status only reaches "executed" through a
// successful engine operation, never by direct edit.
type HedgeRequest struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	Metal     string `gorm:"type:varchar(30);not null;index"`
	Direction string `gorm:"type:varchar(10);not null"`

	QuantityMT     decimal.Decimal  `gorm:"column:quantity_mt;type:numeric(30,10);not null"`
	TargetPrice    *decimal.Decimal `gorm:"type:numeric(20,10)"`
	ReferenceCurve string           `gorm:"type:varchar(20)"`

	Status string `gorm:"type:varchar(20);not null;default:'draft';index"`
	Source string `gorm:"type:varchar(20);not null;default:'manual';index"`

	// Physical anchors. A request may carry more than one, but the engine
	// treats BL order > order > ticket as the preference order.
	OrderID   *uint64 `gorm:"index"`
	TicketID  *uint64 `gorm:"index"`
	BLOrderID *uint64 `gorm:"column:bl_order_id;index"`

	// LinkedExecutionID is the original execution a roll or price-fix
	// request targets. ExecutionID is the execution that fulfilled this
	// request, set when the request moves to executed.
	LinkedExecutionID *uint64 `gorm:"index"`
	ExecutionID       *uint64 `gorm:"index"`

	RejectReason string `gorm:"type:text"`

	Version uint64 `gorm:"not null;default:0"`

	DeletedAt    *time.Time `gorm:"type:timestamptz;index"`
	DeleteReason string     `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (HedgeRequest) TableName() string {
	return "hedge_requests"
}
