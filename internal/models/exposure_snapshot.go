package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExposureSnapshot is a periodic per-metal record of net and open hedge
// exposure, written by the snapshot job for the history endpoint.
type ExposureSnapshot struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"`

	TakenAt time.Time `gorm:"type:timestamptz;not null;index"`
	Metal   string    `gorm:"type:varchar(30);not null;index"`

	NetQtyMT  decimal.Decimal `gorm:"column:net_qty_mt;type:numeric(30,10);not null"`
	OpenQtyMT decimal.Decimal `gorm:"column:open_qty_mt;type:numeric(30,10);not null"`

	OpenExecutions int64 `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ExposureSnapshot) TableName() string {
	return "exposure_snapshots"
}
