package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Physical-side records. These are the anchors hedge links point at; the
// back office manages them through plain CRUD screens and the engine only
// ever reads them.

type Company struct {
	ID   uint64 `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"type:varchar(200);not null;uniqueIndex"`
	Role string `gorm:"type:varchar(20);not null;default:'counterparty'"`

	Country string `gorm:"type:varchar(50)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Company) TableName() string {
	return "companies"
}

type PhysicalOrder struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	CompanyID uint64 `gorm:"not null;index"`

	Metal     string `gorm:"type:varchar(30);not null;index"`
	Direction string `gorm:"type:varchar(10);not null"`

	QuantityMT decimal.Decimal  `gorm:"column:quantity_mt;type:numeric(30,10);not null"`
	PriceBasis string           `gorm:"type:varchar(20)"`
	FixedPrice *decimal.Decimal `gorm:"type:numeric(20,10)"`

	Status string `gorm:"type:varchar(20);not null;default:'open';index"`
	Hedged bool   `gorm:"not null;default:false;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (PhysicalOrder) TableName() string {
	return "physical_orders"
}

type Ticket struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	OrderID uint64 `gorm:"not null;index"`

	QuantityMT decimal.Decimal `gorm:"column:quantity_mt;type:numeric(30,10);not null"`
	Status     string          `gorm:"type:varchar(20);not null;default:'open'"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Ticket) TableName() string {
	return "tickets"
}

type BLOrder struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	OrderID uint64 `gorm:"not null;index"`

	Vessel     string          `gorm:"type:varchar(100)"`
	QuantityMT decimal.Decimal `gorm:"column:quantity_mt;type:numeric(30,10);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (BLOrder) TableName() string {
	return "bl_orders"
}
