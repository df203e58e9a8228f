package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

// StockItem is one inventory-tracked stock-keeping unit. Quantity only ever
// changes through the stock service so every change lands in stock_history.
type StockItem struct {
	ID                int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name              string          `gorm:"column:name;not null"`
	Description       string          `gorm:"column:description;not null;default:''"`
	Category          string          `gorm:"column:category;not null;index"`
	Quantity          int             `gorm:"column:quantity;not null;default:0"`
	UnitPrice         decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LowStockThreshold int             `gorm:"column:low_stock_threshold;not null;default:10"`
	Supplier          *string         `gorm:"column:supplier"`
	Location          *string         `gorm:"column:location"`
	SKU               *string         `gorm:"column:sku"`
	Barcode           *string         `gorm:"column:barcode"`
	UserID            int64           `gorm:"column:user_id;not null"`
	AddedDate         time.Time       `gorm:"column:added_date;autoCreateTime"`
	LastUpdated       time.Time       `gorm:"column:last_updated;autoUpdateTime"`
}

// TableName implements gorm's Tabler.
func (StockItem) TableName() string {
	return "stock_items"
}

// TotalValue returns quantity multiplied by unit price.
func (s StockItem) TotalValue() decimal.Decimal {
	return s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}

// StockStatus classifies the item against its low-stock threshold.
func (s StockItem) StockStatus() enums.StockStatus {
	return enums.StockStatusFor(s.Quantity, s.LowStockThreshold)
}
