package models

import (
	"time"

	"github.com/stockroomhq/stockroom-backend/pkg/enums"
)

// StockHistory records one immutable quantity-affecting event. Rows are only
// ever inserted, always inside the transaction that mutates the item, and
// always satisfy PreviousQuantity + QuantityChange == NewQuantity. The item
// reference is weak: history survives item deletion.
type StockHistory struct {
	ID               int64               `gorm:"column:id;primaryKey;autoIncrement"`
	StockItemID      int64               `gorm:"column:stock_item_id;not null;index"`
	ActionType       enums.HistoryAction `gorm:"column:action_type;not null"`
	PreviousQuantity int                 `gorm:"column:previous_quantity;not null"`
	QuantityChange   int                 `gorm:"column:quantity_change;not null"`
	NewQuantity      int                 `gorm:"column:new_quantity;not null"`
	UserID           int64               `gorm:"column:user_id;not null"`
	Notes            string              `gorm:"column:notes;not null;default:''"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime;index"`
}

// TableName implements gorm's Tabler.
func (StockHistory) TableName() string {
	return "stock_history"
}
