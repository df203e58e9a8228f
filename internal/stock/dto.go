package stock

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	"github.com/stockroomhq/stockroom-backend/pkg/pagination"
)

// ItemDTO is the transport shape of one stock item. TotalValue and
// StockStatus are derived on the way out and never stored.
type ItemDTO struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	Category          string            `json:"category"`
	Quantity          int               `json:"quantity"`
	UnitPrice         decimal.Decimal   `json:"unit_price"`
	TotalValue        decimal.Decimal   `json:"total_value"`
	StockStatus       enums.StockStatus `json:"stock_status"`
	LowStockThreshold int               `json:"low_stock_threshold"`
	Supplier          *string           `json:"supplier,omitempty"`
	Location          *string           `json:"location,omitempty"`
	SKU               *string           `json:"sku,omitempty"`
	Barcode           *string           `json:"barcode,omitempty"`
	UserID            int64             `json:"user_id"`
	AddedDate         time.Time         `json:"added_date"`
	LastUpdated       time.Time         `json:"last_updated"`
}

// CreateItemRequest is the payload for adding a new item to the catalog.
type CreateItemRequest struct {
	Name              string          `json:"name" validate:"required,max=200"`
	Description       string          `json:"description,omitempty"`
	Category          string          `json:"category" validate:"required,max=100"`
	Quantity          int             `json:"quantity" validate:"gte=0"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	LowStockThreshold *int            `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
	Supplier          *string         `json:"supplier,omitempty"`
	Location          *string         `json:"location,omitempty"`
	SKU               *string         `json:"sku,omitempty"`
	Barcode           *string         `json:"barcode,omitempty"`
}

// UpdateItemRequest carries a partial update of descriptive fields.
// Quantity is deliberately absent: it only moves through quantity changes.
type UpdateItemRequest struct {
	Name              *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Description       *string          `json:"description,omitempty"`
	Category          *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	UnitPrice         *decimal.Decimal `json:"unit_price,omitempty"`
	LowStockThreshold *int             `json:"low_stock_threshold,omitempty" validate:"omitempty,gte=0"`
	Supplier          *string          `json:"supplier,omitempty"`
	Location          *string          `json:"location,omitempty"`
	SKU               *string          `json:"sku,omitempty"`
	Barcode           *string          `json:"barcode,omitempty"`
}

// QuantityChangeRequest asks for one add/remove/adjust transition.
// For add and remove, quantity is the positive magnitude of the change.
// For adjust, quantity is the new absolute level.
type QuantityChangeRequest struct {
	Action   string `json:"action" validate:"required,oneof=add remove adjust"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty" validate:"max=500"`
}

// ListFilters narrows an item listing. Search matches name and
// description as a case-insensitive substring.
type ListFilters struct {
	Category     string
	Search       string
	LowStockOnly bool
	SortBy       string
	SortOrder    string
}

// ListResult is one page of items plus pagination metadata.
type ListResult struct {
	Items      []ItemDTO       `json:"items"`
	Pagination pagination.Meta `json:"pagination"`
}

// CategoryCount is one category's slice of the Statistics rollup.
type CategoryCount struct {
	Category   string          `json:"category"`
	ItemCount  int             `json:"item_count"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// Statistics aggregates the whole catalog.
type Statistics struct {
	TotalItems    int64           `json:"total_items"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
	LowStock      int64           `json:"low_stock_count"`
	OutOfStock    int64           `json:"out_of_stock_count"`
	Categories    []CategoryCount `json:"categories"`
}

func FromModel(item *models.StockItem) ItemDTO {
	return ItemDTO{
		ID:                item.ID,
		Name:              item.Name,
		Description:       item.Description,
		Category:          item.Category,
		Quantity:          item.Quantity,
		UnitPrice:         item.UnitPrice,
		TotalValue:        item.TotalValue(),
		StockStatus:       item.StockStatus(),
		LowStockThreshold: item.LowStockThreshold,
		Supplier:          item.Supplier,
		Location:          item.Location,
		SKU:               item.SKU,
		Barcode:           item.Barcode,
		UserID:            item.UserID,
		AddedDate:         item.AddedDate,
		LastUpdated:       item.LastUpdated,
	}
}

func fromModels(rows []models.StockItem) []ItemDTO {
	items := make([]ItemDTO, 0, len(rows))
	for i := range rows {
		items = append(items, FromModel(&rows[i]))
	}
	return items
}
