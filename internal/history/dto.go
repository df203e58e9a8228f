package history

import (
	"time"

	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	"github.com/stockroomhq/stockroom-backend/pkg/pagination"
)

// EntryDTO is the transport shape of one audit entry. The display names are
// resolved from the referenced item and user; they are nil when that row
// has since been deleted.
type EntryDTO struct {
	ID               int64               `json:"id"`
	StockItemID      int64               `json:"stock_item_id"`
	ItemName         *string             `json:"item_name"`
	ItemCategory     *string             `json:"item_category"`
	ActionType       enums.HistoryAction `json:"action_type"`
	PreviousQuantity int                 `json:"previous_quantity"`
	QuantityChange   int                 `json:"quantity_change"`
	NewQuantity      int                 `json:"new_quantity"`
	UserID           int64               `json:"user_id"`
	UserName         *string             `json:"user_name"`
	Notes            string              `json:"notes"`
	CreatedAt        time.Time           `json:"created_at"`
}

// AppendEntryDTO holds the data required to persist a new audit entry.
type AppendEntryDTO struct {
	StockItemID      int64
	ActionType       enums.HistoryAction
	PreviousQuantity int
	QuantityChange   int
	NewQuantity      int
	UserID           int64
	Notes            string
}

// ListFilters narrows a history listing. Date bounds are inclusive whole days.
type ListFilters struct {
	ActionType *enums.HistoryAction
	ItemID     *int64
	UserID     *int64
	From       *time.Time
	To         *time.Time
}

// ListResult is one page of audit entries, newest first.
type ListResult struct {
	Entries    []EntryDTO      `json:"entries"`
	Pagination pagination.Meta `json:"pagination"`
}

// DailySummary aggregates one day of audit activity. Adjustments count
// toward total_actions only: an adjust is neither an add, an update,
// nor a delete.
type DailySummary struct {
	Date         string `json:"date"`
	TotalActions int    `json:"total_actions"`
	ItemsAdded   int    `json:"items_added"`
	ItemsUpdated int    `json:"items_updated"`
	ItemsDeleted int    `json:"items_deleted"`
}

func FromRow(row *EntryRow) EntryDTO {
	return EntryDTO{
		ID:               row.ID,
		StockItemID:      row.StockItemID,
		ItemName:         row.ItemName,
		ItemCategory:     row.ItemCategory,
		ActionType:       row.ActionType,
		PreviousQuantity: row.PreviousQuantity,
		QuantityChange:   row.QuantityChange,
		NewQuantity:      row.NewQuantity,
		UserID:           row.UserID,
		UserName:         row.UserName,
		Notes:            row.Notes,
		CreatedAt:        row.CreatedAt,
	}
}

func fromRows(rows []EntryRow) []EntryDTO {
	entries := make([]EntryDTO, 0, len(rows))
	for i := range rows {
		entries = append(entries, FromRow(&rows[i]))
	}
	return entries
}
