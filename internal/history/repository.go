package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/pagination"
)

// Repository exposes persistence for the append-only audit trail.
type Repository struct {
	db *gorm.DB
}

// EntryRow is one audit entry joined with the display names of the item and
// user it references. The joins are LEFT joins so entries survive deletion
// of either side; the joined fields are nil when the row is gone.
type EntryRow struct {
	models.StockHistory
	ItemName     *string `gorm:"column:item_name"`
	ItemCategory *string `gorm:"column:item_category"`
	UserName     *string `gorm:"column:user_name"`
}

const entrySelect = `stock_history.*,
si.name AS item_name,
si.category AS item_category,
u.username AS user_name`

func joinNames(qb *gorm.DB) *gorm.DB {
	return qb.
		Select(entrySelect).
		Joins("LEFT JOIN stock_items si ON si.id = stock_history.stock_item_id").
		Joins("LEFT JOIN users u ON u.id = stock_history.user_id")
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Append inserts a new audit entry. Entries are never updated or deleted.
func (r *Repository) Append(ctx context.Context, dto AppendEntryDTO) (*models.StockHistory, error) {
	if dto.PreviousQuantity+dto.QuantityChange != dto.NewQuantity {
		return nil, fmt.Errorf(
			"unbalanced history entry for item %d: %d + %d != %d",
			dto.StockItemID, dto.PreviousQuantity, dto.QuantityChange, dto.NewQuantity,
		)
	}
	entry := &models.StockHistory{
		StockItemID:      dto.StockItemID,
		ActionType:       dto.ActionType,
		PreviousQuantity: dto.PreviousQuantity,
		QuantityChange:   dto.QuantityChange,
		NewQuantity:      dto.NewQuantity,
		UserID:           dto.UserID,
		Notes:            dto.Notes,
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns one page of entries matching the filters, newest first.
func (r *Repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]EntryRow, int64, error) {
	params = pagination.Normalize(params)

	qb := r.db.WithContext(ctx).Model(&models.StockHistory{})
	qb = applyFilters(qb, filters)

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []EntryRow
	err := joinNames(qb).
		Order("stock_history.created_at DESC, stock_history.id DESC").
		Limit(params.Limit).
		Offset(params.Offset()).
		Scan(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// ByItem returns the most recent entries for one item.
func (r *Repository) ByItem(ctx context.Context, itemID int64, limit int) ([]EntryRow, error) {
	limit = pagination.NormalizeLimit(limit)
	var rows []EntryRow
	err := joinNames(r.db.WithContext(ctx).Model(&models.StockHistory{})).
		Where("stock_history.stock_item_id = ?", itemID).
		Order("stock_history.created_at DESC, stock_history.id DESC").
		Limit(limit).
		Scan(&rows).
		Error
	return rows, err
}

// Since returns all entries created at or after the provided instant, newest first.
func (r *Repository) Since(ctx context.Context, from time.Time) ([]EntryRow, error) {
	var rows []EntryRow
	err := joinNames(r.db.WithContext(ctx).Model(&models.StockHistory{})).
		Where("stock_history.created_at >= ?", from).
		Order("stock_history.created_at DESC, stock_history.id DESC").
		Scan(&rows).
		Error
	return rows, err
}

type summaryRow struct {
	Date         string
	TotalActions int
	ItemsAdded   int
	ItemsUpdated int
	ItemsDeleted int
}

// Summarize buckets entries per calendar day over an inclusive date range,
// most recent day first. Adjust entries land in total_actions only.
func (r *Repository) Summarize(ctx context.Context, start, end time.Time) ([]DailySummary, error) {
	dateExpr := r.dateExpr()

	qb := r.db.WithContext(ctx).
		Model(&models.StockHistory{}).
		Select(fmt.Sprintf(`%s AS date,
COUNT(*) AS total_actions,
SUM(CASE WHEN action_type = 'add' THEN 1 ELSE 0 END) AS items_added,
SUM(CASE WHEN action_type = 'update' THEN 1 ELSE 0 END) AS items_updated,
SUM(CASE WHEN action_type = 'delete' THEN 1 ELSE 0 END) AS items_deleted`, dateExpr)).
		Where("created_at >= ? AND created_at < ?", startOfDay(start), startOfDay(end).AddDate(0, 0, 1)).
		Group(dateExpr).
		Order("date DESC")

	var rows []summaryRow
	if err := qb.Scan(&rows).Error; err != nil {
		return nil, err
	}

	summaries := make([]DailySummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, DailySummary{
			Date:         row.Date,
			TotalActions: row.TotalActions,
			ItemsAdded:   row.ItemsAdded,
			ItemsUpdated: row.ItemsUpdated,
			ItemsDeleted: row.ItemsDeleted,
		})
	}
	return summaries, nil
}

// dateExpr picks a day-bucket expression the active dialect can evaluate.
// Tests run on sqlite, production runs on postgres.
func (r *Repository) dateExpr() string {
	if r.db.Dialector.Name() == "postgres" {
		return "to_char(created_at, 'YYYY-MM-DD')"
	}
	return "strftime('%Y-%m-%d', created_at)"
}

// Columns are qualified because the listing query joins tables that carry
// their own created_at and user columns.
func applyFilters(qb *gorm.DB, filters ListFilters) *gorm.DB {
	if filters.ActionType != nil {
		qb = qb.Where("stock_history.action_type = ?", *filters.ActionType)
	}
	if filters.ItemID != nil {
		qb = qb.Where("stock_history.stock_item_id = ?", *filters.ItemID)
	}
	if filters.UserID != nil {
		qb = qb.Where("stock_history.user_id = ?", *filters.UserID)
	}
	if filters.From != nil {
		qb = qb.Where("stock_history.created_at >= ?", startOfDay(*filters.From))
	}
	if filters.To != nil {
		qb = qb.Where("stock_history.created_at < ?", startOfDay(*filters.To).AddDate(0, 0, 1))
	}
	return qb
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
