package stock

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/pagination"
)

// DefaultSearchLimit caps free-text search results.
const DefaultSearchLimit = 20

// sortColumns is the allow-list for client-supplied sort fields. Anything
// else silently falls back to last_updated.
var sortColumns = map[string]string{
	"name":         "name",
	"category":     "category",
	"quantity":     "quantity",
	"unit_price":   "unit_price",
	"added_date":   "added_date",
	"last_updated": "last_updated",
}

// Repository exposes persistence for stock items.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new item row.
func (r *Repository) Create(ctx context.Context, item *models.StockItem) (*models.StockItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Save persists all fields of an existing item row.
func (r *Repository) Save(ctx context.Context, item *models.StockItem) (*models.StockItem, error) {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes an item by ID.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.StockItem{}).Error
}

// FindByID loads an item without locking.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.StockItem, error) {
	var item models.StockItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByIDForUpdate loads an item holding a row lock for the duration of the
// surrounding transaction. sqlite (tests) has no row locks; its writes
// serialize on the database lock instead.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id int64) (*models.StockItem, error) {
	qb := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		qb = qb.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var item models.StockItem
	if err := qb.First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns one page of items matching the filters.
func (r *Repository) List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.StockItem, int64, error) {
	params = pagination.Normalize(params)

	qb := r.db.WithContext(ctx).Model(&models.StockItem{})
	if filters.Category != "" {
		qb = qb.Where("category = ?", filters.Category)
	}
	if term := strings.TrimSpace(filters.Search); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		qb = qb.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if filters.LowStockOnly {
		qb = qb.Where("quantity <= low_stock_threshold")
	}

	var total int64
	if err := qb.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.StockItem
	err := qb.
		Order(orderClause(filters.SortBy, filters.SortOrder)).
		Limit(params.Limit).
		Offset(params.Offset()).
		Find(&rows).
		Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// LowStock returns every item at or below multiplier times its threshold,
// emptiest first. Multiplier 1 is the plain low-stock view; higher values
// widen the net for restock planning.
func (r *Repository) LowStock(ctx context.Context, multiplier int) ([]models.StockItem, error) {
	if multiplier < 1 {
		multiplier = 1
	}
	var rows []models.StockItem
	err := r.db.WithContext(ctx).
		Where("quantity <= low_stock_threshold * ?", multiplier).
		Order("quantity ASC, name ASC").
		Find(&rows).
		Error
	return rows, err
}

// Search matches the query against name, description, and SKU.
func (r *Repository) Search(ctx context.Context, query string, limit int) ([]models.StockItem, error) {
	if limit <= 0 || limit > DefaultSearchLimit {
		limit = DefaultSearchLimit
	}
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"

	var rows []models.StockItem
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(COALESCE(sku, '')) LIKE ?",
			pattern, pattern, pattern).
		Order("name ASC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

type statsRow struct {
	TotalItems    int64
	TotalQuantity int64
	TotalValue    decimal.Decimal
	LowStock      int64
	OutOfStock    int64
}

type categoryRow struct {
	Category   string
	ItemCount  int
	TotalValue decimal.Decimal
}

// Statistics aggregates the whole catalog in two queries.
func (r *Repository) Statistics(ctx context.Context) (*Statistics, error) {
	var totals statsRow
	err := r.db.WithContext(ctx).
		Model(&models.StockItem{}).
		Select(`COUNT(*) AS total_items,
COALESCE(SUM(quantity), 0) AS total_quantity,
COALESCE(SUM(quantity * unit_price), 0) AS total_value,
SUM(CASE WHEN quantity <= low_stock_threshold THEN 1 ELSE 0 END) AS low_stock,
SUM(CASE WHEN quantity = 0 THEN 1 ELSE 0 END) AS out_of_stock`).
		Scan(&totals).
		Error
	if err != nil {
		return nil, err
	}

	var categories []categoryRow
	err = r.db.WithContext(ctx).
		Model(&models.StockItem{}).
		Select("category, COUNT(*) AS item_count, COALESCE(SUM(quantity * unit_price), 0) AS total_value").
		Group("category").
		Order("total_value DESC").
		Scan(&categories).
		Error
	if err != nil {
		return nil, err
	}

	stats := &Statistics{
		TotalItems:    totals.TotalItems,
		TotalQuantity: totals.TotalQuantity,
		TotalValue:    totals.TotalValue,
		LowStock:      totals.LowStock,
		OutOfStock:    totals.OutOfStock,
		Categories:    make([]CategoryCount, 0, len(categories)),
	}
	for _, row := range categories {
		stats.Categories = append(stats.Categories, CategoryCount{
			Category:   row.Category,
			ItemCount:  row.ItemCount,
			TotalValue: row.TotalValue,
		})
	}
	return stats, nil
}

// TopByValue returns up to limit items ordered by quantity * unit_price.
func (r *Repository) TopByValue(ctx context.Context, limit int) ([]models.StockItem, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []models.StockItem
	err := r.db.WithContext(ctx).
		Order("(quantity * unit_price) DESC, name ASC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}

func orderClause(sortBy, sortOrder string) string {
	column, ok := sortColumns[strings.ToLower(strings.TrimSpace(sortBy))]
	if !ok {
		return "last_updated DESC"
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	return fmt.Sprintf("%s %s", column, direction)
}
