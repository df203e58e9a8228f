package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/internal/history"
	"github.com/stockroomhq/stockroom-backend/pkg/db"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/pagination"
)

const (
	defaultLowStockThreshold = 10
	minSearchLength          = 2
)

// Service is the only write path for stock quantities. Every mutation of an
// item and its audit entry commits in one transaction or not at all.
type Service interface {
	CreateItem(ctx context.Context, userID int64, req CreateItemRequest) (*ItemDTO, error)
	GetItem(ctx context.Context, id int64) (*ItemDTO, error)
	ListItems(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error)
	UpdateItemFields(ctx context.Context, id int64, req UpdateItemRequest) (*ItemDTO, error)
	DeleteItem(ctx context.Context, userID int64, id int64) error
	ApplyQuantityChange(ctx context.Context, userID int64, id int64, req QuantityChangeRequest) (*ItemDTO, error)
	LowStockItems(ctx context.Context, multiplier int) ([]ItemDTO, error)
	TopValueItems(ctx context.Context, limit int) ([]ItemDTO, error)
	SearchItems(ctx context.Context, query string) ([]ItemDTO, error)
	Stats(ctx context.Context) (*Statistics, error)
}

type service struct {
	db *db.Client
}

// ServiceParams bundles the dependencies required to build a stock service.
type ServiceParams struct {
	DB *db.Client
}

// NewService constructs a stock service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	return &service{db: params.DB}, nil
}

func (s *service) CreateItem(ctx context.Context, userID int64, req CreateItemRequest) (*ItemDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if req.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if req.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	threshold := defaultLowStockThreshold
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "low stock threshold cannot be negative")
		}
		threshold = *req.LowStockThreshold
	}

	item := &models.StockItem{
		Name:              name,
		Description:       strings.TrimSpace(req.Description),
		Category:          category,
		Quantity:          req.Quantity,
		UnitPrice:         req.UnitPrice,
		LowStockThreshold: threshold,
		Supplier:          req.Supplier,
		Location:          req.Location,
		SKU:               req.SKU,
		Barcode:           req.Barcode,
		UserID:            userID,
	}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := NewRepository(tx).Create(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert item")
		}
		_, err := history.NewRepository(tx).Append(ctx, history.AppendEntryDTO{
			StockItemID:      item.ID,
			ActionType:       enums.HistoryActionAdd,
			PreviousQuantity: 0,
			QuantityChange:   item.Quantity,
			NewQuantity:      item.Quantity,
			UserID:           userID,
			Notes:            fmt.Sprintf("New item added: %s", item.Name),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record item creation")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := FromModel(item)
	return &dto, nil
}

func (s *service) GetItem(ctx context.Context, id int64) (*ItemDTO, error) {
	item, err := NewRepository(s.db.DB()).FindByID(ctx, id)
	if err != nil {
		return nil, itemLookupError(err, id)
	}
	dto := FromModel(item)
	return &dto, nil
}

func (s *service) ListItems(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	params = pagination.Normalize(params)
	rows, total, err := NewRepository(s.db.DB()).List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}
	return &ListResult{
		Items:      fromModels(rows),
		Pagination: pagination.MetaFor(params, total),
	}, nil
}

func (s *service) UpdateItemFields(ctx context.Context, id int64, req UpdateItemRequest) (*ItemDTO, error) {
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if req.LowStockThreshold != nil && *req.LowStockThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "low stock threshold cannot be negative")
	}

	var updated *models.StockItem
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		item, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return itemLookupError(err, id)
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
			}
			item.Name = name
		}
		if req.Description != nil {
			item.Description = strings.TrimSpace(*req.Description)
		}
		if req.Category != nil {
			category := strings.TrimSpace(*req.Category)
			if category == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
			}
			item.Category = category
		}
		if req.UnitPrice != nil {
			item.UnitPrice = *req.UnitPrice
		}
		if req.LowStockThreshold != nil {
			item.LowStockThreshold = *req.LowStockThreshold
		}
		if req.Supplier != nil {
			item.Supplier = req.Supplier
		}
		if req.Location != nil {
			item.Location = req.Location
		}
		if req.SKU != nil {
			item.SKU = req.SKU
		}
		if req.Barcode != nil {
			item.Barcode = req.Barcode
		}

		if _, err := repo.Save(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save item")
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := FromModel(updated)
	return &dto, nil
}

func (s *service) DeleteItem(ctx context.Context, userID int64, id int64) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		item, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return itemLookupError(err, id)
		}

		_, err = history.NewRepository(tx).Append(ctx, history.AppendEntryDTO{
			StockItemID:      item.ID,
			ActionType:       enums.HistoryActionDelete,
			PreviousQuantity: item.Quantity,
			QuantityChange:   -item.Quantity,
			NewQuantity:      0,
			UserID:           userID,
			Notes:            fmt.Sprintf("Item deleted: %s", item.Name),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record item deletion")
		}

		if err := repo.Delete(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete item")
		}
		return nil
	})
}

// ApplyQuantityChange executes one add/remove/adjust transition. The item is
// read under a row lock so concurrent removals cannot both pass the
// sufficiency check against a stale quantity.
func (s *service) ApplyQuantityChange(ctx context.Context, userID int64, id int64, req QuantityChangeRequest) (*ItemDTO, error) {
	action, err := enums.ParseStockAction(req.Action)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "action must be add, remove, or adjust")
	}
	switch action {
	case enums.StockActionAdd, enums.StockActionRemove:
		if req.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "quantity must be positive")
		}
	case enums.StockActionAdjust:
		if req.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "adjusted quantity cannot be negative")
		}
	}

	var updated *models.StockItem
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		item, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return itemLookupError(err, id)
		}

		previous := item.Quantity
		var delta int
		var recordedAction enums.HistoryAction

		switch action {
		case enums.StockActionAdd:
			delta = req.Quantity
			recordedAction = enums.HistoryActionAdd
		case enums.StockActionRemove:
			if previous < req.Quantity {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("insufficient stock: have %d, tried to remove %d", previous, req.Quantity))
			}
			delta = -req.Quantity
			recordedAction = enums.HistoryActionUpdate
		case enums.StockActionAdjust:
			delta = req.Quantity - previous
			recordedAction = enums.HistoryActionAdjust
		}

		item.Quantity = previous + delta
		if _, err := repo.Save(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save quantity")
		}

		_, err = history.NewRepository(tx).Append(ctx, history.AppendEntryDTO{
			StockItemID:      item.ID,
			ActionType:       recordedAction,
			PreviousQuantity: previous,
			QuantityChange:   delta,
			NewQuantity:      item.Quantity,
			UserID:           userID,
			Notes:            strings.TrimSpace(req.Notes),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record quantity change")
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := FromModel(updated)
	return &dto, nil
}

// LowStockItems lists items at or below multiplier times their configured
// threshold. Any multiplier below 1 is treated as 1, so the result for a
// larger multiplier is always a superset of the plain low-stock view.
func (s *service) LowStockItems(ctx context.Context, multiplier int) ([]ItemDTO, error) {
	rows, err := NewRepository(s.db.DB()).LowStock(ctx, multiplier)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock items")
	}
	return fromModels(rows), nil
}

func (s *service) TopValueItems(ctx context.Context, limit int) ([]ItemDTO, error) {
	rows, err := NewRepository(s.db.DB()).TopByValue(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rank items by value")
	}
	return fromModels(rows), nil
}

func (s *service) SearchItems(ctx context.Context, query string) ([]ItemDTO, error) {
	if len(strings.TrimSpace(query)) < minSearchLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("search query must be at least %d characters", minSearchLength))
	}
	rows, err := NewRepository(s.db.DB()).Search(ctx, query, DefaultSearchLimit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search items")
	}
	return fromModels(rows), nil
}

func (s *service) Stats(ctx context.Context) (*Statistics, error) {
	stats, err := NewRepository(s.db.DB()).Statistics(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate statistics")
	}
	return stats, nil
}

func itemLookupError(err error, id int64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("stock item %d not found", id))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load item")
}
