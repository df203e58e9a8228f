package history

import (
	"context"
	"fmt"
	"time"

	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/pagination"
)

// TodayResult carries today's audit activity with its rolled-up counters.
// Unlike the per-day summary, items_updated here folds adjustments in:
// the endpoint answers "what changed today", not "which action was taken".
type TodayResult struct {
	Date         string     `json:"date"`
	TotalActions int        `json:"total_actions"`
	ItemsAdded   int        `json:"items_added"`
	ItemsUpdated int        `json:"items_updated"`
	ItemsDeleted int        `json:"items_deleted"`
	Entries      []EntryDTO `json:"entries"`
}

// Service defines the audit trail read surface.
type Service interface {
	List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error)
	ByItem(ctx context.Context, itemID int64, limit int) ([]EntryDTO, error)
	Today(ctx context.Context) (*TodayResult, error)
	Summary(ctx context.Context, start, end time.Time) ([]DailySummary, error)
}

type repository interface {
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]EntryRow, int64, error)
	ByItem(ctx context.Context, itemID int64, limit int) ([]EntryRow, error)
	Since(ctx context.Context, from time.Time) ([]EntryRow, error)
	Summarize(ctx context.Context, start, end time.Time) ([]DailySummary, error)
}

type service struct {
	repo repository
	now  func() time.Time
}

// NewService constructs a history service around the provided repository.
func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("history repository is required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) List(ctx context.Context, filters ListFilters, params pagination.Params) (*ListResult, error) {
	if filters.ActionType != nil && !filters.ActionType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid action type filter")
	}
	if filters.From != nil && filters.To != nil && filters.To.Before(*filters.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range end precedes start")
	}

	params = pagination.Normalize(params)
	rows, total, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list history")
	}
	return &ListResult{
		Entries:    fromRows(rows),
		Pagination: pagination.MetaFor(params, total),
	}, nil
}

func (s *service) ByItem(ctx context.Context, itemID int64, limit int) ([]EntryDTO, error) {
	if itemID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id must be positive")
	}
	rows, err := s.repo.ByItem(ctx, itemID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list item history")
	}
	return fromRows(rows), nil
}

func (s *service) Today(ctx context.Context) (*TodayResult, error) {
	now := s.now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	rows, err := s.repo.Since(ctx, midnight)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load today's history")
	}

	result := &TodayResult{
		Date:    midnight.Format("2006-01-02"),
		Entries: fromRows(rows),
	}
	for _, row := range rows {
		result.TotalActions++
		switch row.ActionType {
		case enums.HistoryActionAdd:
			result.ItemsAdded++
		case enums.HistoryActionUpdate, enums.HistoryActionAdjust:
			result.ItemsUpdated++
		case enums.HistoryActionDelete:
			result.ItemsDeleted++
		}
	}
	return result, nil
}

// Summary buckets audit activity per calendar day over an inclusive date
// range. Both bounds are required.
func (s *service) Summary(ctx context.Context, start, end time.Time) ([]DailySummary, error) {
	if start.IsZero() || end.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start and end dates are required")
	}
	if end.Before(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range end precedes start")
	}
	summaries, err := s.repo.Summarize(ctx, start, end)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summarize history")
	}
	return summaries, nil
}
