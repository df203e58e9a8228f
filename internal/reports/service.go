package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stockroomhq/stockroom-backend/internal/history"
	"github.com/stockroomhq/stockroom-backend/internal/stock"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/pagination"
)

const (
	topValueLimit = 10
	lowStockLimit = 10

	// historyEntryCap bounds the detailed listing attached to a history
	// report so an unconstrained range cannot produce an unbounded payload.
	historyEntryCap = 1000

	reportCacheTTL = 5 * time.Minute
)

// DailyReport combines today's audit activity with the current low-stock view.
// LowStockCount covers the whole catalog; LowStockItems holds only the
// emptiest entries.
type DailyReport struct {
	Date          string               `json:"date"`
	GeneratedAt   time.Time            `json:"generated_at"`
	Activity      *history.TodayResult `json:"activity"`
	LowStockCount int                  `json:"low_stock_count"`
	LowStockItems []stock.ItemDTO      `json:"low_stock_items"`
	Statistics    *stock.Statistics    `json:"statistics"`
}

// StockSummaryReport is the catalog-wide valuation snapshot.
type StockSummaryReport struct {
	GeneratedAt   time.Time         `json:"generated_at"`
	Statistics    *stock.Statistics `json:"statistics"`
	TopValueItems []stock.ItemDTO   `json:"top_value_items"`
	LowStockItems []stock.ItemDTO   `json:"low_stock_items"`
}

// HistoryPeriod names the inclusive date range a history report covers.
type HistoryPeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// HistoryTotals sums the per-day buckets across the whole period.
type HistoryTotals struct {
	TotalDays    int `json:"total_days"`
	TotalActions int `json:"total_actions"`
	ItemsAdded   int `json:"items_added"`
	ItemsUpdated int `json:"items_updated"`
	ItemsDeleted int `json:"items_deleted"`
}

// HistoryReport pairs the per-day summary of a date range with the detailed
// audit entries behind it.
type HistoryReport struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Period      HistoryPeriod          `json:"period"`
	Summary     HistoryTotals          `json:"summary"`
	Daily       []history.DailySummary `json:"daily"`
	Entries     []history.EntryDTO     `json:"entries"`
}

// Service composes the stock and history services into report payloads.
type Service interface {
	Daily(ctx context.Context) (*DailyReport, error)
	StockSummary(ctx context.Context) (*StockSummaryReport, error)
	History(ctx context.Context, start, end time.Time) (*HistoryReport, error)
}

// CacheStore is the slice of the Redis client used to memoize report
// snapshots between requests.
type CacheStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	ReportCacheKey(report string, parts ...string) string
}

type service struct {
	stock   stock.Service
	history history.Service
	cache   CacheStore
	now     func() time.Time
}

// ServiceParams bundles the dependencies required to build a reports service.
// Cache is optional; without it every report is built fresh.
type ServiceParams struct {
	Stock   stock.Service
	History history.Service
	Cache   CacheStore
}

// NewService constructs a reports service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Stock == nil {
		return nil, fmt.Errorf("stock service is required")
	}
	if params.History == nil {
		return nil, fmt.Errorf("history service is required")
	}
	return &service{
		stock:   params.Stock,
		history: params.History,
		cache:   params.Cache,
		now:     time.Now,
	}, nil
}

// fromCache loads a previously stored report into out. Caching is best
// effort: a miss, a Redis failure, or an unreadable payload all fall
// through to a fresh build.
func (s *service) fromCache(ctx context.Context, out any, report string, parts ...string) bool {
	if s.cache == nil {
		return false
	}
	payload, err := s.cache.Get(ctx, s.cache.ReportCacheKey(report, parts...))
	if err != nil || payload == "" {
		return false
	}
	return json.Unmarshal([]byte(payload), out) == nil
}

func (s *service) storeCache(ctx context.Context, value any, report string, parts ...string) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.cache.Set(ctx, s.cache.ReportCacheKey(report, parts...), payload, reportCacheTTL)
}

func (s *service) Daily(ctx context.Context) (*DailyReport, error) {
	today := s.now().UTC().Format("2006-01-02")
	var cached DailyReport
	if s.fromCache(ctx, &cached, "daily", today) {
		return &cached, nil
	}

	activity, err := s.history.Today(ctx)
	if err != nil {
		return nil, err
	}
	lowStock, err := s.stock.LowStockItems(ctx, 1)
	if err != nil {
		return nil, err
	}
	stats, err := s.stock.Stats(ctx)
	if err != nil {
		return nil, err
	}

	details := lowStock
	if len(details) > lowStockLimit {
		details = details[:lowStockLimit]
	}

	report := &DailyReport{
		Date:          activity.Date,
		GeneratedAt:   s.now().UTC(),
		Activity:      activity,
		LowStockCount: len(lowStock),
		LowStockItems: details,
		Statistics:    stats,
	}
	s.storeCache(ctx, report, "daily", today)
	return report, nil
}

func (s *service) StockSummary(ctx context.Context) (*StockSummaryReport, error) {
	var cached StockSummaryReport
	if s.fromCache(ctx, &cached, "stock-summary") {
		return &cached, nil
	}

	stats, err := s.stock.Stats(ctx)
	if err != nil {
		return nil, err
	}
	top, err := s.stock.TopValueItems(ctx, topValueLimit)
	if err != nil {
		return nil, err
	}
	lowStock, err := s.stock.LowStockItems(ctx, 1)
	if err != nil {
		return nil, err
	}
	report := &StockSummaryReport{
		GeneratedAt:   s.now().UTC(),
		Statistics:    stats,
		TopValueItems: top,
		LowStockItems: lowStock,
	}
	s.storeCache(ctx, report, "stock-summary")
	return report, nil
}

// History builds a date-range report: the per-day summary, its period-wide
// totals, and the detailed entry list underneath. Both dates are required.
func (s *service) History(ctx context.Context, start, end time.Time) (*HistoryReport, error) {
	if start.IsZero() || end.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "start and end dates are required")
	}
	if end.Before(start) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range end precedes start")
	}

	startStr := start.UTC().Format("2006-01-02")
	endStr := end.UTC().Format("2006-01-02")
	var cached HistoryReport
	if s.fromCache(ctx, &cached, "history", startStr, endStr) {
		return &cached, nil
	}

	daily, err := s.history.Summary(ctx, start, end)
	if err != nil {
		return nil, err
	}

	entries, err := s.collectEntries(ctx, start, end)
	if err != nil {
		return nil, err
	}

	report := &HistoryReport{
		GeneratedAt: s.now().UTC(),
		Period: HistoryPeriod{
			StartDate: startStr,
			EndDate:   endStr,
		},
		Daily:   daily,
		Entries: entries,
	}
	report.Summary.TotalDays = len(daily)
	for _, day := range daily {
		report.Summary.TotalActions += day.TotalActions
		report.Summary.ItemsAdded += day.ItemsAdded
		report.Summary.ItemsUpdated += day.ItemsUpdated
		report.Summary.ItemsDeleted += day.ItemsDeleted
	}
	s.storeCache(ctx, report, "history", startStr, endStr)
	return report, nil
}

// collectEntries pages through the filtered listing until the range is
// exhausted or the report cap is reached.
func (s *service) collectEntries(ctx context.Context, start, end time.Time) ([]history.EntryDTO, error) {
	filters := history.ListFilters{From: &start, To: &end}
	entries := make([]history.EntryDTO, 0)

	for page := 1; len(entries) < historyEntryCap; page++ {
		result, err := s.history.List(ctx, filters, pagination.Params{Page: page, Limit: pagination.MaxLimit})
		if err != nil {
			return nil, err
		}
		entries = append(entries, result.Entries...)
		if int64(len(entries)) >= result.Pagination.Total || len(result.Entries) == 0 {
			break
		}
	}
	if len(entries) > historyEntryCap {
		entries = entries[:historyEntryCap]
	}
	return entries, nil
}
