package reports

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockroomhq/stockroom-backend/internal/history"
	"github.com/stockroomhq/stockroom-backend/internal/stock"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/pagination"
)

type stubStockService struct {
	stock.Service
	stats         *stock.Statistics
	low           []stock.ItemDTO
	top           []stock.ItemDTO
	topLimit      int
	lowMultiplier int
	statsCalls    int
}

func (s *stubStockService) Stats(ctx context.Context) (*stock.Statistics, error) {
	s.statsCalls++
	return s.stats, nil
}

func (s *stubStockService) LowStockItems(ctx context.Context, multiplier int) ([]stock.ItemDTO, error) {
	s.lowMultiplier = multiplier
	return s.low, nil
}

func (s *stubStockService) TopValueItems(ctx context.Context, limit int) ([]stock.ItemDTO, error) {
	s.topLimit = limit
	return s.top, nil
}

type stubHistoryService struct {
	history.Service
	today     *history.TodayResult
	summaries []history.DailySummary
	entries   []history.EntryDTO
	lastStart time.Time
	lastEnd   time.Time
}

func (s *stubHistoryService) Today(ctx context.Context) (*history.TodayResult, error) {
	return s.today, nil
}

func (s *stubHistoryService) Summary(ctx context.Context, start, end time.Time) ([]history.DailySummary, error) {
	s.lastStart, s.lastEnd = start, end
	return s.summaries, nil
}

func (s *stubHistoryService) List(ctx context.Context, filters history.ListFilters, params pagination.Params) (*history.ListResult, error) {
	params = pagination.Normalize(params)
	total := int64(len(s.entries))
	offset := params.Offset()
	if offset > len(s.entries) {
		offset = len(s.entries)
	}
	limit := offset + params.Limit
	if limit > len(s.entries) {
		limit = len(s.entries)
	}
	return &history.ListResult{
		Entries:    s.entries[offset:limit],
		Pagination: pagination.MetaFor(params, total),
	}, nil
}

func newStubs() (*stubStockService, *stubHistoryService) {
	stockStub := &stubStockService{
		stats: &stock.Statistics{
			TotalItems:    4,
			TotalQuantity: 40,
			TotalValue:    decimal.NewFromInt(100),
			LowStock:      1,
		},
		low: []stock.ItemDTO{{ID: 2, Name: "low item", Quantity: 1}},
		top: []stock.ItemDTO{{ID: 1, Name: "valuable item"}},
	}
	historyStub := &stubHistoryService{
		today: &history.TodayResult{
			Date:         "2026-08-31",
			TotalActions: 3,
			ItemsAdded:   1,
			ItemsUpdated: 2,
		},
		summaries: []history.DailySummary{
			{Date: "2026-08-31", TotalActions: 3, ItemsAdded: 1, ItemsUpdated: 2},
			{Date: "2026-08-30", TotalActions: 2, ItemsDeleted: 1},
		},
		entries: []history.EntryDTO{
			{ID: 5, StockItemID: 1},
			{ID: 4, StockItemID: 2},
		},
	}
	return stockStub, historyStub
}

func newTestService(t *testing.T, stockSvc stock.Service, historySvc history.Service) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Stock: stockSvc, History: historySvc})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestDailyReport(t *testing.T) {
	stockStub, historyStub := newStubs()
	svc := newTestService(t, stockStub, historyStub)

	report, err := svc.Daily(context.Background())
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if report.Date != "2026-08-31" {
		t.Fatalf("expected report date from activity, got %s", report.Date)
	}
	if report.Activity.TotalActions != 3 {
		t.Fatalf("unexpected activity: %+v", report.Activity)
	}
	if stockStub.lowMultiplier != 1 {
		t.Fatalf("daily report must use the plain low-stock view, got multiplier %d", stockStub.lowMultiplier)
	}
	if report.LowStockCount != 1 || len(report.LowStockItems) != 1 || report.LowStockItems[0].ID != 2 {
		t.Fatalf("unexpected low stock view: %+v", report)
	}
	if report.Statistics.TotalItems != 4 {
		t.Fatalf("unexpected statistics: %+v", report.Statistics)
	}
	if report.GeneratedAt.IsZero() {
		t.Fatal("expected generated_at to be set")
	}
}

func TestDailyReportCapsLowStockDetails(t *testing.T) {
	stockStub, historyStub := newStubs()
	stockStub.low = nil
	for i := 0; i < 14; i++ {
		stockStub.low = append(stockStub.low, stock.ItemDTO{ID: int64(i + 1), Quantity: i})
	}
	svc := newTestService(t, stockStub, historyStub)

	report, err := svc.Daily(context.Background())
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if report.LowStockCount != 14 {
		t.Fatalf("count must cover every low item, got %d", report.LowStockCount)
	}
	if len(report.LowStockItems) != 10 {
		t.Fatalf("details are capped at 10, got %d", len(report.LowStockItems))
	}
	if report.LowStockItems[0].ID != 1 {
		t.Fatalf("expected emptiest item first, got %+v", report.LowStockItems[0])
	}
}

func TestStockSummaryReport(t *testing.T) {
	stockStub, historyStub := newStubs()
	svc := newTestService(t, stockStub, historyStub)

	report, err := svc.StockSummary(context.Background())
	if err != nil {
		t.Fatalf("stock summary: %v", err)
	}
	if stockStub.topLimit != 10 {
		t.Fatalf("expected top-10 ranking, asked for %d", stockStub.topLimit)
	}
	if len(report.TopValueItems) != 1 || report.TopValueItems[0].Name != "valuable item" {
		t.Fatalf("unexpected top items: %+v", report.TopValueItems)
	}
	if !report.Statistics.TotalValue.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected total value: %s", report.Statistics.TotalValue)
	}
}

type memoryCache struct {
	entries map[string]string
	sets    int
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, error) {
	value, ok := c.entries[key]
	if !ok {
		return "", errors.New("cache miss")
	}
	return value, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	payload, ok := value.([]byte)
	if !ok {
		return errors.New("unexpected payload type")
	}
	c.entries[key] = string(payload)
	c.sets++
	return nil
}

func (c *memoryCache) ReportCacheKey(report string, parts ...string) string {
	return strings.Join(append([]string{"report", report}, parts...), ":")
}

func TestStockSummaryReportServedFromCache(t *testing.T) {
	stockStub, historyStub := newStubs()
	cache := &memoryCache{entries: map[string]string{}}
	svc, err := NewService(ServiceParams{Stock: stockStub, History: historyStub, Cache: cache})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	first, err := svc.StockSummary(ctx)
	if err != nil {
		t.Fatalf("first summary: %v", err)
	}
	second, err := svc.StockSummary(ctx)
	if err != nil {
		t.Fatalf("second summary: %v", err)
	}

	if stockStub.statsCalls != 1 {
		t.Fatalf("second summary must come from cache, stats hit %d times", stockStub.statsCalls)
	}
	if cache.sets != 1 {
		t.Fatalf("expected one cache write, got %d", cache.sets)
	}
	if !second.GeneratedAt.Equal(first.GeneratedAt) {
		t.Fatalf("cached report must keep its build time: %s vs %s", second.GeneratedAt, first.GeneratedAt)
	}
	if !second.Statistics.TotalValue.Equal(first.Statistics.TotalValue) {
		t.Fatalf("cached report diverged: %s vs %s", second.Statistics.TotalValue, first.Statistics.TotalValue)
	}
}

func TestDailyReportCacheKeyedByDate(t *testing.T) {
	stockStub, historyStub := newStubs()
	cache := &memoryCache{entries: map[string]string{}}
	svc, err := NewService(ServiceParams{Stock: stockStub, History: historyStub, Cache: cache})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.Daily(context.Background()); err != nil {
		t.Fatalf("daily: %v", err)
	}
	today := time.Now().UTC().Format("2006-01-02")
	if _, ok := cache.entries["report:daily:"+today]; !ok {
		t.Fatalf("expected daily report cached under today's date, keys: %v", cache.entries)
	}
}

func TestHistoryReport(t *testing.T) {
	stockStub, historyStub := newStubs()
	svc := newTestService(t, stockStub, historyStub)

	start := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	report, err := svc.History(context.Background(), start, end)
	if err != nil {
		t.Fatalf("history report: %v", err)
	}
	if !historyStub.lastStart.Equal(start) || !historyStub.lastEnd.Equal(end) {
		t.Fatalf("expected range forwarded, got %s..%s", historyStub.lastStart, historyStub.lastEnd)
	}
	if report.Period.StartDate != "2026-08-30" || report.Period.EndDate != "2026-08-31" {
		t.Fatalf("unexpected period: %+v", report.Period)
	}
	if report.Summary.TotalDays != 2 || report.Summary.TotalActions != 5 {
		t.Fatalf("unexpected totals: %+v", report.Summary)
	}
	if report.Summary.ItemsAdded != 1 || report.Summary.ItemsUpdated != 2 || report.Summary.ItemsDeleted != 1 {
		t.Fatalf("unexpected bucket totals: %+v", report.Summary)
	}
	if len(report.Entries) != 2 || report.Entries[0].ID != 5 {
		t.Fatalf("unexpected entries: %+v", report.Entries)
	}
}

func TestHistoryReportValidation(t *testing.T) {
	stockStub, historyStub := newStubs()
	svc := newTestService(t, stockStub, historyStub)
	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	if _, err := svc.History(context.Background(), time.Time{}, day); pkgerrors.As(err) == nil {
		t.Fatal("expected validation error for missing start")
	}
	if _, err := svc.History(context.Background(), day, time.Time{}); pkgerrors.As(err) == nil {
		t.Fatal("expected validation error for missing end")
	}
	if _, err := svc.History(context.Background(), day, day.AddDate(0, 0, -1)); pkgerrors.As(err) == nil {
		t.Fatal("expected validation error for inverted range")
	}
}

func TestHistoryReportPagesThroughEntries(t *testing.T) {
	stockStub, historyStub := newStubs()
	historyStub.entries = nil
	for i := 0; i < 250; i++ {
		historyStub.entries = append(historyStub.entries, history.EntryDTO{ID: int64(250 - i)})
	}
	svc := newTestService(t, stockStub, historyStub)

	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	report, err := svc.History(context.Background(), day, day)
	if err != nil {
		t.Fatalf("history report: %v", err)
	}
	if len(report.Entries) != 250 {
		t.Fatalf("expected all 250 entries collected, got %d", len(report.Entries))
	}
	for i, entry := range report.Entries {
		if entry.ID != int64(250-i) {
			t.Fatalf("entry order broken at index %d: %+v", i, entry)
		}
	}
}

// TestEmptyRangeRendersZeroes: reports never fail on empty data, they
// render zero counts and empty lists.
func TestEmptyRangeRendersZeroes(t *testing.T) {
	stockStub, historyStub := newStubs()
	historyStub.summaries = nil
	historyStub.entries = nil
	svc := newTestService(t, stockStub, historyStub)

	day := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	report, err := svc.History(context.Background(), day, day)
	if err != nil {
		t.Fatalf("history report: %v", err)
	}
	if report.Summary.TotalDays != 0 || report.Summary.TotalActions != 0 {
		t.Fatalf("expected zero totals, got %+v", report.Summary)
	}
	if len(report.Daily) != 0 || len(report.Entries) != 0 {
		t.Fatalf("expected empty lists, got %+v", report)
	}
}
