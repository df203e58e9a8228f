package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authsvc "github.com/stockroomhq/stockroom-backend/internal/auth"
	historysvc "github.com/stockroomhq/stockroom-backend/internal/history"
	reportsvc "github.com/stockroomhq/stockroom-backend/internal/reports"
	stocksvc "github.com/stockroomhq/stockroom-backend/internal/stock"
	"github.com/stockroomhq/stockroom-backend/internal/users"
	pkgAuth "github.com/stockroomhq/stockroom-backend/pkg/auth"
	"github.com/stockroomhq/stockroom-backend/pkg/auth/session"
	"github.com/stockroomhq/stockroom-backend/pkg/config"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	"github.com/stockroomhq/stockroom-backend/pkg/logger"
	"github.com/stockroomhq/stockroom-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubSessions struct{}

func (stubSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req authsvc.LoginRequest) (*authsvc.LoginResponse, error) {
	return &authsvc.LoginResponse{AccessToken: "token"}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error {
	return nil
}

func (stubAuthService) Profile(ctx context.Context, userID int64) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID}, nil
}

func (stubAuthService) UpdateProfile(ctx context.Context, userID int64, req authsvc.UpdateProfileRequest) (*users.UserDTO, error) {
	return &users.UserDTO{ID: userID}, nil
}

func (stubAuthService) ChangePassword(ctx context.Context, userID int64, req authsvc.ChangePasswordRequest) error {
	return nil
}

type stubRegisterService struct{}

func (stubRegisterService) Register(ctx context.Context, actorRole enums.UserRole, req authsvc.RegisterRequest) (*users.UserDTO, error) {
	return &users.UserDTO{ID: 2, Username: req.Username}, nil
}

type stubStockService struct{}

func (stubStockService) CreateItem(ctx context.Context, userID int64, req stocksvc.CreateItemRequest) (*stocksvc.ItemDTO, error) {
	return &stocksvc.ItemDTO{ID: 1, Name: req.Name}, nil
}

func (stubStockService) GetItem(ctx context.Context, id int64) (*stocksvc.ItemDTO, error) {
	return &stocksvc.ItemDTO{ID: id}, nil
}

func (stubStockService) ListItems(ctx context.Context, filters stocksvc.ListFilters, params pagination.Params) (*stocksvc.ListResult, error) {
	return &stocksvc.ListResult{}, nil
}

func (stubStockService) UpdateItemFields(ctx context.Context, id int64, req stocksvc.UpdateItemRequest) (*stocksvc.ItemDTO, error) {
	return &stocksvc.ItemDTO{ID: id}, nil
}

func (stubStockService) DeleteItem(ctx context.Context, userID int64, id int64) error {
	return nil
}

func (stubStockService) ApplyQuantityChange(ctx context.Context, userID int64, id int64, req stocksvc.QuantityChangeRequest) (*stocksvc.ItemDTO, error) {
	return &stocksvc.ItemDTO{ID: id}, nil
}

func (stubStockService) LowStockItems(ctx context.Context, multiplier int) ([]stocksvc.ItemDTO, error) {
	return nil, nil
}

func (stubStockService) TopValueItems(ctx context.Context, limit int) ([]stocksvc.ItemDTO, error) {
	return nil, nil
}

func (stubStockService) SearchItems(ctx context.Context, query string) ([]stocksvc.ItemDTO, error) {
	return nil, nil
}

func (stubStockService) Stats(ctx context.Context) (*stocksvc.Statistics, error) {
	return &stocksvc.Statistics{}, nil
}

type stubHistoryService struct{}

func (stubHistoryService) List(ctx context.Context, filters historysvc.ListFilters, params pagination.Params) (*historysvc.ListResult, error) {
	return &historysvc.ListResult{}, nil
}

func (stubHistoryService) ByItem(ctx context.Context, itemID int64, limit int) ([]historysvc.EntryDTO, error) {
	return nil, nil
}

func (stubHistoryService) Today(ctx context.Context) (*historysvc.TodayResult, error) {
	return &historysvc.TodayResult{}, nil
}

func (stubHistoryService) Summary(ctx context.Context, start, end time.Time) ([]historysvc.DailySummary, error) {
	return nil, nil
}

type stubReportsService struct{}

func (stubReportsService) Daily(ctx context.Context) (*reportsvc.DailyReport, error) {
	return &reportsvc.DailyReport{}, nil
}

func (stubReportsService) StockSummary(ctx context.Context) (*reportsvc.StockSummaryReport, error) {
	return &reportsvc.StockSummaryReport{}, nil
}

func (stubReportsService) History(ctx context.Context, start, end time.Time) (*reportsvc.HistoryReport, error) {
	return &reportsvc.HistoryReport{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(cfg *config.Config) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(RouterParams{
		Config:          cfg,
		Logger:          logg,
		DBPinger:        stubPinger{},
		Sessions:        stubSessions{},
		AuthService:     stubAuthService{},
		RegisterService: stubRegisterService{},
		StockService:    stubStockService{},
		HistoryService:  stubHistoryService{},
		ReportsService:  stubReportsService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   1,
		Username: "tester",
		Role:     role,
		JTI:      session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLiveIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestStockRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestStockSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stock", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for stock list got %d", resp.Code)
	}
}

func TestStockDeleteRequiresElevatedRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	staff := httptest.NewRequest(http.MethodDelete, "/api/v1/stock/1", nil)
	staff.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, staff)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff delete got %d", resp.Code)
	}

	manager := httptest.NewRequest(http.MethodDelete, "/api/v1/stock/1", nil)
	manager.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleManager))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, manager)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for manager delete got %d", resp.Code)
	}
}

func TestRegisterRequiresElevatedRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	body := `{"username":"newbie","email":"newbie@example.com","password":"longenough","full_name":"New Person"}`
	staff := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", nil)
	staff.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, staff)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff register got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for admin register got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestLoginIsPublic(t *testing.T) {
	router := newTestRouter(testConfig())
	body := `{"username":"tester","password":"secretpass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for login got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestReportsRequireJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)

	anon := httptest.NewRequest(http.MethodPost, "/api/v1/reports/daily", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, anon)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous report got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodPost, "/api/v1/reports/daily", nil)
	authed.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for daily report got %d", resp.Code)
	}
}

func TestHistoryEndpointsRouted(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg)
	token := buildToken(t, cfg, enums.UserRoleStaff)

	for _, path := range []string{
		"/api/v1/history",
		"/api/v1/history/today",
		"/api/v1/history/item/3",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d: %s", path, resp.Code, resp.Body.String())
		}
	}
}
