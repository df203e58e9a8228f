package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stockroomhq/stockroom-backend/api/middleware"
	authsvc "github.com/stockroomhq/stockroom-backend/internal/auth"
	"github.com/stockroomhq/stockroom-backend/internal/users"
	pkgAuth "github.com/stockroomhq/stockroom-backend/pkg/auth"
	"github.com/stockroomhq/stockroom-backend/pkg/auth/session"
	"github.com/stockroomhq/stockroom-backend/pkg/config"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
)

type stubAuthService struct {
	loggedOutID string
	err         error
}

func (s *stubAuthService) Login(ctx context.Context, req authsvc.LoginRequest) (*authsvc.LoginResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &authsvc.LoginResponse{
		AccessToken: "token",
		User:        &users.UserDTO{ID: 1, Username: req.Username, Role: enums.UserRoleStaff},
	}, nil
}

func (s *stubAuthService) Logout(ctx context.Context, accessID string) error {
	s.loggedOutID = accessID
	return s.err
}

func (s *stubAuthService) Profile(ctx context.Context, userID int64) (*users.UserDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &users.UserDTO{ID: userID, Username: "tester"}, nil
}

func (s *stubAuthService) UpdateProfile(ctx context.Context, userID int64, req authsvc.UpdateProfileRequest) (*users.UserDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &users.UserDTO{ID: userID}, nil
}

func (s *stubAuthService) ChangePassword(ctx context.Context, userID int64, req authsvc.ChangePasswordRequest) error {
	return s.err
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}
}

func TestAuthLoginValidatesBody(t *testing.T) {
	logg := testLogger()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"tester"}`))
	rec := httptest.NewRecorder()
	AuthLogin(&stubAuthService{}, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing password, got %d", rec.Code)
	}
}

func TestAuthLoginSuccess(t *testing.T) {
	logg := testLogger()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"tester","password":"secretpass"}`))
	rec := httptest.NewRecorder()
	AuthLogin(&stubAuthService{}, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAuthLoginBadCredentials(t *testing.T) {
	logg := testLogger()
	stub := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"username":"tester","password":"wrong-pass"}`))
	rec := httptest.NewRecorder()
	AuthLogin(stub, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthLogoutRevokesTokenSession(t *testing.T) {
	logg := testLogger()
	cfg := testJWTConfig()
	accessID := session.NewAccessID()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID:   1,
		Username: "tester",
		Role:     enums.UserRoleStaff,
		JTI:      accessID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	stub := &stubAuthService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	AuthLogout(stub, cfg, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if stub.loggedOutID != accessID {
		t.Fatalf("expected session %q revoked, got %q", accessID, stub.loggedOutID)
	}
}

func TestAuthLogoutRejectsMissingToken(t *testing.T) {
	logg := testLogger()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	AuthLogout(&stubAuthService{}, testJWTConfig(), logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestAuthProfileRequiresUserContext(t *testing.T) {
	logg := testLogger()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
	rec := httptest.NewRecorder()
	AuthProfile(&stubAuthService{}, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user context, got %d", rec.Code)
	}
}

func TestAuthProfileSuccess(t *testing.T) {
	logg := testLogger()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), 5))
	rec := httptest.NewRecorder()
	AuthProfile(&stubAuthService{}, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthUpdateProfileValidatesEmail(t *testing.T) {
	logg := testLogger()
	req := httptest.NewRequest(http.MethodPut, "/api/v1/auth/profile", strings.NewReader(`{"email":"not-an-email"}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), 5))
	rec := httptest.NewRecorder()
	AuthUpdateProfile(&stubAuthService{}, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad email, got %d", rec.Code)
	}
}

func TestAuthChangePasswordWrongCurrent(t *testing.T) {
	logg := testLogger()
	stub := &stubAuthService{err: pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")}
	body := `{"current_password":"oldpassword","new_password":"newpassword"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/change-password", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), 5))
	rec := httptest.NewRecorder()
	AuthChangePassword(stub, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong current password, got %d", rec.Code)
	}
}
