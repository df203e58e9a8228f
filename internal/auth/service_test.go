package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/stockroomhq/stockroom-backend/internal/users"
	pkgAuth "github.com/stockroomhq/stockroom-backend/pkg/auth"
	"github.com/stockroomhq/stockroom-backend/pkg/config"
	"github.com/stockroomhq/stockroom-backend/pkg/db/models"
	"github.com/stockroomhq/stockroom-backend/pkg/enums"
	pkgerrors "github.com/stockroomhq/stockroom-backend/pkg/errors"
	"github.com/stockroomhq/stockroom-backend/pkg/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "stockroom",
		ExpirationMinutes: 30,
	}
}

func buildTestService(t *testing.T, user *models.User) (Service, *stubSessionManager) {
	t.Helper()
	sessions := &stubSessionManager{active: map[string]int64{}}
	svc, err := NewService(ServiceParams{
		UserRepo:       &stubUserRepo{user: user},
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, sessions
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func TestServiceLoginMintsRoleClaim(t *testing.T) {
	password := "manager-secret"
	user := &models.User{
		ID:           42,
		Username:     "floor-manager",
		Email:        "manager@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleManager,
		IsActive:     true,
	}

	svc, sessions := buildTestService(t, user)
	resp, err := svc.Login(context.Background(), LoginRequest{
		Username: user.Username,
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != 42 || claims.Role != enums.UserRoleManager {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if sessions.active[claims.ID] != 42 {
		t.Fatalf("expected session started for jti %s", claims.ID)
	}
	if resp.User == nil || resp.User.LastLoginAt == nil {
		t.Fatal("expected login to stamp last_login_at")
	}
}

func TestServiceLoginRejectsBadPassword(t *testing.T) {
	user := &models.User{
		ID:           7,
		Username:     "clerk",
		PasswordHash: mustHashPassword(t, "right"),
		Role:         enums.UserRoleStaff,
		IsActive:     true,
	}
	svc, _ := buildTestService(t, user)

	_, err := svc.Login(context.Background(), LoginRequest{Username: "clerk", Password: "wrong"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestServiceLoginRejectsInactiveUser(t *testing.T) {
	password := "valid"
	user := &models.User{
		ID:           7,
		Username:     "former-employee",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleStaff,
		IsActive:     false,
	}
	svc, _ := buildTestService(t, user)

	_, err := svc.Login(context.Background(), LoginRequest{Username: user.Username, Password: password})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for inactive user, got %v", err)
	}
}

func TestServiceLoginUnknownUser(t *testing.T) {
	sessions := &stubSessionManager{active: map[string]int64{}}
	svc, err := NewService(ServiceParams{
		UserRepo:       &stubUserRepo{err: gorm.ErrRecordNotFound},
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Login(context.Background(), LoginRequest{Username: "ghost", Password: "whatever"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestServiceLogoutRevokesSession(t *testing.T) {
	svc, sessions := buildTestService(t, nil)
	sessions.active["jti-1"] = 9

	if err := svc.Logout(context.Background(), "jti-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, ok := sessions.active["jti-1"]; ok {
		t.Fatal("expected session revoked")
	}

	if err := svc.Logout(context.Background(), "  "); pkgerrors.As(err) == nil {
		t.Fatal("expected validation error for blank access id")
	}
}

func TestServiceChangePassword(t *testing.T) {
	user := &models.User{
		ID:           5,
		Username:     "clerk",
		PasswordHash: mustHashPassword(t, "old-password"),
		Role:         enums.UserRoleStaff,
		IsActive:     true,
	}
	svc, _ := buildTestService(t, user)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, 5, ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "new-password-1",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for wrong current password, got %v", err)
	}

	if err := svc.ChangePassword(ctx, 5, ChangePasswordRequest{
		CurrentPassword: "old-password",
		NewPassword:     "new-password-1",
	}); err != nil {
		t.Fatalf("change password: %v", err)
	}

	ok, err := security.VerifyPassword("new-password-1", user.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("expected new password stored, ok=%v err=%v", ok, err)
	}
}

func TestServiceProfile(t *testing.T) {
	user := &models.User{
		ID:       5,
		Username: "clerk",
		Email:    "clerk@example.com",
		Role:     enums.UserRoleStaff,
		IsActive: true,
	}
	svc, _ := buildTestService(t, user)

	profile, err := svc.Profile(context.Background(), 5)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.Username != "clerk" || profile.Email != "clerk@example.com" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestServiceUpdateProfile(t *testing.T) {
	user := &models.User{
		ID:       5,
		Username: "clerk",
		Email:    "clerk@example.com",
		FullName: "Old Name",
		Role:     enums.UserRoleStaff,
		IsActive: true,
	}
	svc, _ := buildTestService(t, user)
	ctx := context.Background()

	if _, err := svc.UpdateProfile(ctx, 5, UpdateProfileRequest{}); pkgerrors.As(err) == nil {
		t.Fatal("expected validation error for empty patch")
	}

	name := "New Name"
	email := "Clerk@Example.net"
	updated, err := svc.UpdateProfile(ctx, 5, UpdateProfileRequest{FullName: &name, Email: &email})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if updated.FullName != "New Name" || updated.Email != "clerk@example.net" {
		t.Fatalf("unexpected updated profile: %+v", updated)
	}

	// The caller keeping their own email is not a conflict.
	same := "clerk@example.net"
	if _, err := svc.UpdateProfile(ctx, 5, UpdateProfileRequest{Email: &same}); err != nil {
		t.Fatalf("re-assert own email: %v", err)
	}
}

type stubUserRepo struct {
	user *models.User
	err  error
}

func (s *stubUserRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

func (s *stubUserRepo) UpdateProfile(ctx context.Context, id int64, patch users.UpdateProfileDTO) error {
	if s.user == nil || s.user.ID != id {
		return gorm.ErrRecordNotFound
	}
	if patch.FullName != nil {
		s.user.FullName = strings.TrimSpace(*patch.FullName)
	}
	if patch.Email != nil {
		s.user.Email = strings.ToLower(strings.TrimSpace(*patch.Email))
	}
	return nil
}

func (s *stubUserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	if s.user != nil && s.user.ID == id {
		s.user.PasswordHash = passwordHash
	}
	return nil
}

type stubSessionManager struct {
	active map[string]int64
}

func (s *stubSessionManager) Start(ctx context.Context, accessID string, userID int64) error {
	s.active[accessID] = userID
	return nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	delete(s.active, accessID)
	return nil
}
