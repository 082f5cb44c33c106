package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
	"github.com/boddenberg/cardpay-ledger-go/internal/infra/lockout"
	"github.com/boddenberg/cardpay-ledger-go/internal/service"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage/memory"
)

func newTestAuth(t *testing.T, maxAttempts int) (*service.AuthService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	tracker := lockout.NewTracker(maxAttempts, time.Minute)
	t.Cleanup(tracker.Close)
	svc := service.NewAuthService(store, tracker, "test-secret", 15*time.Minute, zap.NewNop())
	return svc, store
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestAuth(t, 5)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &domain.RegisterRequest{
		Email:     "alice@example.com",
		Password:  "hunter22",
		FirstName: "Alice",
		LastName:  "Aldrin",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.Token == "" {
		t.Error("expected a token on register")
	}
	if resp.User.PasswordHash == "hunter22" {
		t.Error("password stored in plain text")
	}
	if !resp.User.Balance.IsZero() {
		t.Errorf("new accounts must start at zero balance, got %s", resp.User.Balance)
	}

	login, err := svc.Login(ctx, &domain.LoginRequest{Email: "alice@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != resp.User.ID {
		t.Errorf("login returned a different account: %s vs %s", login.User.ID, resp.User.ID)
	}

	claims, err := svc.ValidateAccessToken(login.Token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Sub != resp.User.ID {
		t.Errorf("token subject %s != account id %s", claims.Sub, resp.User.ID)
	}
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, _ := newTestAuth(t, 5)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &domain.RegisterRequest{
		Email: "  Alice@Example.COM ", Password: "pw", FirstName: "Alice", LastName: "Aldrin",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Login(ctx, &domain.LoginRequest{Email: "alice@example.com", Password: "pw"}); err != nil {
		t.Errorf("login with normalized email failed: %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuth(t, 5)
	ctx := context.Background()

	req := &domain.RegisterRequest{Email: "alice@example.com", Password: "pw", FirstName: "Alice", LastName: "Aldrin"}
	if _, err := svc.Register(ctx, req); err != nil {
		t.Fatalf("first register: %v", err)
	}

	_, err := svc.Register(ctx, req)
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestAuth(t, 5)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &domain.RegisterRequest{
		Email: "alice@example.com", Password: "right", FirstName: "Alice", LastName: "Aldrin",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := svc.Login(ctx, &domain.LoginRequest{Email: "alice@example.com", Password: "wrong"})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	svc, _ := newTestAuth(t, 2)
	ctx := context.Background()

	if _, err := svc.Register(ctx, &domain.RegisterRequest{
		Email: "alice@example.com", Password: "right", FirstName: "Alice", LastName: "Aldrin",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.Login(ctx, &domain.LoginRequest{Email: "alice@example.com", Password: "wrong"}); err == nil {
			t.Fatal("expected failure")
		}
	}

	// Locked now, even with the correct password
	_, err := svc.Login(ctx, &domain.LoginRequest{Email: "alice@example.com", Password: "right"})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected lockout, got %v", err)
	}
}

func TestValidateAccessTokenRejectsGarbage(t *testing.T) {
	svc, _ := newTestAuth(t, 5)

	if _, err := svc.ValidateAccessToken("not-a-jwt"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestGetAccount(t *testing.T) {
	svc, _ := newTestAuth(t, 5)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &domain.RegisterRequest{
		Email: "alice@example.com", Password: "pw", FirstName: "Alice", LastName: "Aldrin",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	account, err := svc.GetAccount(ctx, resp.User.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if account.Email != "alice@example.com" {
		t.Errorf("unexpected email: %s", account.Email)
	}

	_, err = svc.GetAccount(ctx, "user-missing")
	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
