package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/boddenberg/cardpay-ledger-go/internal/domain"
	"github.com/boddenberg/cardpay-ledger-go/internal/infra/lockout"
	"github.com/boddenberg/cardpay-ledger-go/internal/port"
	"github.com/boddenberg/cardpay-ledger-go/internal/storage"
)

var authTracer = otel.Tracer("service/auth")

const bcryptCost = 12

// AuthService handles registration, login and token validation.
type AuthService struct {
	store     port.SnapshotStore
	lockout   *lockout.Tracker
	logger    *zap.Logger
	jwtSecret []byte
	accessTTL time.Duration
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.SnapshotStore, tracker *lockout.Tracker, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:     store,
		lockout:   tracker,
		logger:    logger,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
	}
}

// ============================================================
// Register: POST /api/auth/register
// ============================================================

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email := normalizeEmail(req.Email)
	span.SetAttributes(attribute.String("email", email))

	if email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "required"}
	}
	if req.Password == "" {
		return nil, &domain.ErrValidation{Field: "password", Message: "required"}
	}
	if req.FirstName == "" || req.LastName == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "first and last name required"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := domain.Account{
		ID:           "user-" + uuid.New().String(),
		Email:        email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Balance:      decimal.Zero,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	err = s.store.Update(ctx, func(snap *storage.Snapshot) error {
		if _, exists := snap.AccountByEmail(email); exists {
			return &domain.ErrConflict{Message: "User already exists"}
		}
		snap.Accounts[account.ID] = account
		return nil
	})
	if err != nil {
		return nil, err
	}

	token, err := s.signAccessToken(account.ID, email)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	s.logger.Info("account registered",
		zap.String("account_id", account.ID),
		zap.String("email", email),
	)

	return &domain.AuthResponse{User: &account, Token: token}, nil
}

// ============================================================
// Login: POST /api/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email := normalizeEmail(req.Email)
	span.SetAttributes(attribute.String("email", email))

	if s.lockout.Locked(email) {
		s.logger.Warn("login: account temporarily locked", zap.String("email", email))
		return nil, &domain.ErrUnauthorized{Message: "Too many failed attempts, try again later"}
	}

	var account domain.Account
	found := false
	err := s.store.View(ctx, func(snap *storage.Snapshot) error {
		account, found = snap.AccountByEmail(email)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !found {
		// Unknown email counts against the lockout window too, same as a
		// wrong password, to avoid leaking which addresses exist.
		s.lockout.Fail(email)
		return nil, &domain.ErrUnauthorized{Message: "Invalid credentials"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		remaining := s.lockout.Fail(email)
		s.logger.Warn("login: failed password attempt",
			zap.String("email", email),
			zap.Int("remaining_attempts", remaining),
		)
		return nil, &domain.ErrUnauthorized{Message: "Invalid credentials"}
	}

	s.lockout.Reset(email)

	token, err := s.signAccessToken(account.ID, account.Email)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	s.logger.Info("account logged in", zap.String("account_id", account.ID))

	return &domain.AuthResponse{User: &account, Token: token}, nil
}

// ============================================================
// Account lookup: GET /api/user/{userID}
// ============================================================

func (s *AuthService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.GetAccount")
	defer span.End()

	var account domain.Account
	found := false
	err := s.store.View(ctx, func(snap *storage.Snapshot) error {
		account, found = snap.Accounts[accountID]
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &domain.ErrNotFound{Resource: "user", ID: accountID}
	}
	return &account, nil
}

// ============================================================
// ValidateToken: used by middleware
// ============================================================

// JWTClaims represents the custom claims in access tokens.
type JWTClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Type  string `json:"type"`
	jwt.RegisteredClaims
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "Invalid or expired token"}
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "Invalid token"}
	}

	if claims.Type != "access" {
		return nil, &domain.ErrUnauthorized{Message: "Invalid token type"}
	}

	return claims, nil
}

// ============================================================
// Internal JWT helpers
// ============================================================

func (s *AuthService) signAccessToken(accountID, email string) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Sub:   accountID,
		Email: email,
		Type:  "access",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
			Issuer:    "cardpay-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
