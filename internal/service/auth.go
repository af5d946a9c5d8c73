package service

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/totegamma/portfolio"
	"github.com/totegamma/portfolio/internal/domain"
	"github.com/totegamma/portfolio/internal/infra/database/models"
	"github.com/totegamma/portfolio/jwt"
)

var tracer = otel.Tracer("service")

// SessionTTL is the lifetime of tokens minted by Login.
const SessionTTL = 24 * time.Hour

const minPasswordLength = 8

// compared against when the email is unknown so both paths cost one bcrypt round
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("portfolio-dummy-password"), bcrypt.DefaultCost)

type AdminRepository interface {
	Create(ctx context.Context, admin *models.Admin) error
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	Get(ctx context.Context, id string) (*models.Admin, error)
}

// AdminVerifier resolves bearer tokens to admin identities.
type AdminVerifier interface {
	Verify(ctx context.Context, token string) (portfolio.AdminIdentity, error)
}

type AuthService struct {
	repo   AdminRepository
	secret string
}

// NewAuthService returns the auth service. repo may be nil, in which case
// Verify trusts the token alone and Login is unavailable.
func NewAuthService(repo AdminRepository, secret string) *AuthService {
	return &AuthService{
		repo:   repo,
		secret: secret,
	}
}

func (s *AuthService) Login(ctx context.Context, req portfolio.LoginRequest) (portfolio.LoginResponse, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.Login")
	defer span.End()

	if s.repo == nil {
		return portfolio.LoginResponse{}, errors.New("login is not available without an admin store")
	}

	invalid := domain.UnauthorizedError{Reason: "invalid credentials"}
	email := normalizeEmail(req.Email)

	admin, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		bcrypt.CompareHashAndPassword(dummyHash, []byte(req.Password))
		return portfolio.LoginResponse{}, invalid
	}
	if err != nil {
		span.RecordError(err)
		return portfolio.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		zap.L().Info("login rejected", zap.String("email", email))
		return portfolio.LoginResponse{}, invalid
	}

	token, expiresAt, err := jwt.Create(admin.ID, admin.Email, domain.RoleAdmin, SessionTTL, s.secret)
	if err != nil {
		span.RecordError(err)
		return portfolio.LoginResponse{}, errors.Wrap(err, "sign token")
	}

	return portfolio.LoginResponse{Token: token, ExpiresAt: expiresAt}, nil
}

func (s *AuthService) Verify(ctx context.Context, token string) (portfolio.AdminIdentity, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.Verify")
	defer span.End()

	claims, err := jwt.Validate(token, s.secret)
	if err != nil {
		span.RecordError(errors.Wrap(err, "jwt validation failed"))
		return portfolio.AdminIdentity{}, domain.UnauthorizedError{Reason: err.Error()}
	}
	if claims.Role != domain.RoleAdmin {
		return portfolio.AdminIdentity{}, domain.UnauthorizedError{Reason: "not an admin"}
	}

	identity := portfolio.AdminIdentity{ID: claims.Subject, Email: claims.Email}
	if s.repo == nil {
		return identity, nil
	}

	admin, err := s.repo.Get(ctx, claims.Subject)
	if errors.Is(err, domain.ErrNotFound) {
		return portfolio.AdminIdentity{}, domain.UnauthorizedError{Reason: "admin no longer exists"}
	}
	if err != nil {
		return portfolio.AdminIdentity{}, err
	}
	identity.Email = admin.Email
	return identity, nil
}

func (s *AuthService) CreateAdmin(ctx context.Context, email, password string) (*models.Admin, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.CreateAdmin")
	defer span.End()

	if s.repo == nil {
		return nil, errors.New("admin store is not configured")
	}

	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, domain.ValidationError{Field: "email", Reason: "is not an email address"}
	}
	if len(password) < minPasswordLength {
		return nil, domain.ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}

	admin := &models.Admin{Email: email, PasswordHash: string(hash)}
	if err := s.repo.Create(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
