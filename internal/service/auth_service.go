package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/smartcheck/gatepass/internal/domain"
	"github.com/smartcheck/gatepass/internal/repository"
	"github.com/smartcheck/gatepass/pkg/auth"
	"github.com/smartcheck/gatepass/pkg/config"
	"github.com/smartcheck/gatepass/pkg/logger"
)

// AuthService manages staff accounts and issues session tokens.
type AuthService struct {
	guards repository.GuardRepository
	authz  Authorizer
	cfg    config.AuthConfig
}

func NewAuthService(guards repository.GuardRepository, authz Authorizer, cfg config.AuthConfig) *AuthService {
	return &AuthService{guards: guards, authz: authz, cfg: cfg}
}

var validRoles = map[string]bool{
	RoleAdmin:        true,
	RoleReceptionist: true,
	RoleHost:         true,
	RoleGuard:        true,
}

// Register creates a staff account. Only admins may mint accounts.
func (s *AuthService) Register(ctx context.Context, actor Principal, email, password, name, role string) (*domain.Guard, error) {
	if err := s.authz.IsPermitted(actor, ActionManageRefs); err != nil {
		return nil, err
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, domain.ConfigurationErr("a valid email is required")
	}
	if len(password) < 8 {
		return nil, domain.ConfigurationErr("password must be at least 8 characters")
	}
	if !validRoles[role] {
		return nil, domain.ConfigurationErr("unknown role")
	}

	hash, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	g, err := s.guards.Create(ctx, email, hash, strings.TrimSpace(name), role)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Staff account created", "email", g.Email, "role", g.Role)
	return g, nil
}

// LoginResult carries the session token and its expiry.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	Guard     domain.Guard `json:"guard"`
}

// Login verifies credentials and issues a JWT. Unknown accounts and
// wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	g, err := s.guards.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, domain.PermissionDenied("invalid credentials")
	}
	match, err := argon2id.ComparePasswordAndHash(password, g.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}
	if !match {
		return nil, domain.PermissionDenied("invalid credentials")
	}

	token, err := auth.NewAccessToken(fmt.Sprintf("%d", g.ID), g.Email, g.Role, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	logger.InfoContext(ctx, "Staff login", "email", g.Email, "role", g.Role)
	return &LoginResult{
		Token:     token,
		ExpiresAt: time.Now().Add(s.cfg.AccessTokenTTL),
		Guard:     *g,
	}, nil
}
