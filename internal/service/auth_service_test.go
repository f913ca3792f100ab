package service

import (
	"context"
	"testing"
	"time"

	"github.com/smartcheck/gatepass/internal/domain"
	"github.com/smartcheck/gatepass/pkg/auth"
	"github.com/smartcheck/gatepass/pkg/config"
)

func newAuthFixture(t *testing.T) (*AuthService, *memGuardRepo) {
	t.Helper()
	guards := newMemGuardRepo()
	svc := NewAuthService(guards, NewRoleAuthorizer(), config.AuthConfig{
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Hour,
	})
	return svc, guards
}

func admin() Principal {
	return Principal{ID: "1", Email: "admin@example.com", Role: RoleAdmin}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthFixture(t)

	g, err := svc.Register(context.Background(), admin(), "Gate1@Example.com", "s3curepass", "Gate One", RoleGuard)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if g.Email != "gate1@example.com" {
		t.Errorf("email not normalized: %q", g.Email)
	}
	if g.PasswordHash == "s3curepass" || g.PasswordHash == "" {
		t.Error("password stored without hashing")
	}

	res, err := svc.Login(context.Background(), "gate1@example.com", "s3curepass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := auth.Parse(res.Token, "test-secret")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Role != RoleGuard || claims.Email != "gate1@example.com" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newAuthFixture(t)
	if _, err := svc.Register(context.Background(), admin(), "gate1@example.com", "s3curepass", "Gate One", RoleGuard); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Login(context.Background(), "gate1@example.com", "wrong"); domain.KindOf(err) != domain.KindPermission {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := svc.Login(context.Background(), "nobody@example.com", "s3curepass"); domain.KindOf(err) != domain.KindPermission {
		t.Fatalf("unknown account: got %v", err)
	}
}

func TestRegisterRequiresAdmin(t *testing.T) {
	svc, _ := newAuthFixture(t)
	_, err := svc.Register(context.Background(), Principal{Role: RoleGuard}, "x@example.com", "s3curepass", "X", RoleGuard)
	if domain.KindOf(err) != domain.KindPermission {
		t.Fatalf("expected permission error, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthFixture(t)
	cases := []struct {
		name, email, password, role string
	}{
		{"bad email", "not-an-email", "s3curepass", RoleGuard},
		{"short password", "a@example.com", "short", RoleGuard},
		{"bad role", "a@example.com", "s3curepass", "superuser"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), admin(), tc.email, tc.password, "X", tc.role)
			if domain.KindOf(err) != domain.KindConfiguration {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}
