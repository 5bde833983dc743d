package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/infrastructure/auth"
)

func TestJWTManagerGenerateAndVerify(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("super-secret", time.Minute)

	user := &domain.User{ID: "user-123", Role: domain.RoleAdmin}

	token, err := manager.Generate(user)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	got, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("expected token to verify, got %v", err)
	}

	if *got != *user {
		t.Fatalf("expected verified user to match, got %+v", got)
	}
}

func TestJWTManagerGenerateRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("secret", time.Minute)

	if _, err := manager.Generate(&domain.User{ID: "u", Role: "root"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for unknown role, got %v", err)
	}
	if _, err := manager.Generate(&domain.User{Role: domain.RoleViewer}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty subject, got %v", err)
	}
}

func sign(t *testing.T, secret string, claims auth.Claims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestJWTManagerVerifyErrors(t *testing.T) {
	t.Parallel()

	manager := auth.NewJWTManager("secret", time.Minute)
	now := time.Now()

	expiredToken := sign(t, "secret", auth.Claims{
		Role: domain.RoleViewer,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "expired",
			Issuer:    "genfin",
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Minute)),
		},
	})

	if _, err := manager.Verify(expiredToken); err != domain.ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}

	otherManager := auth.NewJWTManager("other-secret", time.Minute)
	if _, err := otherManager.Verify(expiredToken); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for wrong key, got %v", err)
	}

	if _, err := manager.Verify("not-a-token"); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for malformed token, got %v", err)
	}

	noExpiry := sign(t, "secret", auth.Claims{
		Role:             domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "forever", Issuer: "genfin"},
	})
	if _, err := manager.Verify(noExpiry); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken without exp claim, got %v", err)
	}

	badRole := sign(t, "secret", auth.Claims{
		Role: "root",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "someone",
			Issuer:    "genfin",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	})
	if _, err := manager.Verify(badRole); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for unknown role, got %v", err)
	}

	otherIssuer := sign(t, "secret", auth.Claims{
		Role: domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "someone",
			Issuer:    "elsewhere",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	})
	if _, err := manager.Verify(otherIssuer); err != domain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken for foreign issuer, got %v", err)
	}
}
