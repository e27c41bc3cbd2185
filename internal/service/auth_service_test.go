package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"fitcoach/backend/internal/domain"
	"fitcoach/backend/internal/service"
	"fitcoach/backend/internal/testhelpers"
)

func TestRegisterAndLogin(t *testing.T) {
	ctx := t.Context()
	store := newStore(t)
	auth := service.NewAuthService(store.Users, "test-secret", time.Hour, testhelpers.NewLogger(testhelpers.NewWriter(t)))

	user, err := auth.Register(ctx, "Ana", " Ana@Example.com ", "pa55word", domain.RoleCoach)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.ID == "" || user.Email != "ana@example.com" || user.PasswordHash != "" {
		t.Errorf("Register() = %+v", user)
	}

	if _, err := auth.Register(ctx, "Ana 2", "ana@example.com", "x", domain.RoleAthlete); !errors.Is(err, service.ErrUserAlreadyExists) {
		t.Errorf("Register(dup) error = %v, want ErrUserAlreadyExists", err)
	}
	if _, err := auth.Register(ctx, "Bob", "bob@example.com", "x", "admin"); !errors.Is(err, service.ErrInvalidRegistration) {
		t.Errorf("Register(bad role) error = %v, want ErrInvalidRegistration", err)
	}

	token, got, err := auth.Login(ctx, "ana@example.com", "pa55word")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if got.ID != user.ID || got.PasswordHash != "" {
		t.Errorf("Login() user = %+v", got)
	}

	claims := &service.Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(auth.GetJWTSecret()), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token does not verify: %v", err)
	}
	if claims.UserID != user.ID || claims.Role != domain.RoleCoach {
		t.Errorf("claims = %+v", claims)
	}

	for _, tc := range []struct{ email, password string }{
		{"ana@example.com", "wrong"},
		{"nobody@example.com", "pa55word"},
		{"", ""},
	} {
		if _, _, err := auth.Login(ctx, tc.email, tc.password); !errors.Is(err, service.ErrAuthenticationFailed) {
			t.Errorf("Login(%q, %q) error = %v, want ErrAuthenticationFailed", tc.email, tc.password, err)
		}
	}
}
