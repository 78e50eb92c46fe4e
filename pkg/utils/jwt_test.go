package utils

import (
	"testing"
	"time"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token, err := m.GenerateAccessToken("till-1", []string{RoleCashier})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.TerminalID != "till-1" || !claims.HasRole(RoleCashier) || claims.HasRole(RoleManager) {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	token, err := NewJWTManager("a", time.Hour).GenerateAccessToken("till-1", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewJWTManager("b", time.Hour).ValidateAccessToken(token); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	m := NewJWTManager("secret", -time.Minute)
	token, err := m.GenerateAccessToken("till-1", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := m.ValidateAccessToken(token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestFoldASCII(t *testing.T) {
	if got := FoldASCII("Crème brûlée ☕"); got != "Creme brulee ?" {
		t.Fatalf("unexpected fold %q", got)
	}
}
