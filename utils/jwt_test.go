package utils

import (
	"testing"

	"github.com/google/uuid"
)

func TestGenerateAndValidateToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")

	userID := uuid.New()
	token, err := GenerateToken(userID, "user@test.com", "customer")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("Expected user id %s, got %s", userID, claims.UserID)
	}
	if claims.Email != "user@test.com" {
		t.Errorf("Expected email user@test.com, got %s", claims.Email)
	}
	if claims.Role != "customer" {
		t.Errorf("Expected role customer, got %s", claims.Role)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret-one")
	token, err := GenerateToken(uuid.New(), "user@test.com", "customer")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	t.Setenv("JWT_SECRET", "secret-two")
	if _, err := ValidateToken(token); err == nil {
		t.Error("Expected validation to fail with a different secret")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	t.Setenv("JWT_SECRET", "unit-test-secret")
	if _, err := ValidateToken("not.a.token"); err == nil {
		t.Error("Expected validation to fail for a malformed token")
	}
}
