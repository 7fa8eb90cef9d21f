package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/warungpos/api/internal/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()
	branchID := uuid.New()
	role := "CASHIER"

	token, err := auth.GenerateToken(secret, userID, branchID, role, false)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("user ID: got %v, want %v", claims.UserID, userID)
	}
	if claims.BranchID != branchID {
		t.Errorf("branch ID: got %v, want %v", claims.BranchID, branchID)
	}
	if claims.Role != role {
		t.Errorf("role: got %v, want %v", claims.Role, role)
	}
	if claims.IsAdmin {
		t.Error("is_admin: got true, want false")
	}
}

func TestAdminFlagRoundTrips(t *testing.T) {
	token, err := auth.GenerateToken("secret", uuid.New(), uuid.Nil, "ADMIN", true)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	claims, err := auth.ValidateToken("secret", token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if !claims.IsAdmin {
		t.Error("is_admin: got false, want true")
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", uuid.New(), uuid.New(), "CASHIER", false)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}
