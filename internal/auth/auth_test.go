package auth

import (
	"testing"

	"franchise-billing/internal/config"
	"franchise-billing/internal/models"
)

func testConfig(secret string) *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = secret
	cfg.JWT.ExpirationHours = 1
	cfg.JWT.Issuer = "franchise-billing"
	return cfg
}

func TestTokenRoundTrip(t *testing.T) {
	fid := int64(7)
	m := NewJWTManager(testConfig("s3cret"))

	token, err := m.GenerateToken(&models.User{ID: 42, Username: "dip", Role: models.RoleFranchisee, FranchiseID: &fid})
	if err != nil {
		t.Fatal(err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 42 || claims.Role != models.RoleFranchisee {
		t.Errorf("claims = %+v", claims)
	}
	if claims.FranchiseID == nil || *claims.FranchiseID != 7 {
		t.Errorf("franchise id = %v, want 7", claims.FranchiseID)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewJWTManager(testConfig("one")).GenerateToken(&models.User{ID: 1, Role: models.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewJWTManager(testConfig("two")).ValidateToken(token); err == nil {
		t.Error("expected error for token signed with another secret")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(hash, "secret1") {
		t.Error("correct password rejected")
	}
	if VerifyPassword(hash, "secret2") {
		t.Error("wrong password accepted")
	}
}
