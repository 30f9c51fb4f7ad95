package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediconnect-server/internal/config"
	"mediconnect-server/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{JWTSecret: "test-secret", JWTExpirationHours: 1}
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := testConfig()
	user := &models.User{Role: models.RolePharmacist}
	user.ID = "user-123"

	token, err := GenerateToken(user, cfg)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(token, cfg.JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
	assert.Equal(t, models.RolePharmacist, claims.Role)
	assert.Equal(t, "user-123", claims.Subject)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	cfg := testConfig()
	user := &models.User{Role: models.RolePatient}
	user.ID = "user-123"

	token, err := GenerateToken(user, cfg)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other-secret")
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := ValidateToken("not-a-token", "test-secret")
	assert.Error(t, err)
}
