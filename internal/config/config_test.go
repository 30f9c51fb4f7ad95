package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, 168, cfg.JWTExpirationHours)
	assert.Equal(t, 5, cfg.OTPTTLMinutes)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Contains(t, cfg.Database.DSN, "tcp(localhost:3306)/mediconnect")
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_NAME", "medi_test")
	t.Setenv("OTP_TTL_MINUTES", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.OTPTTLMinutes)
	assert.Contains(t, cfg.Database.DSN, "tcp(db.internal:3306)/medi_test")
}

func TestLoadConfigInvalidNumbers(t *testing.T) {
	t.Setenv("JWT_EXPIRATION_HOURS", "soon")
	_, err := LoadConfig()
	assert.Error(t, err)
}
