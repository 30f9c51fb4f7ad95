package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for our application
type Config struct {
	Port               string
	Origin             string
	Environment        string
	JWTSecret          string
	JWTExpirationHours int
	OTPTTLMinutes      int
	Database           DatabaseConfig
	Redis              RedisConfig
	SMTP               SMTPConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// RedisConfig holds redis connection details
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SMTPConfig holds email service configuration
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load database configuration
	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "3306"),
		Username: getEnv("DB_USERNAME", "root"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "mediconnect"),
	}

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	redisConfig := RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	smtpConfig := SMTPConfig{
		Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
		Port:     smtpPort,
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", "no-reply@mediconnect.local"),
	}

	jwtExpHours, err := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "168")) // 7 days
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION_HOURS: %w", err)
	}

	otpTTLMinutes, err := strconv.Atoi(getEnv("OTP_TTL_MINUTES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid OTP_TTL_MINUTES: %w", err)
	}

	// Return complete configuration
	return &Config{
		Port:               getEnv("PORT", "5000"),
		Origin:             getEnv("ORIGIN", "http://localhost:4200"),
		Environment:        getEnv("APP_ENV", "development"),
		JWTSecret:          getEnv("JWT_SECRET", "default_jwt_secret"),
		JWTExpirationHours: jwtExpHours,
		OTPTTLMinutes:      otpTTLMinutes,
		Database:           dbConfig,
		Redis:              redisConfig,
		SMTP:               smtpConfig,
	}, nil
}

// Helper function to get environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
