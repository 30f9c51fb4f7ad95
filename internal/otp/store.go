// Package otp keeps single-use password-reset codes in redis so they
// expire on their own and survive process restarts.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCodeExpired means no code is stored for the email (never issued,
	// expired, or already consumed).
	ErrCodeExpired = errors.New("OTP not found or expired")
	// ErrCodeMismatch means the supplied code is wrong.
	ErrCodeMismatch = errors.New("invalid OTP")
	// ErrNotVerified means the email has no valid verification on record.
	ErrNotVerified = errors.New("OTP has not been verified")
)

const codeLength = 6

// Store issues and verifies one-time codes keyed by email.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore creates a Store with the given code lifetime.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func codeKey(email string) string     { return "otp:code:" + email }
func verifiedKey(email string) string { return "otp:verified:" + email }

// GenerateCode returns a random 6-digit code.
func GenerateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < codeLength; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeLength, n), nil
}

// Issue generates a fresh code for the email, replacing any previous one,
// and stores it with the configured TTL.
func (s *Store) Issue(ctx context.Context, email string) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}
	if err := s.client.Set(ctx, codeKey(email), code, s.ttl).Err(); err != nil {
		return "", err
	}
	// A reissue invalidates any verification from the previous code.
	if err := s.client.Del(ctx, verifiedKey(email)).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks the code for the email. On success the code is consumed
// and a short-lived verified marker is left so the password reset can
// follow; a code can only be verified once.
func (s *Store) Verify(ctx context.Context, email, code string) error {
	stored, err := s.client.Get(ctx, codeKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrCodeExpired
	}
	if err != nil {
		return err
	}
	if stored != code {
		return ErrCodeMismatch
	}
	if err := s.client.Del(ctx, codeKey(email)).Err(); err != nil {
		return err
	}
	return s.client.Set(ctx, verifiedKey(email), "1", s.ttl).Err()
}

// ConsumeVerified clears the verified marker, failing if the email was
// never verified or the marker expired. It guards the password reset.
func (s *Store) ConsumeVerified(ctx context.Context, email string) error {
	deleted, err := s.client.Del(ctx, verifiedKey(email)).Result()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrNotVerified
	}
	return nil
}

// InitRedis connects to redis, retrying a few times before giving up.
func InitRedis(addr, password string, db int) (*redis.Client, error) {
	var client *redis.Client
	var err error
	for attempt := 1; attempt <= 5; attempt++ {
		client = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		})
		if err = client.Ping(context.Background()).Err(); err == nil {
			return client, nil
		}
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to redis after retries: %w", err)
}
