package store

import (
	"context"
	"database/sql/driver"
	"io"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRetryableClassification(t *testing.T) {
	// Connection and contention failures are worth another attempt
	assert.True(t, retryable(driver.ErrBadConn))
	assert.True(t, retryable(mysql.ErrInvalidConn))
	assert.True(t, retryable(io.EOF))
	assert.True(t, retryable(&mysql.MySQLError{Number: 1205, Message: "Lock wait timeout exceeded"}))
	assert.True(t, retryable(&mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}))
	assert.True(t, retryable(&mysql.MySQLError{Number: 2013, Message: "Lost connection to MySQL server during query"}))

	// Anything the database decided is permanent
	assert.False(t, retryable(nil))
	assert.False(t, retryable(gorm.ErrRecordNotFound))
	assert.False(t, retryable(gorm.ErrDuplicatedKey))
	assert.False(t, retryable(context.Canceled))
	assert.False(t, retryable(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, retryable(&mysql.MySQLError{Number: 1406, Message: "Data too long for column"}))
	assert.False(t, retryable(&mysql.MySQLError{Number: 1064, Message: "You have an error in your SQL syntax"}))
}

func TestWithRetryExhaustsAttemptsThenSurfaces(t *testing.T) {
	s := New(nil)

	calls := 0
	err := s.withRetry(context.Background(), func() error {
		calls++
		return driver.ErrBadConn
	})

	require.ErrorIs(t, err, driver.ErrBadConn)
	assert.Equal(t, maxAttempts, calls)
}

func TestWithRetryRecoversFromTransientFailure(t *testing.T) {
	s := New(nil)

	calls := 0
	err := s.withRetry(context.Background(), func() error {
		calls++
		if calls == 1 {
			return &mysql.MySQLError{Number: 1213, Message: "Deadlock found when trying to get lock"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestWithRetryNeverRetriesPermanentErrors(t *testing.T) {
	s := New(nil)

	for _, permanent := range []error{
		gorm.ErrRecordNotFound,
		gorm.ErrDuplicatedKey,
		&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"},
	} {
		calls := 0
		err := s.withRetry(context.Background(), func() error {
			calls++
			return permanent
		})
		require.ErrorIs(t, err, permanent)
		assert.Equal(t, 1, calls, "permanent error %v must surface on the first attempt", permanent)
	}
}

func TestWithRetryStopsWhenContextCancelled(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := s.withRetry(ctx, func() error {
		calls++
		cancel()
		return io.EOF
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
