// Package store backs the booking and pharmacy services with gorm.
// Single-row conditional updates carry the atomicity the services rely
// on; transient failures are retried a bounded number of times before
// being surfaced.
package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mediconnect-server/internal/booking"
	"mediconnect-server/internal/models"
	"mediconnect-server/internal/pharmacy"
)

const (
	maxAttempts = 3
	retryDelay  = 100 * time.Millisecond
)

// DB implements booking.Store and pharmacy.Store over a gorm connection.
type DB struct {
	db *gorm.DB
}

// New wraps a gorm connection.
func New(db *gorm.DB) *DB {
	return &DB{db: db}
}

// mysql server errors that clear up on retry: lock wait timeout,
// deadlock, server gone away, lost connection during query.
var transientMySQLErrors = map[uint16]bool{
	1205: true,
	1213: true,
	2006: true,
	2013: true,
}

// retryable reports whether an error is a transient connection or
// contention failure worth retrying. Anything the database decided
// (not found, duplicate key, constraint violations, bad data) is
// permanent and surfaces immediately.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return transientMySQLErrors[mysqlErr.Number]
	}
	return false
}

func (s *DB) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op()
		if !retryable(err) {
			return err
		}
		if attempt < maxAttempts {
			logrus.WithError(err).WithField("attempt", attempt).Warn("store operation failed, retrying")
			select {
			case <-time.After(time.Duration(attempt) * retryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return err
}

// ActiveSlotExists reports whether a non-cancelled appointment holds the
// given (doctor, date, start) slot.
func (s *DB) ActiveSlotExists(ctx context.Context, doctorID string, date time.Time, startTime string) (bool, error) {
	var count int64
	err := s.withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Model(&models.Appointment{}).
			Where("doctor_id = ? AND appointment_date = ? AND slot_start_time = ? AND status <> ?",
				doctorID, date, startTime, models.AppointmentCancelled).
			Count(&count).Error
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateAppointment persists a new appointment. A duplicate active slot
// key is reported as booking.ErrSlotTaken.
func (s *DB) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	err := s.withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Create(appt).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return booking.ErrSlotTaken
	}
	return err
}

// GetAppointment returns the appointment, or (nil, nil) when absent.
func (s *DB) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.withRetry(ctx, func() error {
		return s.db.WithContext(ctx).First(&appt, "id = ?", id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

// SaveAppointment writes back every field, including a cleared slot key.
func (s *DB) SaveAppointment(ctx context.Context, appt *models.Appointment) error {
	return s.withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Save(appt).Error
	})
}

// GetMedicine returns the medicine, or (nil, nil) when absent.
func (s *DB) GetMedicine(ctx context.Context, id string) (*models.Medicine, error) {
	var medicine models.Medicine
	err := s.withRetry(ctx, func() error {
		return s.db.WithContext(ctx).First(&medicine, "id = ?", id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &medicine, nil
}

// CreateOrder persists the order and its items in one insert graph.
func (s *DB) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Create(order).Error
	})
}

// GetOrder returns the order with its items, or (nil, nil) when absent.
func (s *DB) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// TransitionOrder flips the status only if the order still has the
// expected one, recording the actor when the order becomes verified.
func (s *DB) TransitionOrder(ctx context.Context, id string, from, to models.OrderStatus, actorID string) (bool, error) {
	updates := map[string]interface{}{"status": to}
	if to == models.OrderVerified {
		updates["verified_by"] = actorID
	}
	var affected int64
	err := s.withRetry(ctx, func() error {
		res := s.db.WithContext(ctx).Model(&models.Order{}).
			Where("id = ? AND status = ?", id, from).
			Updates(updates)
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// DebitStock decrements stock by qty only if enough remains. The single
// conditional UPDATE is what keeps stock from ever going negative under
// concurrent debits.
func (s *DB) DebitStock(ctx context.Context, medicineID string, qty int) (bool, error) {
	var affected int64
	err := s.withRetry(ctx, func() error {
		res := s.db.WithContext(ctx).Model(&models.Medicine{}).
			Where("id = ? AND stock >= ?", medicineID, qty).
			UpdateColumn("stock", gorm.Expr("stock - ?", qty))
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// InTx runs fn inside a database transaction; any error rolls back
// everything fn did through the passed store.
func (s *DB) InTx(ctx context.Context, fn func(tx pharmacy.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DB{db: tx})
	})
}
