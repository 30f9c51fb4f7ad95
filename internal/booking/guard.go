package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"mediconnect-server/internal/models"
)

var (
	// ErrSlotTaken means a non-cancelled appointment already holds the slot.
	ErrSlotTaken = errors.New("time slot is already booked")
	// ErrNotFound means the appointment does not exist.
	ErrNotFound = errors.New("appointment not found")
	// ErrNotAllowed means the requester is neither the patient nor the doctor.
	ErrNotAllowed = errors.New("not allowed to modify this appointment")
	// ErrInvalidSlot means the requested slot fails basic validation.
	ErrInvalidSlot = errors.New("invalid time slot")
	// ErrPastDate means the requested date is in the past.
	ErrPastDate = errors.New("appointment date cannot be in the past")
)

// Store is the record-store surface the guard needs. Lookups return
// (nil, nil) when the record is absent. CreateAppointment must return
// ErrSlotTaken if the store rejects a duplicate active slot key.
type Store interface {
	ActiveSlotExists(ctx context.Context, doctorID string, date time.Time, startTime string) (bool, error)
	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	SaveAppointment(ctx context.Context, appt *models.Appointment) error
}

// ReserveRequest carries everything needed to book a slot.
type ReserveRequest struct {
	PatientID        string
	DoctorID         string
	Date             time.Time
	StartTime        string // "15:04"
	EndTime          string // "15:04"
	Symptoms         string
	ConsultationType models.ConsultationType
}

// Guard serializes slot booking so that concurrent requests for the same
// (doctor, date, start) cannot both pass the existence check. The check
// and the insert run under a per-slot mutex; the unique slot_key column
// backstops deployments with more than one process.
type Guard struct {
	store Store
	now   func() time.Time

	// slots maps slot key -> *sync.Mutex. Entries are never reclaimed:
	// one small mutex stays behind per distinct slot ever requested,
	// which is bounded by doctors x working slots per day in practice.
	slots sync.Map
}

// NewGuard creates a Guard on top of the given store.
func NewGuard(store Store) *Guard {
	return &Guard{store: store, now: time.Now}
}

func (g *Guard) lockSlot(key string) *sync.Mutex {
	mu, _ := g.slots.LoadOrStore(key, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m
}

// Reserve books the requested slot, failing with ErrSlotTaken if a
// non-cancelled appointment already holds it.
func (g *Guard) Reserve(ctx context.Context, req ReserveRequest) (*models.Appointment, error) {
	start, err := time.Parse("15:04", req.StartTime)
	if err != nil {
		return nil, ErrInvalidSlot
	}
	end, err := time.Parse("15:04", req.EndTime)
	if err != nil {
		return nil, ErrInvalidSlot
	}
	if !start.Before(end) {
		return nil, ErrInvalidSlot
	}

	date := dayOf(req.Date)
	if date.Before(dayOf(g.now())) {
		return nil, ErrPastDate
	}

	key := models.SlotKeyFor(req.DoctorID, date, req.StartTime)
	mu := g.lockSlot(key)
	defer mu.Unlock()

	exists, err := g.store.ActiveSlotExists(ctx, req.DoctorID, date, req.StartTime)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrSlotTaken
	}

	slotKey := key
	appt := &models.Appointment{
		PatientID:        req.PatientID,
		DoctorID:         req.DoctorID,
		AppointmentDate:  date,
		TimeSlot:         models.TimeSlot{StartTime: req.StartTime, EndTime: req.EndTime},
		SlotKey:          &slotKey,
		Status:           models.AppointmentScheduled,
		ConsultationType: req.ConsultationType,
		Symptoms:         req.Symptoms,
	}
	if appt.ConsultationType == "" {
		appt.ConsultationType = models.ConsultationInPerson
	}

	if err := g.store.CreateAppointment(ctx, appt); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"appointment": appt.ID,
		"doctor":      req.DoctorID,
		"slot":        key,
	}).Info("slot reserved")
	return appt, nil
}

// Cancel sets the appointment to cancelled and frees its slot. Only the
// patient or the doctor on the appointment may cancel it. Cancelling an
// already-cancelled appointment is a no-op.
func (g *Guard) Cancel(ctx context.Context, appointmentID, requesterID string) (*models.Appointment, error) {
	appt, err := g.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, ErrNotFound
	}
	if requesterID != appt.PatientID && requesterID != appt.DoctorID {
		return nil, ErrNotAllowed
	}
	if appt.Status == models.AppointmentCancelled {
		return appt, nil
	}

	key := models.SlotKeyFor(appt.DoctorID, appt.AppointmentDate, appt.TimeSlot.StartTime)
	mu := g.lockSlot(key)
	defer mu.Unlock()

	appt.Status = models.AppointmentCancelled
	appt.SlotKey = nil
	if err := g.store.SaveAppointment(ctx, appt); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"appointment": appt.ID,
		"slot":        key,
	}).Info("appointment cancelled")
	return appt, nil
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
