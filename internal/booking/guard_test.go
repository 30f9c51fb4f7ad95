package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediconnect-server/internal/models"
)

// fakeStore is an in-memory record store. Each method is atomic on its
// own, but nothing makes a check-then-insert sequence atomic: that is
// the guard's job. The unique slot key check in CreateAppointment mirrors
// the database index.
type fakeStore struct {
	mu           sync.Mutex
	appointments map[string]*models.Appointment
}

func newFakeStore() *fakeStore {
	return &fakeStore{appointments: make(map[string]*models.Appointment)}
}

func (f *fakeStore) ActiveSlotExists(ctx context.Context, doctorID string, date time.Time, startTime string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appointments {
		if a.DoctorID == doctorID && a.AppointmentDate.Equal(date) &&
			a.TimeSlot.StartTime == startTime && a.Status != models.AppointmentCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if appt.SlotKey != nil {
		for _, a := range f.appointments {
			if a.SlotKey != nil && *a.SlotKey == *appt.SlotKey {
				return ErrSlotTaken
			}
		}
	}
	appt.ID = uuid.New().String()
	stored := *appt
	f.appointments[appt.ID] = &stored
	return nil
}

func (f *fakeStore) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (f *fakeStore) SaveAppointment(ctx context.Context, appt *models.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *appt
	f.appointments[appt.ID] = &stored
	return nil
}

func futureDate() time.Time {
	return time.Now().UTC().AddDate(0, 0, 7)
}

func reserveReq(patientID, doctorID string) ReserveRequest {
	return ReserveRequest{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      futureDate(),
		StartTime: "10:00",
		EndTime:   "10:30",
		Symptoms:  "headache",
	}
}

func TestReserve(t *testing.T) {
	guard := NewGuard(newFakeStore())

	appt, err := guard.Reserve(context.Background(), reserveReq("p1", "dr-a"))
	require.NoError(t, err)
	require.NotNil(t, appt)
	assert.Equal(t, models.AppointmentScheduled, appt.Status)
	assert.Equal(t, models.ConsultationInPerson, appt.ConsultationType)
	require.NotNil(t, appt.SlotKey)
	assert.Contains(t, *appt.SlotKey, "dr-a|")
	assert.Contains(t, *appt.SlotKey, "|10:00")
}

func TestReserveConflict(t *testing.T) {
	guard := NewGuard(newFakeStore())

	_, err := guard.Reserve(context.Background(), reserveReq("p1", "dr-a"))
	require.NoError(t, err)

	_, err = guard.Reserve(context.Background(), reserveReq("p2", "dr-a"))
	assert.ErrorIs(t, err, ErrSlotTaken)

	// A different doctor or a different start time is unaffected
	_, err = guard.Reserve(context.Background(), reserveReq("p2", "dr-b"))
	assert.NoError(t, err)

	other := reserveReq("p2", "dr-a")
	other.StartTime = "10:30"
	other.EndTime = "11:00"
	_, err = guard.Reserve(context.Background(), other)
	assert.NoError(t, err)
}

func TestReserveConcurrentSingleWinner(t *testing.T) {
	guard := NewGuard(newFakeStore())

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := guard.Reserve(context.Background(), reserveReq(uuid.New().String(), "dr-a"))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case err == ErrSlotTaken:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, conflicts)
}

func TestCancelFreesSlot(t *testing.T) {
	guard := NewGuard(newFakeStore())
	ctx := context.Background()

	appt, err := guard.Reserve(ctx, reserveReq("p1", "dr-a"))
	require.NoError(t, err)

	_, err = guard.Reserve(ctx, reserveReq("p2", "dr-a"))
	require.ErrorIs(t, err, ErrSlotTaken)

	cancelled, err := guard.Cancel(ctx, appt.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCancelled, cancelled.Status)
	assert.Nil(t, cancelled.SlotKey)

	// The freed slot is bookable again
	rebooked, err := guard.Reserve(ctx, reserveReq("p2", "dr-a"))
	require.NoError(t, err)
	assert.Equal(t, "p2", rebooked.PatientID)
}

func TestCancelAuthorization(t *testing.T) {
	guard := NewGuard(newFakeStore())
	ctx := context.Background()

	appt, err := guard.Reserve(ctx, reserveReq("p1", "dr-a"))
	require.NoError(t, err)

	_, err = guard.Cancel(ctx, appt.ID, "someone-else")
	assert.ErrorIs(t, err, ErrNotAllowed)

	// The doctor on the appointment may cancel
	_, err = guard.Cancel(ctx, appt.ID, "dr-a")
	assert.NoError(t, err)
}

func TestCancelIdempotent(t *testing.T) {
	guard := NewGuard(newFakeStore())
	ctx := context.Background()

	appt, err := guard.Reserve(ctx, reserveReq("p1", "dr-a"))
	require.NoError(t, err)

	_, err = guard.Cancel(ctx, appt.ID, "p1")
	require.NoError(t, err)

	again, err := guard.Cancel(ctx, appt.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentCancelled, again.Status)
}

func TestCancelNotFound(t *testing.T) {
	guard := NewGuard(newFakeStore())
	_, err := guard.Cancel(context.Background(), "missing", "p1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReserveValidation(t *testing.T) {
	guard := NewGuard(newFakeStore())
	ctx := context.Background()

	req := reserveReq("p1", "dr-a")
	req.StartTime = "10:30"
	req.EndTime = "10:00"
	_, err := guard.Reserve(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidSlot)

	req = reserveReq("p1", "dr-a")
	req.StartTime = "10:00"
	req.EndTime = "10:00"
	_, err = guard.Reserve(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidSlot)

	req = reserveReq("p1", "dr-a")
	req.StartTime = "not-a-time"
	_, err = guard.Reserve(ctx, req)
	assert.ErrorIs(t, err, ErrInvalidSlot)

	req = reserveReq("p1", "dr-a")
	req.Date = time.Now().UTC().AddDate(0, 0, -1)
	_, err = guard.Reserve(ctx, req)
	assert.ErrorIs(t, err, ErrPastDate)
}
