package models

import (
	"fmt"
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentNoShow    AppointmentStatus = "no-show"
)

// ConsultationType represents how the appointment is held
type ConsultationType string

const (
	ConsultationInPerson ConsultationType = "in-person"
	ConsultationOnline   ConsultationType = "online"
)

// TimeSlot is a bookable window within a day, "15:04" formatted.
type TimeSlot struct {
	StartTime string `gorm:"size:5" json:"startTime"`
	EndTime   string `gorm:"size:5" json:"endTime"`
}

// Appointment represents a scheduled medical appointment.
//
// SlotKey holds "doctorID|date|startTime" while the appointment is active
// and is set to NULL on cancellation. The unique index on it makes the
// store reject a second active booking for the same slot; MySQL unique
// indexes ignore NULLs, so any number of cancelled rows can coexist.
type Appointment struct {
	BaseModel
	PatientID        string            `gorm:"size:36;index" json:"patientId"`
	DoctorID         string            `gorm:"size:36;index" json:"doctorId"`
	AppointmentDate  time.Time         `gorm:"index" json:"appointmentDate"`
	TimeSlot         TimeSlot          `gorm:"embedded;embeddedPrefix:slot_" json:"timeSlot"`
	SlotKey          *string           `gorm:"size:64;uniqueIndex" json:"-"`
	Status           AppointmentStatus `gorm:"size:20;default:'scheduled'" json:"status"`
	ConsultationType ConsultationType  `gorm:"size:20;default:'in-person'" json:"consultationType"`
	Symptoms         string            `gorm:"type:text" json:"symptoms,omitempty"`
	Diagnosis        string            `gorm:"type:text" json:"diagnosis,omitempty"`
	Prescription     string            `gorm:"type:text" json:"prescription,omitempty"`
	Notes            string            `gorm:"type:text" json:"notes,omitempty"`

	// Relations
	Patient User `gorm:"foreignKey:PatientID" json:"-"`
	Doctor  User `gorm:"foreignKey:DoctorID" json:"-"`
}

// SlotKeyFor builds the uniqueness key for an active booking.
func SlotKeyFor(doctorID string, date time.Time, startTime string) string {
	return fmt.Sprintf("%s|%s|%s", doctorID, date.Format("2006-01-02"), startTime)
}
