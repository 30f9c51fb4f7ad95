package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mediconnect-server/internal/booking"
	"mediconnect-server/internal/middleware"
	"mediconnect-server/internal/models"
	"mediconnect-server/internal/utils"
)

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	DB    *gorm.DB
	Guard *booking.Guard
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, guard *booking.Guard) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Guard: guard}
}

// CreateAppointmentRequest represents the request body for booking a slot.
type CreateAppointmentRequest struct {
	DoctorID         string                  `json:"doctorId" binding:"required,uuid"`
	AppointmentDate  time.Time               `json:"appointmentDate" binding:"required"`
	TimeSlot         models.TimeSlot         `json:"timeSlot" binding:"required"`
	Symptoms         string                  `json:"symptoms"`
	ConsultationType models.ConsultationType `json:"consultationType" binding:"omitempty,oneof=in-person online"`
}

// CreateAppointment books a slot for the authenticated patient.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "Patient ID not found in token")
		return
	}

	// Verify doctor exists and is a doctor
	var doctor models.User
	if err := h.DB.Where("id = ? AND role = ?", req.DoctorID, models.RoleDoctor).First(&doctor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found or user is not a doctor")
		} else {
			utils.InternalServerError(c, "Database error verifying doctor: "+err.Error())
		}
		return
	}

	appointment, err := h.Guard.Reserve(c.Request.Context(), booking.ReserveRequest{
		PatientID:        patientID,
		DoctorID:         req.DoctorID,
		Date:             req.AppointmentDate,
		StartTime:        req.TimeSlot.StartTime,
		EndTime:          req.TimeSlot.EndTime,
		Symptoms:         req.Symptoms,
		ConsultationType: req.ConsultationType,
	})
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrSlotTaken):
			utils.BadRequest(c, "This time slot is already booked")
		case errors.Is(err, booking.ErrInvalidSlot):
			utils.BadRequest(c, "Invalid time slot: start time must be before end time (15:04 format)")
		case errors.Is(err, booking.ErrPastDate):
			utils.BadRequest(c, "Appointment date cannot be in the past")
		default:
			utils.InternalServerError(c, "Failed to create appointment: "+err.Error())
		}
		return
	}

	utils.Created(c, "Appointment booked successfully", appointment)
}

// GetMyAppointments fetches appointments for the logged-in user.
// Patients see theirs, doctors see theirs, admins see everything.
func (h *AppointmentHandler) GetMyAppointments(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Preload("Patient").Preload("Doctor").Order("appointment_date desc")

	var appointments []models.Appointment
	var err error
	switch userRole {
	case models.RolePatient:
		err = query.Where("patient_id = ?", userID).Find(&appointments).Error
	case models.RoleDoctor:
		err = query.Where("doctor_id = ?", userID).Find(&appointments).Error
	case models.RoleAdmin:
		err = query.Find(&appointments).Error
	default:
		utils.Forbidden(c, "User role not permitted to view appointments")
		return
	}
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID fetches a single appointment. Accessible by the
// involved patient, the involved doctor, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	var appointment models.Appointment
	err := h.DB.Preload("Patient").Preload("Doctor").First(&appointment, "id = ?", c.Param("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != appointment.PatientID && userID != appointment.DoctorID {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateAppointmentRequest represents the request body for clinical updates.
type UpdateAppointmentRequest struct {
	Status       models.AppointmentStatus `json:"status" binding:"omitempty,oneof=scheduled completed no-show"`
	Diagnosis    string                   `json:"diagnosis"`
	Prescription string                   `json:"prescription"`
	Notes        string                   `json:"notes"`
}

// UpdateAppointment lets the doctor on the appointment (or an admin) set
// status and clinical fields. Cancellation goes through CancelAppointment
// so the slot is freed correctly.
func (h *AppointmentHandler) UpdateAppointment(c *gin.Context) {
	var req UpdateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	isDoctorInvolved := userRole == models.RoleDoctor && userID == appointment.DoctorID
	if !isDoctorInvolved && userRole != models.RoleAdmin {
		utils.Forbidden(c, "You are not authorized to update this appointment")
		return
	}

	if appointment.Status == models.AppointmentCancelled {
		utils.BadRequest(c, "Cancelled appointments cannot be updated")
		return
	}

	if req.Status != "" {
		appointment.Status = req.Status
	}
	if req.Diagnosis != "" {
		appointment.Diagnosis = req.Diagnosis
	}
	if req.Prescription != "" {
		appointment.Prescription = req.Prescription
	}
	if req.Notes != "" {
		appointment.Notes = req.Notes
	}

	if err := h.DB.Save(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to update appointment: "+err.Error())
		return
	}
	utils.Success(c, "Appointment updated successfully", appointment)
}

// CancelAppointment cancels an appointment, freeing its slot. Only the
// patient or the doctor on the appointment may cancel.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appointment, err := h.Guard.Cancel(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrNotFound):
			utils.NotFound(c, "Appointment not found")
		case errors.Is(err, booking.ErrNotAllowed):
			utils.Forbidden(c, "Only the patient or doctor on the appointment can cancel it")
		default:
			utils.InternalServerError(c, "Failed to cancel appointment: "+err.Error())
		}
		return
	}

	utils.Success(c, "Appointment cancelled successfully", appointment)
}
