package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"mediconnect-server/internal/middleware"
	"mediconnect-server/internal/models"
	"mediconnect-server/internal/utils"
)

// DoctorHandler handles doctor directory requests.
type DoctorHandler struct {
	DB *gorm.DB
}

// NewDoctorHandler creates a new DoctorHandler.
func NewDoctorHandler(db *gorm.DB) *DoctorHandler {
	return &DoctorHandler{DB: db}
}

// GetDoctors lists doctors, optionally filtered by specialization or name.
func (h *DoctorHandler) GetDoctors(c *gin.Context) {
	query := h.DB.Where("role = ?", models.RoleDoctor)

	if specialization := c.Query("specialization"); specialization != "" {
		query = query.Where("specialization LIKE ?", "%"+specialization+"%")
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var doctors []models.User
	if err := query.Order("name asc").Find(&doctors).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch doctors: "+err.Error())
		return
	}

	sanitized := make([]models.UserSanitized, 0, len(doctors))
	for i := range doctors {
		sanitized = append(sanitized, doctors[i].Sanitize())
	}
	utils.Success(c, "Doctors fetched successfully", sanitized)
}

// GetDoctorByID fetches a single doctor profile.
func (h *DoctorHandler) GetDoctorByID(c *gin.Context) {
	var doctor models.User
	err := h.DB.Where("id = ? AND role = ?", c.Param("id"), models.RoleDoctor).First(&doctor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	utils.Success(c, "Doctor fetched successfully", doctor.Sanitize())
}

// UpdateDoctorRequest represents the request body for updating a doctor profile.
type UpdateDoctorRequest struct {
	Specialization  string  `json:"specialization"`
	Qualifications  string  `json:"qualifications"`
	Experience      int     `json:"experience"`
	ConsultationFee float64 `json:"consultationFee" binding:"omitempty,gte=0"`
}

// UpdateDoctor updates a doctor profile. Doctors can only update their
// own profile; admins can update any.
func (h *DoctorHandler) UpdateDoctor(c *gin.Context) {
	doctorID := c.Param("id")

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userID != doctorID && userRole != models.RoleAdmin {
		utils.Forbidden(c, "Unauthorized to update this profile")
		return
	}

	var req UpdateDoctorRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var doctor models.User
	err := h.DB.Where("id = ? AND role = ?", doctorID, models.RoleDoctor).First(&doctor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	doctor.Specialization = req.Specialization
	doctor.Qualifications = req.Qualifications
	doctor.Experience = req.Experience
	doctor.ConsultationFee = req.ConsultationFee

	if err := h.DB.Save(&doctor).Error; err != nil {
		utils.InternalServerError(c, "Failed to update doctor: "+err.Error())
		return
	}
	utils.Success(c, "Profile updated successfully", doctor.Sanitize())
}
