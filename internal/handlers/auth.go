package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mediconnect-server/internal/config"
	"mediconnect-server/internal/models"
	"mediconnect-server/internal/notify"
	"mediconnect-server/internal/otp"
	"mediconnect-server/internal/utils"
)

// AuthHandler handles registration, login and the OTP password-reset flow.
type AuthHandler struct {
	DB     *gorm.DB
	Cfg    *config.Config
	OTP    *otp.Store
	Mailer *notify.Mailer
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, otpStore *otp.Store, mailer *notify.Mailer) *AuthHandler {
	return &AuthHandler{DB: db, Cfg: cfg, OTP: otpStore, Mailer: mailer}
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Name        string      `json:"name"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Email       string      `json:"email" binding:"required,email"`
	Password    string      `json:"password" binding:"required,min=6"`
	Role        models.Role `json:"role" binding:"omitempty,oneof=patient doctor pharmacist admin"`
	PhoneNumber string      `json:"phoneNumber"`

	// Patient fields
	DateOfBirth        *time.Time    `json:"dateOfBirth"`
	Gender             models.Gender `json:"gender" binding:"omitempty,oneof=male female other"`
	Address            string        `json:"address"`
	InsuranceProvider  string        `json:"insuranceProvider"`
	Allergies          string        `json:"allergies"`
	CurrentMedications string        `json:"currentMedications"`
	MedicalHistory     string        `json:"medicalHistory"`

	// Doctor fields
	Specialization  string  `json:"specialization"`
	Qualifications  string  `json:"qualifications"`
	Experience      int     `json:"experience"`
	ConsultationFee float64 `json:"consultationFee"`
}

// authResponse is the payload returned after register/login.
type authResponse struct {
	Token string               `json:"token"`
	User  models.UserSanitized `json:"user"`
}

// Register creates a new user account and issues a token.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var existing models.User
	err := h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		utils.BadRequest(c, "User already exists with this email")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	name := req.Name
	if req.FirstName != "" && req.LastName != "" {
		name = req.FirstName + " " + req.LastName
	}

	role := req.Role
	if role == "" {
		role = models.RolePatient
	}

	user := models.User{
		Email:              req.Email,
		Name:               name,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		Role:               role,
		PhoneNumber:        req.PhoneNumber,
		DateOfBirth:        req.DateOfBirth,
		Gender:             req.Gender,
		Address:            req.Address,
		InsuranceProvider:  req.InsuranceProvider,
		Allergies:          req.Allergies,
		CurrentMedications: req.CurrentMedications,
		MedicalHistory:     req.MedicalHistory,
	}
	if role == models.RoleDoctor {
		user.Specialization = req.Specialization
		user.Qualifications = req.Qualifications
		user.Experience = req.Experience
		user.ConsultationFee = req.ConsultationFee
	}
	if err := user.SetPassword(req.Password); err != nil {
		utils.InternalServerError(c, "Failed to hash password")
		return
	}

	if err := h.DB.Create(&user).Error; err != nil {
		// Two concurrent registrations can both pass the lookup above;
		// the unique email index decides, so report it as the same 400.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			utils.BadRequest(c, "User already exists with this email")
			return
		}
		utils.InternalServerError(c, "Failed to register user: "+err.Error())
		return
	}

	token, err := utils.GenerateToken(&user, h.Cfg)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate token")
		return
	}

	utils.Created(c, "User registered successfully", authResponse{Token: token, User: user.Sanitize()})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates a user and issues a token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		utils.BadRequest(c, "Invalid credentials")
		return
	}
	if !user.CheckPassword(req.Password) {
		utils.BadRequest(c, "Invalid credentials")
		return
	}

	token, err := utils.GenerateToken(&user, h.Cfg)
	if err != nil {
		utils.InternalServerError(c, "Failed to generate token")
		return
	}

	utils.Success(c, "Login successful", authResponse{Token: token, User: user.Sanitize()})
}

// ForgotPasswordRequest represents the request body for requesting an OTP.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPassword issues an OTP and emails it to the account owner.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "No account found with this email")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	code, err := h.OTP.Issue(c.Request.Context(), user.Email)
	if err != nil {
		utils.InternalServerError(c, "Failed to issue OTP: "+err.Error())
		return
	}

	// Delivery is fire-and-forget; the OTP state in redis is what counts.
	go func(email, name, code string) {
		if err := h.Mailer.SendOTP(email, name, code, h.Cfg.OTPTTLMinutes); err != nil {
			logrus.WithError(err).WithField("email", email).Error("failed to send OTP email")
		}
	}(user.Email, user.Name, code)

	utils.Success(c, "OTP sent successfully to your email", gin.H{"email": user.Email})
}

// VerifyOTPRequest represents the request body for verifying an OTP.
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required,len=6"`
}

// VerifyOTP checks the code; a correct code can only be used once.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if err := h.OTP.Verify(c.Request.Context(), req.Email, req.OTP); err != nil {
		switch {
		case errors.Is(err, otp.ErrCodeExpired), errors.Is(err, otp.ErrCodeMismatch):
			utils.BadRequest(c, err.Error())
		default:
			utils.InternalServerError(c, "Failed to verify OTP: "+err.Error())
		}
		return
	}

	utils.Success(c, "OTP verified successfully", gin.H{"verified": true})
}

// ResetPasswordRequest represents the request body for resetting a password.
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

// ResetPassword sets a new password for an email with a verified OTP.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if err := h.OTP.ConsumeVerified(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, otp.ErrNotVerified) {
			utils.BadRequest(c, "Please verify OTP first")
		} else {
			utils.InternalServerError(c, "Failed to check OTP state: "+err.Error())
		}
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := user.SetPassword(req.NewPassword); err != nil {
		utils.InternalServerError(c, "Failed to hash password")
		return
	}
	if err := h.DB.Save(&user).Error; err != nil {
		utils.InternalServerError(c, "Failed to reset password: "+err.Error())
		return
	}

	utils.Success(c, "Password reset successfully", gin.H{"success": true})
}
