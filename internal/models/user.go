package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RolePatient    Role = "patient"
	RoleDoctor     Role = "doctor"
	RolePharmacist Role = "pharmacist"
	RoleAdmin      Role = "admin"
)

// Gender enum
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// User represents a user in the system. Doctor- and patient-specific
// fields live on the same table, mirroring the single users collection.
type User struct {
	BaseModel
	Email       string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password    string     `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	Name        string     `gorm:"size:200" json:"name"`
	FirstName   string     `gorm:"size:100" json:"firstName,omitempty"`
	LastName    string     `gorm:"size:100" json:"lastName,omitempty"`
	Role        Role       `gorm:"size:20;default:'patient';index" json:"role"`
	PhoneNumber string     `gorm:"size:30" json:"phoneNumber,omitempty"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	Gender      Gender     `gorm:"size:10" json:"gender,omitempty"`
	Address     string     `gorm:"size:255" json:"address,omitempty"`

	// Doctor-specific fields
	Specialization  string  `gorm:"size:100;index" json:"specialization,omitempty"`
	Qualifications  string  `gorm:"size:255" json:"qualifications,omitempty"`
	Experience      int     `json:"experience,omitempty"`
	ConsultationFee float64 `json:"consultationFee,omitempty"`

	// Patient-specific fields
	InsuranceProvider  string `gorm:"size:100" json:"insuranceProvider,omitempty"`
	Allergies          string `gorm:"type:text" json:"allergies,omitempty"`
	CurrentMedications string `gorm:"type:text" json:"currentMedications,omitempty"`
	MedicalHistory     string `gorm:"type:text" json:"medicalHistory,omitempty"`

	// Relations (not always preloaded)
	DoctorAppointments  []Appointment `gorm:"foreignKey:DoctorID" json:"-"`
	PatientAppointments []Appointment `gorm:"foreignKey:PatientID" json:"-"`
	Orders              []Order       `gorm:"foreignKey:PatientID" json:"-"`
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Name            string     `json:"name"`
	Role            Role       `json:"role"`
	PhoneNumber     string     `json:"phoneNumber,omitempty"`
	DateOfBirth     *time.Time `json:"dateOfBirth,omitempty"`
	Address         string     `json:"address,omitempty"`
	Specialization  string     `json:"specialization,omitempty"`
	Qualifications  string     `json:"qualifications,omitempty"`
	Experience      int        `json:"experience,omitempty"`
	ConsultationFee float64    `json:"consultationFee,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:              u.ID,
		Email:           u.Email,
		Name:            u.Name,
		Role:            u.Role,
		PhoneNumber:     u.PhoneNumber,
		DateOfBirth:     u.DateOfBirth,
		Address:         u.Address,
		Specialization:  u.Specialization,
		Qualifications:  u.Qualifications,
		Experience:      u.Experience,
		ConsultationFee: u.ConsultationFee,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
