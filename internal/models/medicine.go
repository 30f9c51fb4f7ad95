package models

import "time"

// MedicineCategory enum
type MedicineCategory string

const (
	CategoryAntibiotic   MedicineCategory = "antibiotic"
	CategoryPainkiller   MedicineCategory = "painkiller"
	CategoryVitamin      MedicineCategory = "vitamin"
	CategorySupplement   MedicineCategory = "supplement"
	CategoryPrescription MedicineCategory = "prescription"
	CategoryOTC          MedicineCategory = "otc"
	CategoryOther        MedicineCategory = "other"
)

// Medicine represents a pharmacy stock item
type Medicine struct {
	BaseModel
	Name                 string           `gorm:"size:200;not null;index" json:"name"`
	GenericName          string           `gorm:"size:200" json:"genericName,omitempty"`
	Manufacturer         string           `gorm:"size:200" json:"manufacturer,omitempty"`
	Category             MedicineCategory `gorm:"size:30;default:'other';index" json:"category"`
	Description          string           `gorm:"type:text" json:"description,omitempty"`
	Price                float64          `gorm:"not null" json:"price"`
	Stock                int              `gorm:"not null;default:0" json:"stock"`
	RequiresPrescription bool             `gorm:"default:false" json:"requiresPrescription"`
	DosageForm           string           `gorm:"size:30;default:'tablet'" json:"dosageForm"`
	Strength             string           `gorm:"size:50" json:"strength,omitempty"`
	ImageURL             string           `gorm:"size:255" json:"imageUrl,omitempty"`
	ExpiryDate           *time.Time       `json:"expiryDate,omitempty"`
}
