package models

// OrderStatus represents the fulfillment state of an order
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderVerified   OrderStatus = "verified"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

// PaymentStatus enum
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// DeliveryAddress is embedded into orders
type DeliveryAddress struct {
	Street  string `gorm:"size:255" json:"street"`
	City    string `gorm:"size:100" json:"city"`
	State   string `gorm:"size:100" json:"state"`
	ZipCode string `gorm:"size:20" json:"zipCode"`
}

// OrderItem is one line of an order. Price is the unit price captured at
// order time; later medicine price changes never alter it.
type OrderItem struct {
	BaseModel
	OrderID    string  `gorm:"size:36;index" json:"orderId"`
	MedicineID string  `gorm:"size:36;index" json:"medicineId"`
	Quantity   int     `gorm:"not null" json:"quantity"`
	Price      float64 `gorm:"not null" json:"price"`

	Medicine Medicine `gorm:"foreignKey:MedicineID" json:"-"`
}

// Order represents a pharmacy order
type Order struct {
	BaseModel
	PatientID       string          `gorm:"size:36;index" json:"patientId"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	TotalAmount     float64         `gorm:"not null" json:"totalAmount"`
	Status          OrderStatus     `gorm:"size:20;default:'pending';index" json:"status"`
	PaymentStatus   PaymentStatus   `gorm:"size:20;default:'pending'" json:"paymentStatus"`
	DeliveryAddress DeliveryAddress `gorm:"embedded;embeddedPrefix:delivery_" json:"deliveryAddress"`
	PrescriptionURL string          `gorm:"size:255" json:"prescriptionUrl,omitempty"`
	VerifiedBy      string          `gorm:"size:36" json:"verifiedBy,omitempty"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`

	Patient User `gorm:"foreignKey:PatientID" json:"-"`
}

// Terminal reports whether no further status transitions are possible.
func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}
