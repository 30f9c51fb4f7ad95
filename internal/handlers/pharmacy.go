package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"mediconnect-server/internal/middleware"
	"mediconnect-server/internal/models"
	"mediconnect-server/internal/notify"
	"mediconnect-server/internal/pharmacy"
	"mediconnect-server/internal/utils"
)

// PharmacyHandler handles medicine catalogue and order requests.
type PharmacyHandler struct {
	DB        *gorm.DB
	Sequencer *pharmacy.Sequencer
	Mailer    *notify.Mailer
}

// NewPharmacyHandler creates a new PharmacyHandler.
func NewPharmacyHandler(db *gorm.DB, sequencer *pharmacy.Sequencer, mailer *notify.Mailer) *PharmacyHandler {
	return &PharmacyHandler{DB: db, Sequencer: sequencer, Mailer: mailer}
}

// GetMedicines lists medicines, optionally filtered by category or name.
func (h *PharmacyHandler) GetMedicines(c *gin.Context) {
	query := h.DB.Model(&models.Medicine{})

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR generic_name LIKE ?", like, like)
	}

	var medicines []models.Medicine
	if err := query.Order("name asc").Find(&medicines).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch medicines: "+err.Error())
		return
	}
	utils.Success(c, "Medicines fetched successfully", medicines)
}

// GetMedicineByID fetches a single medicine.
func (h *PharmacyHandler) GetMedicineByID(c *gin.Context) {
	var medicine models.Medicine
	if err := h.DB.First(&medicine, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Medicine not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	utils.Success(c, "Medicine fetched successfully", medicine)
}

// MedicineRequest represents the request body for creating or updating a medicine.
type MedicineRequest struct {
	Name                 string                  `json:"name" binding:"required"`
	GenericName          string                  `json:"genericName"`
	Manufacturer         string                  `json:"manufacturer"`
	Category             models.MedicineCategory `json:"category" binding:"omitempty,oneof=antibiotic painkiller vitamin supplement prescription otc other"`
	Description          string                  `json:"description"`
	Price                float64                 `json:"price" binding:"gte=0"`
	Stock                int                     `json:"stock" binding:"gte=0"`
	RequiresPrescription bool                    `json:"requiresPrescription"`
	DosageForm           string                  `json:"dosageForm" binding:"omitempty,oneof=tablet capsule syrup injection cream drops other"`
	Strength             string                  `json:"strength"`
	ImageURL             string                  `json:"imageUrl"`
	ExpiryDate           *time.Time              `json:"expiryDate"`
}

func (r *MedicineRequest) apply(m *models.Medicine) {
	m.Name = r.Name
	m.GenericName = r.GenericName
	m.Manufacturer = r.Manufacturer
	if r.Category != "" {
		m.Category = r.Category
	}
	m.Description = r.Description
	m.Price = r.Price
	m.Stock = r.Stock
	m.RequiresPrescription = r.RequiresPrescription
	if r.DosageForm != "" {
		m.DosageForm = r.DosageForm
	}
	m.Strength = r.Strength
	m.ImageURL = r.ImageURL
	m.ExpiryDate = r.ExpiryDate
}

// CreateMedicine adds a medicine to the catalogue (pharmacist/admin only).
func (h *PharmacyHandler) CreateMedicine(c *gin.Context) {
	var req MedicineRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var medicine models.Medicine
	req.apply(&medicine)

	if err := h.DB.Create(&medicine).Error; err != nil {
		utils.InternalServerError(c, "Failed to create medicine: "+err.Error())
		return
	}
	utils.Created(c, "Medicine added successfully", medicine)
}

// UpdateMedicine updates a medicine (pharmacist/admin only).
func (h *PharmacyHandler) UpdateMedicine(c *gin.Context) {
	var req MedicineRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	var medicine models.Medicine
	if err := h.DB.First(&medicine, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Medicine not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	req.apply(&medicine)
	if err := h.DB.Save(&medicine).Error; err != nil {
		utils.InternalServerError(c, "Failed to update medicine: "+err.Error())
		return
	}
	utils.Success(c, "Medicine updated successfully", medicine)
}

// OrderItemRequest is one requested line of a new order.
type OrderItemRequest struct {
	MedicineID string `json:"medicine" binding:"required,uuid"`
	Quantity   int    `json:"quantity" binding:"required,gte=1"`
}

// CreateOrderRequest represents the request body for placing an order.
type CreateOrderRequest struct {
	Items           []OrderItemRequest     `json:"items" binding:"required,min=1,dive"`
	DeliveryAddress models.DeliveryAddress `json:"deliveryAddress" binding:"required"`
	PrescriptionURL string                 `json:"prescriptionUrl"`
}

// CreateOrder places an order for the authenticated patient.
func (h *PharmacyHandler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	patientID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	lines := make([]pharmacy.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, pharmacy.OrderLine{MedicineID: item.MedicineID, Quantity: item.Quantity})
	}

	order, err := h.Sequencer.PlaceOrder(c.Request.Context(), patientID, lines, req.DeliveryAddress, req.PrescriptionURL)
	if err != nil {
		var notFound *pharmacy.MedicineNotFoundError
		var noStock *pharmacy.InsufficientStockError
		switch {
		case errors.As(err, &notFound):
			utils.NotFound(c, notFound.Error())
		case errors.As(err, &noStock):
			utils.BadRequest(c, noStock.Error())
		case errors.Is(err, pharmacy.ErrEmptyOrder), errors.Is(err, pharmacy.ErrInvalidQuantity):
			utils.BadRequest(c, err.Error())
		default:
			utils.InternalServerError(c, "Failed to create order: "+err.Error())
		}
		return
	}

	utils.Created(c, "Order placed successfully", order)
}

// GetOrders lists orders. Patients see their own; pharmacists and admins
// see everything.
func (h *PharmacyHandler) GetOrders(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Preload("Items").Preload("Items.Medicine").Order("created_at desc")
	if userRole == models.RolePatient || userRole == models.RoleDoctor {
		query = query.Where("patient_id = ?", userID)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch orders: "+err.Error())
		return
	}
	utils.Success(c, "Orders fetched successfully", orders)
}

// UpdateOrderStatusRequest represents the request body for order status changes.
type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,oneof=pending verified processing shipped delivered cancelled"`
}

// UpdateOrderStatus moves an order through its lifecycle (pharmacist/admin
// only). Verification debits stock exactly once and emails the invoice.
func (h *PharmacyHandler) UpdateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	actorID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	order, changed, err := h.Sequencer.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, actorID)
	if err != nil {
		var noStock *pharmacy.InsufficientStockError
		switch {
		case errors.Is(err, pharmacy.ErrOrderNotFound):
			utils.NotFound(c, "Order not found")
		case errors.Is(err, pharmacy.ErrInvalidTransition):
			utils.BadRequest(c, err.Error())
		case errors.As(err, &noStock):
			utils.BadRequest(c, noStock.Error())
		default:
			utils.InternalServerError(c, "Failed to update order: "+err.Error())
		}
		return
	}

	// Only a verify that actually applied mails the invoice; an
	// idempotent retry must not email it again.
	if changed && order.Status == models.OrderVerified {
		h.sendInvoice(order.ID)
	}

	utils.Success(c, "Order updated successfully", order)
}

// sendInvoice emails the invoice PDF for a verified order in the
// background. Failures are logged and never affect the transition.
func (h *PharmacyHandler) sendInvoice(orderID string) {
	go func() {
		var order models.Order
		if err := h.DB.Preload("Items").Preload("Items.Medicine").First(&order, "id = ?", orderID).Error; err != nil {
			logrus.WithError(err).WithField("order", orderID).Error("failed to load order for invoice")
			return
		}
		var patient models.User
		if err := h.DB.First(&patient, "id = ?", order.PatientID).Error; err != nil {
			logrus.WithError(err).WithField("order", orderID).Error("failed to load patient for invoice")
			return
		}
		pdf, err := notify.OrderInvoicePDF(&order, &patient)
		if err != nil {
			logrus.WithError(err).WithField("order", orderID).Error("failed to generate invoice PDF")
			return
		}
		if err := h.Mailer.SendOrderInvoice(patient.Email, patient.Name, pdf); err != nil {
			logrus.WithError(err).WithField("order", orderID).Error("failed to send invoice email")
		}
	}()
}
